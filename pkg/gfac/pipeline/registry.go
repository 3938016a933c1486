// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/apache/airavata-gfac/pkg/gfac/core"
)

// Registry maps plugin names to factories. Names are resolved once when
// the pipeline is built.
type Registry struct {
	sync.RWMutex
	handlers  map[string]core.HandlerFactory
	providers map[string]core.ProviderFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:  make(map[string]core.HandlerFactory),
		providers: make(map[string]core.ProviderFactory),
	}
}

// RegisterHandler adds a handler factory under name.
func (r *Registry) RegisterHandler(name string, f core.HandlerFactory) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("handler %s already registered", name)
	}
	r.handlers[name] = f
	return nil
}

// RegisterProvider adds a provider factory under name.
func (r *Registry) RegisterProvider(name string, f core.ProviderFactory) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("provider %s already registered", name)
	}
	r.providers[name] = f
	return nil
}

func (r *Registry) handler(name string) (core.HandlerFactory, bool) {
	r.RLock()
	defer r.RUnlock()
	f, ok := r.handlers[name]
	return f, ok
}

func (r *Registry) provider(name string) (core.ProviderFactory, bool) {
	r.RLock()
	defer r.RUnlock()
	f, ok := r.providers[name]
	return f, ok
}

// HandlerNames returns the registered handler names, sorted.
func (r *Registry) HandlerNames() []string {
	r.RLock()
	defer r.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ProviderNames returns the registered provider names, sorted.
func (r *Registry) ProviderNames() []string {
	r.RLock()
	defer r.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
