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

package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/storage"
)

type entityKey struct {
	t  storage.EntityType
	id string
}

// Registry keeps registry records in memory. Records are stored encoded so
// callers never share memory with the store.
type Registry struct {
	sync.RWMutex
	entities map[entityKey][]byte
	metrics  *storage.RegistryMetrics
}

// NewRegistry creates an empty in-memory registry.
func NewRegistry(scope tally.Scope) *Registry {
	return &Registry{
		entities: make(map[entityKey][]byte),
		metrics:  storage.NewRegistryMetrics(scope.SubScope("registry")),
	}
}

// Get implements storage.Registry.
func (r *Registry) Get(
	ctx context.Context,
	t storage.EntityType,
	id string) (interface{}, error) {
	r.metrics.Get.Inc(1)

	r.RLock()
	body, ok := r.entities[entityKey{t: t, id: id}]
	r.RUnlock()
	if !ok {
		r.metrics.GetNotFound.Inc(1)
		return nil, errors.Wrapf(storage.ErrNotFound, "%v %s", t, id)
	}

	entity, err := storage.NewEntity(t)
	if err != nil {
		r.metrics.GetFail.Inc(1)
		return nil, err
	}
	if err := json.Unmarshal(body, entity); err != nil {
		r.metrics.GetFail.Inc(1)
		return nil, errors.Wrapf(err, "failed to decode %v %s", t, id)
	}
	return entity, nil
}

// Update implements storage.Registry.
func (r *Registry) Update(
	ctx context.Context,
	t storage.EntityType,
	entity interface{},
	id string) error {
	if err := storage.CheckEntity(t, entity); err != nil {
		r.metrics.UpdateFail.Inc(1)
		return err
	}
	body, err := json.Marshal(entity)
	if err != nil {
		r.metrics.UpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to encode %v %s", t, id)
	}

	r.Lock()
	r.entities[entityKey{t: t, id: id}] = body
	r.Unlock()
	r.metrics.Update.Inc(1)
	return nil
}
