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

package scheduler

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/apache/airavata-gfac/pkg/model"
)

// Host selection policy names.
const (
	RoundRobin     = "round-robin"
	FirstAvailable = "first-available"
)

// HostSelectionPolicy picks one of the candidates of an application. The
// candidate list is never empty.
type HostSelectionPolicy interface {
	Select(applicationID string, candidates []Candidate) (Candidate, error)
}

// HostAvailability reports whether a host accepts submissions.
type HostAvailability func(host *model.HostDescription) bool

// NewPolicy returns the named policy. available may be nil, in which case
// every host is available.
func NewPolicy(name string, available HostAvailability) (HostSelectionPolicy, error) {
	if available == nil {
		available = func(*model.HostDescription) bool { return true }
	}
	switch name {
	case RoundRobin, "":
		return &roundRobin{next: make(map[string]int), available: available}, nil
	case FirstAvailable:
		return &firstAvailable{available: available}, nil
	}
	return nil, fmt.Errorf("unknown host selection policy %q", name)
}

// roundRobin rotates over the available candidates of each application.
type roundRobin struct {
	sync.Mutex
	next      map[string]int
	available HostAvailability
}

func (p *roundRobin) Select(applicationID string, candidates []Candidate) (Candidate, error) {
	p.Lock()
	defer p.Unlock()

	start := p.next[applicationID]
	for i := 0; i < len(candidates); i++ {
		idx := (start + i) % len(candidates)
		if p.available(candidates[idx].Host) {
			p.next[applicationID] = idx + 1
			return candidates[idx], nil
		}
	}
	return Candidate{}, errors.New("no available host")
}

// firstAvailable picks the first available candidate in catalog order.
type firstAvailable struct {
	available HostAvailability
}

func (p *firstAvailable) Select(applicationID string, candidates []Candidate) (Candidate, error) {
	for _, c := range candidates {
		if p.available(c.Host) {
			return c, nil
		}
	}
	return Candidate{}, errors.New("no available host")
}
