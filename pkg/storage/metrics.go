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

package storage

import (
	"github.com/uber-go/tally"
)

// RegistryMetrics tracks registry operations of one backend.
type RegistryMetrics struct {
	Get         tally.Counter
	GetFail     tally.Counter
	GetNotFound tally.Counter
	Update      tally.Counter
	UpdateFail  tally.Counter
}

// NewRegistryMetrics returns a new RegistryMetrics rooted at scope.
func NewRegistryMetrics(scope tally.Scope) *RegistryMetrics {
	return &RegistryMetrics{
		Get:         scope.Counter("get"),
		GetFail:     scope.Counter("get_fail"),
		GetNotFound: scope.Counter("get_not_found"),
		Update:      scope.Counter("update"),
		UpdateFail:  scope.Counter("update_fail"),
	}
}
