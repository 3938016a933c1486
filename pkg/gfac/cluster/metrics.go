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

package cluster

import (
	"github.com/uber-go/tally"
)

// Metrics tracks connections to login nodes.
type Metrics struct {
	Connect         tally.Counter
	ConnectFail     tally.Counter
	Commands        tally.Counter
	CommandFail     tally.Counter
	BytesUploaded   tally.Counter
	BytesDownloaded tally.Counter

	CacheHit     tally.Counter
	CacheMiss    tally.Counter
	CacheEvicted tally.Counter
}

// NewMetrics returns a new Metrics struct rooted at scope.
func NewMetrics(scope tally.Scope) *Metrics {
	cacheScope := scope.SubScope("cache")
	return &Metrics{
		Connect:         scope.Counter("connect"),
		ConnectFail:     scope.Counter("connect_fail"),
		Commands:        scope.Counter("commands"),
		CommandFail:     scope.Counter("command_fail"),
		BytesUploaded:   scope.Counter("bytes_uploaded"),
		BytesDownloaded: scope.Counter("bytes_downloaded"),
		CacheHit:        cacheScope.Counter("hit"),
		CacheMiss:       cacheScope.Counter("miss"),
		CacheEvicted:    cacheScope.Counter("evicted"),
	}
}
