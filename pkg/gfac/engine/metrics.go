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

package engine

import (
	"github.com/uber-go/tally"
)

// Metrics tracks submissions handled by the engine.
type Metrics struct {
	InFlight tally.Gauge

	Submitted       tally.Counter
	Launched        tally.Counter
	Relaunched      tally.Counter
	Completed       tally.Counter
	Failed          tally.Counter
	Canceled        tally.Counter
	CancelRequested tally.Counter
	CancelFail      tally.Counter
	// Dropped counts launch requests whose experiment node was gone.
	Dropped tally.Counter
}

// NewMetrics returns a new Metrics struct rooted at scope.
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		InFlight:        scope.Gauge("in_flight"),
		Submitted:       scope.Counter("submitted"),
		Launched:        scope.Counter("launched"),
		Relaunched:      scope.Counter("relaunched"),
		Completed:       scope.Counter("completed"),
		Failed:          scope.Counter("failed"),
		Canceled:        scope.Counter("canceled"),
		CancelRequested: scope.Counter("cancel_requested"),
		CancelFail:      scope.Counter("cancel_fail"),
		Dropped:         scope.Counter("dropped"),
	}
}
