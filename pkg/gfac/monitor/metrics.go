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

package monitor

import (
	"github.com/uber-go/tally"
)

// Metrics tracks the job monitor.
type Metrics struct {
	Monitored tally.Gauge

	Polls     tally.Counter
	PollFail  tally.Counter
	Observed  tally.Counter
	Unknown   tally.Counter
	Resolved  tally.Counter
	Completed tally.Counter
	Failed    tally.Counter
	Canceled  tally.Counter
	// ForcedCancel counts canceled jobs that never reported CANCELED.
	ForcedCancel tally.Counter
	OutFlowFail  tally.Counter
}

// NewMetrics returns a new Metrics struct rooted at scope.
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		Monitored:    scope.Gauge("monitored"),
		Polls:        scope.Counter("polls"),
		PollFail:     scope.Counter("poll_fail"),
		Observed:     scope.Counter("observed"),
		Unknown:      scope.Counter("unknown"),
		Resolved:     scope.Counter("unknown_resolved"),
		Completed:    scope.Counter("completed"),
		Failed:       scope.Counter("failed"),
		Canceled:     scope.Counter("canceled"),
		ForcedCancel: scope.Counter("forced_cancel"),
		OutFlowFail:  scope.Counter("out_flow_fail"),
	}
}
