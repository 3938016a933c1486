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

package cascade

import (
	"github.com/uber-go/tally"
)

// Metrics tracks status propagation.
type Metrics struct {
	JobUpdate            tally.Counter
	JobUpdateFail        tally.Counter
	TaskUpdate           tally.Counter
	TaskUpdateFail       tally.Counter
	NodeUpdate           tally.Counter
	NodeUpdateFail       tally.Counter
	ExperimentUpdate     tally.Counter
	ExperimentUpdateFail tally.Counter

	GfacStateUpdate     tally.Counter
	GfacStateUpdateFail tally.Counter
	GfacStateDropped    tally.Counter

	ErrorsRecorded tally.Counter
}

// NewMetrics returns a new Metrics struct rooted at scope.
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		JobUpdate:            scope.Counter("job_update"),
		JobUpdateFail:        scope.Counter("job_update_fail"),
		TaskUpdate:           scope.Counter("task_update"),
		TaskUpdateFail:       scope.Counter("task_update_fail"),
		NodeUpdate:           scope.Counter("workflow_node_update"),
		NodeUpdateFail:       scope.Counter("workflow_node_update_fail"),
		ExperimentUpdate:     scope.Counter("experiment_update"),
		ExperimentUpdateFail: scope.Counter("experiment_update_fail"),
		GfacStateUpdate:      scope.Counter("gfac_state_update"),
		GfacStateUpdateFail:  scope.Counter("gfac_state_update_fail"),
		GfacStateDropped:     scope.Counter("gfac_state_dropped"),
		ErrorsRecorded:       scope.Counter("errors_recorded"),
	}
}
