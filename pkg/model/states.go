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

package model

import (
	"fmt"
	"strings"
)

// JobState is the state of a single job on a remote compute resource.
type JobState int

// Job states as reported by the remote resource manager.
const (
	JobStateUnSubmitted JobState = iota
	JobStateSubmitted
	JobStateQueued
	JobStateSetup
	JobStateActive
	JobStateHeld
	JobStateSuspended
	JobStateCanceling
	JobStateCanceled
	JobStateComplete
	JobStateFailed
	JobStateUnknown
)

var _jobStateNames = []string{
	"UN_SUBMITTED",
	"SUBMITTED",
	"QUEUED",
	"SETUP",
	"ACTIVE",
	"HELD",
	"SUSPENDED",
	"CANCELING",
	"CANCELED",
	"COMPLETE",
	"FAILED",
	"UNKNOWN",
}

func (s JobState) String() string {
	if s < 0 || int(s) >= len(_jobStateNames) {
		return fmt.Sprintf("JobState(%d)", int(s))
	}
	return _jobStateNames[s]
}

// IsTerminal returns true for states after which the remote job will not
// change anymore.
func (s JobState) IsTerminal() bool {
	return s == JobStateComplete || s == JobStateFailed || s == JobStateCanceled
}

// AllJobStates returns every job state in declaration order.
func AllJobStates() []JobState {
	states := make([]JobState, 0, len(_jobStateNames))
	for i := range _jobStateNames {
		states = append(states, JobState(i))
	}
	return states
}

// ParseJobState returns the job state with the given name.
func ParseJobState(name string) (JobState, error) {
	for i, n := range _jobStateNames {
		if strings.EqualFold(n, name) {
			return JobState(i), nil
		}
	}
	return JobStateUnknown, fmt.Errorf("invalid job state %q", name)
}

// TaskState is the state of a task, the unit that owns one or more jobs.
type TaskState int

// Task states.
const (
	TaskStateWaiting TaskState = iota
	TaskStateStarted
	TaskStatePreProcessing
	TaskStateConfiguringWorkspace
	TaskStateInputDataStaging
	TaskStateExecuting
	TaskStateOutputDataStaging
	TaskStatePostProcessing
	TaskStateCompleted
	TaskStateFailed
	TaskStateCanceling
	TaskStateCanceled
	TaskStateUnknown
)

var _taskStateNames = []string{
	"WAITING",
	"STARTED",
	"PRE_PROCESSING",
	"CONFIGURING_WORKSPACE",
	"INPUT_DATA_STAGING",
	"EXECUTING",
	"OUTPUT_DATA_STAGING",
	"POST_PROCESSING",
	"COMPLETED",
	"FAILED",
	"CANCELING",
	"CANCELED",
	"UNKNOWN",
}

func (s TaskState) String() string {
	if s < 0 || int(s) >= len(_taskStateNames) {
		return fmt.Sprintf("TaskState(%d)", int(s))
	}
	return _taskStateNames[s]
}

// AllTaskStates returns every task state in declaration order.
func AllTaskStates() []TaskState {
	states := make([]TaskState, 0, len(_taskStateNames))
	for i := range _taskStateNames {
		states = append(states, TaskState(i))
	}
	return states
}

// WorkflowNodeState is the state of a node in the experiment's workflow.
type WorkflowNodeState int

// Workflow node states.
const (
	WorkflowNodeStateInvoked WorkflowNodeState = iota
	WorkflowNodeStateExecuting
	WorkflowNodeStateCanceling
	WorkflowNodeStateCanceled
	WorkflowNodeStateCompleted
	WorkflowNodeStateFailed
	WorkflowNodeStateUnknown
)

var _nodeStateNames = []string{
	"INVOKED",
	"EXECUTING",
	"CANCELING",
	"CANCELED",
	"COMPLETED",
	"FAILED",
	"UNKNOWN",
}

func (s WorkflowNodeState) String() string {
	if s < 0 || int(s) >= len(_nodeStateNames) {
		return fmt.Sprintf("WorkflowNodeState(%d)", int(s))
	}
	return _nodeStateNames[s]
}

// AllWorkflowNodeStates returns every workflow node state in declaration order.
func AllWorkflowNodeStates() []WorkflowNodeState {
	states := make([]WorkflowNodeState, 0, len(_nodeStateNames))
	for i := range _nodeStateNames {
		states = append(states, WorkflowNodeState(i))
	}
	return states
}

// ExperimentState is the user visible state of an experiment.
type ExperimentState int

// Experiment states.
const (
	ExperimentStateCreated ExperimentState = iota
	ExperimentStateValidated
	ExperimentStateScheduled
	ExperimentStateLaunched
	ExperimentStateExecuting
	ExperimentStateCanceling
	ExperimentStateCanceled
	ExperimentStateSuspended
	ExperimentStateCompleted
	ExperimentStateFailed
	ExperimentStateUnknown
)

var _experimentStateNames = []string{
	"CREATED",
	"VALIDATED",
	"SCHEDULED",
	"LAUNCHED",
	"EXECUTING",
	"CANCELING",
	"CANCELED",
	"SUSPENDED",
	"COMPLETED",
	"FAILED",
	"UNKNOWN",
}

func (s ExperimentState) String() string {
	if s < 0 || int(s) >= len(_experimentStateNames) {
		return fmt.Sprintf("ExperimentState(%d)", int(s))
	}
	return _experimentStateNames[s]
}

// AllExperimentStates returns every experiment state in declaration order.
func AllExperimentStates() []ExperimentState {
	states := make([]ExperimentState, 0, len(_experimentStateNames))
	for i := range _experimentStateNames {
		states = append(states, ExperimentState(i))
	}
	return states
}

// GfacExperimentState is the internal progress marker of one submission
// inside the engine. Its numeric value is what gets checkpointed, so the
// values must never be reordered.
type GfacExperimentState int

// Internal submission states.
const (
	GfacStateLaunched            GfacExperimentState = 0
	GfacStateAccepted            GfacExperimentState = 1
	GfacStateInHandlersInvoking  GfacExperimentState = 2
	GfacStateInHandlersInvoked   GfacExperimentState = 3
	GfacStateProviderInvoking    GfacExperimentState = 4
	GfacStateJobSubmitted        GfacExperimentState = 5
	GfacStateProviderInvoked     GfacExperimentState = 6
	GfacStateOutHandlersInvoking GfacExperimentState = 7
	GfacStateOutHandlersInvoked  GfacExperimentState = 8
	GfacStateCompleted           GfacExperimentState = 9
	GfacStateFailed              GfacExperimentState = 10
	GfacStateCanceled            GfacExperimentState = 11
	GfacStateUnknown             GfacExperimentState = 12
)

var _gfacStateNames = map[GfacExperimentState]string{
	GfacStateLaunched:            "LAUNCHED",
	GfacStateAccepted:            "ACCEPTED",
	GfacStateInHandlersInvoking:  "INHANDLERSINVOKING",
	GfacStateInHandlersInvoked:   "INHANDLERSINVOKED",
	GfacStateProviderInvoking:    "PROVIDERINVOKING",
	GfacStateJobSubmitted:        "JOBSUBMITTED",
	GfacStateProviderInvoked:     "PROVIDERINVOKED",
	GfacStateOutHandlersInvoking: "OUTHANDLERSINVOKING",
	GfacStateOutHandlersInvoked:  "OUTHANDLERSINVOKED",
	GfacStateCompleted:           "COMPLETED",
	GfacStateFailed:              "FAILED",
	GfacStateCanceled:            "CANCELED",
	GfacStateUnknown:             "UNKNOWN",
}

func (s GfacExperimentState) String() string {
	if n, ok := _gfacStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("GfacExperimentState(%d)", int(s))
}

// IsTerminal returns true if the checkpoint of a submission in this state
// can be discarded.
func (s GfacExperimentState) IsTerminal() bool {
	return s == GfacStateCompleted || s == GfacStateFailed
}

// GfacExperimentStateFromValue converts a checkpointed value back into a
// state. Unrecognized values map to GfacStateUnknown.
func GfacExperimentStateFromValue(v int) GfacExperimentState {
	s := GfacExperimentState(v)
	if _, ok := _gfacStateNames[s]; !ok {
		return GfacStateUnknown
	}
	return s
}

// PluginState is the checkpointed progress of a single handler or provider.
type PluginState int

// Plugin states.
const (
	PluginStateInvoking  PluginState = 0
	PluginStateInvoked   PluginState = 1
	PluginStateCompleted PluginState = 2
	// PluginStateNotFound is returned when no checkpoint exists for a plugin.
	PluginStateNotFound PluginState = -1
)

func (s PluginState) String() string {
	switch s {
	case PluginStateInvoking:
		return "INVOKING"
	case PluginStateInvoked:
		return "INVOKED"
	case PluginStateCompleted:
		return "COMPLETED"
	case PluginStateNotFound:
		return "NOT_FOUND"
	}
	return fmt.Sprintf("PluginState(%d)", int(s))
}
