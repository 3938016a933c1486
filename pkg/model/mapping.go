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

import "time"

// TaskStateForJob maps a job state onto the state of the owning task.
// The second return value is false if the job state does not move the task.
func TaskStateForJob(s JobState) (TaskState, bool) {
	switch s {
	case JobStateActive:
		return TaskStateExecuting, true
	case JobStateSubmitted:
		return TaskStateStarted, true
	case JobStateSetup:
		return TaskStatePreProcessing, true
	case JobStateQueued, JobStateHeld, JobStateSuspended:
		return TaskStateWaiting, true
	case JobStateComplete:
		return TaskStateCompleted, true
	case JobStateFailed:
		return TaskStateFailed, true
	case JobStateCanceled, JobStateUnSubmitted:
		return TaskStateCanceled, true
	case JobStateCanceling:
		return TaskStateCanceling, true
	}
	return TaskStateUnknown, false
}

// WorkflowNodeStateForTask maps a task state onto the state of the owning
// workflow node. The second return value is false if the task state does
// not move the node.
func WorkflowNodeStateForTask(s TaskState) (WorkflowNodeState, bool) {
	switch s {
	case TaskStateStarted, TaskStateConfiguringWorkspace:
		return WorkflowNodeStateInvoked, true
	case TaskStateExecuting, TaskStateWaiting, TaskStatePreProcessing,
		TaskStatePostProcessing, TaskStateInputDataStaging,
		TaskStateOutputDataStaging:
		return WorkflowNodeStateExecuting, true
	case TaskStateCompleted:
		return WorkflowNodeStateCompleted, true
	case TaskStateFailed:
		return WorkflowNodeStateFailed, true
	case TaskStateCanceled:
		return WorkflowNodeStateCanceled, true
	case TaskStateCanceling:
		return WorkflowNodeStateCanceling, true
	}
	return WorkflowNodeStateUnknown, false
}

// ExperimentStateForWorkflowNode maps a workflow node state onto the state
// of the owning experiment.
func ExperimentStateForWorkflowNode(s WorkflowNodeState) (ExperimentState, bool) {
	switch s {
	case WorkflowNodeStateInvoked:
		return ExperimentStateLaunched, true
	case WorkflowNodeStateExecuting:
		return ExperimentStateExecuting, true
	case WorkflowNodeStateCompleted:
		return ExperimentStateCompleted, true
	case WorkflowNodeStateFailed:
		return ExperimentStateFailed, true
	case WorkflowNodeStateCanceling:
		return ExperimentStateCanceling, true
	case WorkflowNodeStateCanceled:
		return ExperimentStateCanceled, true
	}
	return ExperimentStateUnknown, false
}

// A status in CANCELING or CANCELED only accepts CANCELED afterwards.
func cancelGuardAllows(currentCanceling, currentCanceled, incomingCanceled bool) bool {
	if currentCanceling || currentCanceled {
		return incomingCanceled
	}
	return true
}

// NextJobStatus computes the status to persist for a job given its current
// status (nil if none was persisted yet) and an incoming state. The returned
// status always carries now as its time of change.
func NextJobStatus(current *JobStatus, incoming JobState, now time.Time) *JobStatus {
	if current == nil {
		return &JobStatus{State: incoming, TimeOfChange: now}
	}
	next := &JobStatus{State: current.State, TimeOfChange: now}
	if cancelGuardAllows(
		current.State == JobStateCanceling,
		current.State == JobStateCanceled,
		incoming == JobStateCanceled) {
		next.State = incoming
	}
	return next
}

// NextTaskStatus computes the status to persist for a task.
func NextTaskStatus(current *TaskStatus, incoming TaskState, now time.Time) *TaskStatus {
	if current == nil {
		return &TaskStatus{State: incoming, TimeOfChange: now}
	}
	next := &TaskStatus{State: current.State, TimeOfChange: now}
	if cancelGuardAllows(
		current.State == TaskStateCanceling,
		current.State == TaskStateCanceled,
		incoming == TaskStateCanceled) {
		next.State = incoming
	}
	return next
}

// NextWorkflowNodeStatus computes the status to persist for a workflow node.
func NextWorkflowNodeStatus(
	current *WorkflowNodeStatus,
	incoming WorkflowNodeState,
	now time.Time) *WorkflowNodeStatus {
	if current == nil {
		return &WorkflowNodeStatus{State: incoming, TimeOfChange: now}
	}
	next := &WorkflowNodeStatus{State: current.State, TimeOfChange: now}
	if cancelGuardAllows(
		current.State == WorkflowNodeStateCanceling,
		current.State == WorkflowNodeStateCanceled,
		incoming == WorkflowNodeStateCanceled) {
		next.State = incoming
	}
	return next
}

// NextExperimentStatus computes the status to persist for an experiment.
// The reason is only replaced when the state is.
func NextExperimentStatus(
	current *ExperimentStatus,
	incoming ExperimentState,
	reason string,
	now time.Time) *ExperimentStatus {
	if current == nil {
		return &ExperimentStatus{State: incoming, TimeOfChange: now, Reason: reason}
	}
	next := &ExperimentStatus{
		State:        current.State,
		TimeOfChange: now,
		Reason:       current.Reason,
	}
	if cancelGuardAllows(
		current.State == ExperimentStateCanceling,
		current.State == ExperimentStateCanceled,
		incoming == ExperimentStateCanceled) {
		next.State = incoming
		next.Reason = reason
	}
	return next
}
