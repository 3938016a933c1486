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
	"time"
)

// JobStatus is the persisted status of a job.
type JobStatus struct {
	State        JobState  `json:"state"`
	TimeOfChange time.Time `json:"time_of_change"`
}

// TaskStatus is the persisted status of a task.
type TaskStatus struct {
	State        TaskState `json:"state"`
	TimeOfChange time.Time `json:"time_of_change"`
}

// WorkflowNodeStatus is the persisted status of a workflow node.
type WorkflowNodeStatus struct {
	State        WorkflowNodeState `json:"state"`
	TimeOfChange time.Time         `json:"time_of_change"`
}

// ExperimentStatus is the persisted status of an experiment. Reason carries a
// human readable description for the user; stack traces never go here.
type ExperimentStatus struct {
	State        ExperimentState `json:"state"`
	TimeOfChange time.Time       `json:"time_of_change"`
	Reason       string          `json:"reason,omitempty"`
}

// JobIdentity identifies one remote job together with its owning hierarchy.
type JobIdentity struct {
	JobID          string
	TaskID         string
	WorkflowNodeID string
	ExperimentID   string
}

// Key is the registry key of the job.
func (id JobIdentity) Key() string {
	return JobKey(id.TaskID, id.JobID)
}

func (id JobIdentity) String() string {
	return fmt.Sprintf("%s/%s/%s/%s",
		id.ExperimentID, id.WorkflowNodeID, id.TaskID, id.JobID)
}

// TaskIdentity identifies one task.
type TaskIdentity struct {
	TaskID         string
	WorkflowNodeID string
	ExperimentID   string
}

// WorkflowNodeIdentity identifies one workflow node.
type WorkflowNodeIdentity struct {
	WorkflowNodeID string
	ExperimentID   string
}

// ExperimentIdentity identifies one experiment.
type ExperimentIdentity struct {
	ExperimentID string
}

// JobKey builds the registry key of a job from the owning task and the
// remote job id.
func JobKey(taskID, jobID string) string {
	return taskID + "," + jobID
}

// JobDetails is the registry record of a submitted job.
type JobDetails struct {
	JobID           string     `json:"job_id"`
	TaskID          string     `json:"task_id"`
	JobName         string     `json:"job_name,omitempty"`
	JobDescription  string     `json:"job_description,omitempty"`
	ComputeResource string     `json:"compute_resource,omitempty"`
	CreationTime    time.Time  `json:"creation_time"`
	Status          *JobStatus `json:"status,omitempty"`
}

// ComputationalScheduling holds the resource request of a task.
type ComputationalScheduling struct {
	QueueName      string `json:"queue_name,omitempty"`
	NodeCount      int    `json:"node_count,omitempty"`
	TotalCPUCount  int    `json:"total_cpu_count,omitempty"`
	WallTimeLimit  int    `json:"wall_time_limit,omitempty"`
	ProjectAccount string `json:"project_account,omitempty"`
}

// Parameter is one named input or output of an application.
type Parameter struct {
	Name  string        `json:"name"`
	Value string        `json:"value"`
	Type  ParameterType `json:"type"`
}

// ParameterType says how a parameter value must be interpreted.
type ParameterType string

// Parameter types.
const (
	ParameterTypeString ParameterType = "STRING"
	ParameterTypeURI    ParameterType = "URI"
	ParameterTypeStdout ParameterType = "STDOUT"
	ParameterTypeStderr ParameterType = "STDERR"
)

// TaskDetails is the registry record of a task.
type TaskDetails struct {
	TaskID         string                   `json:"task_id"`
	ExperimentID   string                   `json:"experiment_id"`
	WorkflowNodeID string                   `json:"workflow_node_id"`
	ApplicationID  string                   `json:"application_id"`
	Inputs         []Parameter              `json:"inputs,omitempty"`
	Outputs        []Parameter              `json:"outputs,omitempty"`
	Scheduling     *ComputationalScheduling `json:"scheduling,omitempty"`
	WorkingDir     string                   `json:"working_dir,omitempty"`
	JobIDs         []string                 `json:"job_ids,omitempty"`
	Status         *TaskStatus              `json:"status,omitempty"`
	Errors         []ErrorDetails           `json:"errors,omitempty"`
}

// WorkflowNodeDetails is the registry record of a workflow node.
type WorkflowNodeDetails struct {
	NodeInstanceID string              `json:"node_instance_id"`
	ExperimentID   string              `json:"experiment_id"`
	NodeName       string              `json:"node_name,omitempty"`
	Status         *WorkflowNodeStatus `json:"status,omitempty"`
}

// Experiment is the registry record of an experiment.
type Experiment struct {
	ExperimentID string            `json:"experiment_id"`
	GatewayID    string            `json:"gateway_id"`
	UserName     string            `json:"user_name"`
	Name         string            `json:"name,omitempty"`
	Status       *ExperimentStatus `json:"status,omitempty"`
}

// ErrorCategory classifies a recorded failure.
type ErrorCategory string

// Error categories.
const (
	ErrorCategoryFileSystemFailure      ErrorCategory = "FILE_SYSTEM_FAILURE"
	ErrorCategoryApplicationFailure     ErrorCategory = "APPLICATION_FAILURE"
	ErrorCategoryResourceNodeFailure    ErrorCategory = "RESOURCE_NODE_FAILURE"
	ErrorCategoryDiskFull               ErrorCategory = "DISK_FULL"
	ErrorCategoryInsufficientAllocation ErrorCategory = "INSUFFICIENT_ALLOCATION"
	ErrorCategorySystemFailure          ErrorCategory = "SYSTEM_FAILURE"
	ErrorCategoryUnknown                ErrorCategory = "UNKNOWN"
)

// CorrectiveAction suggests what the user should do about a failure.
type CorrectiveAction string

// Corrective actions.
const (
	CorrectiveActionRetrySubmission    CorrectiveAction = "RETRY_SUBMISSION"
	CorrectiveActionContactSupport     CorrectiveAction = "CONTACT_SUPPORT"
	CorrectiveActionCannotBeDetermined CorrectiveAction = "CANNOT_BE_DETERMINED"
)

// ErrorDetails is a failure recorded against a task.
type ErrorDetails struct {
	ErrorID             string           `json:"error_id"`
	CreationTime        time.Time        `json:"creation_time"`
	ActualErrorMessage  string           `json:"actual_error_message"`
	UserFriendlyMessage string           `json:"user_friendly_message,omitempty"`
	Category            ErrorCategory    `json:"category"`
	CorrectiveAction    CorrectiveAction `json:"corrective_action"`
	RootCauseErrorIDs   []string         `json:"root_cause_error_ids,omitempty"`
}
