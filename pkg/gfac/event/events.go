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

package event

import (
	"fmt"

	"github.com/apache/airavata-gfac/pkg/model"
)

// Topic identifies the kind of an event.
type Topic int

// Topics carried by the bus.
const (
	TopicJobStatusChangeRequest Topic = iota + 1
	TopicJobStatusChanged
	TopicTaskStatusChangeRequest
	TopicTaskStatusChanged
	TopicWorkflowNodeStatusChanged
	TopicExperimentStatusChangeRequest
	TopicExperimentStatusChanged
	TopicGfacStateChangeRequest
)

func (t Topic) String() string {
	switch t {
	case TopicJobStatusChangeRequest:
		return "job_status_change_request"
	case TopicJobStatusChanged:
		return "job_status_changed"
	case TopicTaskStatusChangeRequest:
		return "task_status_change_request"
	case TopicTaskStatusChanged:
		return "task_status_changed"
	case TopicWorkflowNodeStatusChanged:
		return "workflow_node_status_changed"
	case TopicExperimentStatusChangeRequest:
		return "experiment_status_change_request"
	case TopicExperimentStatusChanged:
		return "experiment_status_changed"
	case TopicGfacStateChangeRequest:
		return "gfac_state_change_request"
	}
	return fmt.Sprintf("Topic(%d)", int(t))
}

// Event is a message on the bus.
type Event interface {
	Topic() Topic
}

// JobStatusChangeRequest asks for the status of a job to be changed.
// Monitor is set when the change was observed by the job monitor.
type JobStatusChangeRequest struct {
	Identity model.JobIdentity
	State    model.JobState
	Monitor  *model.MonitorID
}

// Topic implements Event.
func (JobStatusChangeRequest) Topic() Topic { return TopicJobStatusChangeRequest }

// JobStatusChanged is published after a job status was persisted.
type JobStatusChanged struct {
	Identity model.JobIdentity
	State    model.JobState
	Monitor  *model.MonitorID
}

// Topic implements Event.
func (JobStatusChanged) Topic() Topic { return TopicJobStatusChanged }

// TaskStatusChangeRequest asks for the status of a task to be changed.
type TaskStatusChangeRequest struct {
	Identity model.TaskIdentity
	State    model.TaskState
}

// Topic implements Event.
func (TaskStatusChangeRequest) Topic() Topic { return TopicTaskStatusChangeRequest }

// TaskStatusChanged is published after a task status was persisted.
type TaskStatusChanged struct {
	Identity model.TaskIdentity
	State    model.TaskState
}

// Topic implements Event.
func (TaskStatusChanged) Topic() Topic { return TopicTaskStatusChanged }

// WorkflowNodeStatusChanged is published after a workflow node status was
// persisted.
type WorkflowNodeStatusChanged struct {
	Identity model.WorkflowNodeIdentity
	State    model.WorkflowNodeState
}

// Topic implements Event.
func (WorkflowNodeStatusChanged) Topic() Topic { return TopicWorkflowNodeStatusChanged }

// ExperimentStatusChangeRequest asks for the status of an experiment to be
// changed. Reason is shown to the user.
type ExperimentStatusChangeRequest struct {
	Identity model.ExperimentIdentity
	State    model.ExperimentState
	Reason   string
}

// Topic implements Event.
func (ExperimentStatusChangeRequest) Topic() Topic { return TopicExperimentStatusChangeRequest }

// ExperimentStatusChanged is published after an experiment status was
// persisted.
type ExperimentStatusChanged struct {
	Identity model.ExperimentIdentity
	State    model.ExperimentState
}

// Topic implements Event.
func (ExperimentStatusChanged) Topic() Topic { return TopicExperimentStatusChanged }

// GfacStateChangeRequest reports progress of a submission inside the engine.
type GfacStateChangeRequest struct {
	Identity model.TaskIdentity
	State    model.GfacExperimentState
	Monitor  *model.MonitorID
}

// Topic implements Event.
func (GfacStateChangeRequest) Topic() Topic { return TopicGfacStateChangeRequest }
