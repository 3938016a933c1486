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

// Package cascade persists status changes and propagates them up the
// job, task, workflow node and experiment hierarchy.
package cascade

import (
	"context"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/event"
	"github.com/apache/airavata-gfac/pkg/model"
	"github.com/apache/airavata-gfac/pkg/storage"
)

// Checkpointer stores the internal state of a submission.
type Checkpointer interface {
	UpdateState(ctx context.Context, experimentID, taskID string, state model.GfacExperimentState) error
}

// Updater holds the updators of every level of the hierarchy.
type Updater struct {
	registry    storage.Registry
	publisher   event.Publisher
	checkpoints Checkpointer
	now         func() time.Time
	metrics     *Metrics
}

// New returns an Updater. checkpoints may be nil when submissions are not
// checkpointed.
func New(
	registry storage.Registry,
	publisher event.Publisher,
	checkpoints Checkpointer,
	scope tally.Scope) *Updater {
	return &Updater{
		registry:    registry,
		publisher:   publisher,
		checkpoints: checkpoints,
		now:         time.Now,
		metrics:     NewMetrics(scope.SubScope("cascade")),
	}
}

// Register subscribes the updators to bus.
func (u *Updater) Register(bus *event.Bus) {
	bus.Subscribe(event.TopicJobStatusChangeRequest, "job-status-updator",
		func(ctx context.Context, ev event.Event) error {
			e := ev.(event.JobStatusChangeRequest)
			return u.UpdateJobStatus(ctx, e.Identity, e.State, e.Monitor)
		})
	bus.Subscribe(event.TopicJobStatusChanged, "task-status-updator",
		func(ctx context.Context, ev event.Event) error {
			e := ev.(event.JobStatusChanged)
			state, ok := model.TaskStateForJob(e.State)
			if !ok {
				return nil
			}
			return u.UpdateTaskStatus(ctx, model.TaskIdentity{
				TaskID:         e.Identity.TaskID,
				WorkflowNodeID: e.Identity.WorkflowNodeID,
				ExperimentID:   e.Identity.ExperimentID,
			}, state)
		})
	bus.Subscribe(event.TopicTaskStatusChangeRequest, "task-status-updator",
		func(ctx context.Context, ev event.Event) error {
			e := ev.(event.TaskStatusChangeRequest)
			return u.UpdateTaskStatus(ctx, e.Identity, e.State)
		})
	bus.Subscribe(event.TopicTaskStatusChanged, "workflow-node-status-updator",
		func(ctx context.Context, ev event.Event) error {
			e := ev.(event.TaskStatusChanged)
			state, ok := model.WorkflowNodeStateForTask(e.State)
			if !ok || e.Identity.WorkflowNodeID == "" {
				return nil
			}
			return u.UpdateWorkflowNodeStatus(ctx, model.WorkflowNodeIdentity{
				WorkflowNodeID: e.Identity.WorkflowNodeID,
				ExperimentID:   e.Identity.ExperimentID,
			}, state)
		})
	bus.Subscribe(event.TopicWorkflowNodeStatusChanged, "experiment-status-updator",
		func(ctx context.Context, ev event.Event) error {
			e := ev.(event.WorkflowNodeStatusChanged)
			state, ok := model.ExperimentStateForWorkflowNode(e.State)
			if !ok {
				return nil
			}
			return u.UpdateExperimentStatus(ctx,
				model.ExperimentIdentity{ExperimentID: e.Identity.ExperimentID}, state, "")
		})
	bus.Subscribe(event.TopicExperimentStatusChangeRequest, "experiment-status-updator",
		func(ctx context.Context, ev event.Event) error {
			e := ev.(event.ExperimentStatusChangeRequest)
			return u.UpdateExperimentStatus(ctx, e.Identity, e.State, e.Reason)
		})
	bus.Subscribe(event.TopicGfacStateChangeRequest, "gfac-state-updator",
		func(ctx context.Context, ev event.Event) error {
			e := ev.(event.GfacStateChangeRequest)
			return u.UpdateGfacState(ctx, e.Identity, e.State)
		})
}

// UpdateJobStatus persists the state of a job and publishes
// JobStatusChanged.
func (u *Updater) UpdateJobStatus(
	ctx context.Context,
	id model.JobIdentity,
	state model.JobState,
	monitor *model.MonitorID) error {
	job, err := storage.GetJob(ctx, u.registry, id.Key())
	if storage.IsNotFound(err) {
		job = &model.JobDetails{JobID: id.JobID, TaskID: id.TaskID, CreationTime: u.now()}
	} else if err != nil {
		u.metrics.JobUpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to read job %s", id.Key())
	}

	job.Status = model.NextJobStatus(job.Status, state, u.now())
	if err := u.registry.Update(ctx, storage.EntityJobDetails, job, id.Key()); err != nil {
		u.metrics.JobUpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to update job %s", id.Key())
	}
	u.metrics.JobUpdate.Inc(1)
	log.WithFields(log.Fields{
		common.ExperimentIDLogField: id.ExperimentID,
		common.TaskIDLogField:       id.TaskID,
		common.JobIDLogField:        id.JobID,
		"state":                     job.Status.State.String(),
	}).Info("Job status updated")

	return u.publisher.Publish(ctx, event.JobStatusChanged{
		Identity: id,
		State:    job.Status.State,
		Monitor:  monitor,
	})
}

// UpdateTaskStatus persists the state of a task and publishes
// TaskStatusChanged.
func (u *Updater) UpdateTaskStatus(
	ctx context.Context,
	id model.TaskIdentity,
	state model.TaskState) error {
	task, err := storage.GetTask(ctx, u.registry, id.TaskID)
	if storage.IsNotFound(err) {
		task = &model.TaskDetails{
			TaskID:         id.TaskID,
			ExperimentID:   id.ExperimentID,
			WorkflowNodeID: id.WorkflowNodeID,
		}
	} else if err != nil {
		u.metrics.TaskUpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to read task %s", id.TaskID)
	}

	if id.WorkflowNodeID == "" {
		id.WorkflowNodeID = task.WorkflowNodeID
	}

	task.Status = model.NextTaskStatus(task.Status, state, u.now())
	if err := u.registry.Update(ctx, storage.EntityTaskDetails, task, id.TaskID); err != nil {
		u.metrics.TaskUpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to update task %s", id.TaskID)
	}
	u.metrics.TaskUpdate.Inc(1)
	log.WithFields(log.Fields{
		common.ExperimentIDLogField: id.ExperimentID,
		common.TaskIDLogField:       id.TaskID,
		"state":                     task.Status.State.String(),
	}).Info("Task status updated")

	return u.publisher.Publish(ctx, event.TaskStatusChanged{
		Identity: id,
		State:    task.Status.State,
	})
}

// UpdateWorkflowNodeStatus persists the state of a workflow node and
// publishes WorkflowNodeStatusChanged.
func (u *Updater) UpdateWorkflowNodeStatus(
	ctx context.Context,
	id model.WorkflowNodeIdentity,
	state model.WorkflowNodeState) error {
	node, err := storage.GetWorkflowNode(ctx, u.registry, id.WorkflowNodeID)
	if storage.IsNotFound(err) {
		node = &model.WorkflowNodeDetails{
			NodeInstanceID: id.WorkflowNodeID,
			ExperimentID:   id.ExperimentID,
		}
	} else if err != nil {
		u.metrics.NodeUpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to read workflow node %s", id.WorkflowNodeID)
	}

	node.Status = model.NextWorkflowNodeStatus(node.Status, state, u.now())
	if err := u.registry.Update(
		ctx, storage.EntityWorkflowNodeDetails, node, id.WorkflowNodeID); err != nil {
		u.metrics.NodeUpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to update workflow node %s", id.WorkflowNodeID)
	}
	u.metrics.NodeUpdate.Inc(1)
	log.WithFields(log.Fields{
		common.ExperimentIDLogField: id.ExperimentID,
		"workflow_node_id":          id.WorkflowNodeID,
		"state":                     node.Status.State.String(),
	}).Info("Workflow node status updated")

	return u.publisher.Publish(ctx, event.WorkflowNodeStatusChanged{
		Identity: id,
		State:    node.Status.State,
	})
}

// UpdateExperimentStatus persists the state of an experiment and publishes
// ExperimentStatusChanged.
func (u *Updater) UpdateExperimentStatus(
	ctx context.Context,
	id model.ExperimentIdentity,
	state model.ExperimentState,
	reason string) error {
	exp, err := storage.GetExperiment(ctx, u.registry, id.ExperimentID)
	if storage.IsNotFound(err) {
		exp = &model.Experiment{ExperimentID: id.ExperimentID}
	} else if err != nil {
		u.metrics.ExperimentUpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to read experiment %s", id.ExperimentID)
	}

	exp.Status = model.NextExperimentStatus(exp.Status, state, reason, u.now())
	if err := u.registry.Update(ctx, storage.EntityExperiment, exp, id.ExperimentID); err != nil {
		u.metrics.ExperimentUpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to update experiment %s", id.ExperimentID)
	}
	u.metrics.ExperimentUpdate.Inc(1)
	log.WithFields(log.Fields{
		common.ExperimentIDLogField: id.ExperimentID,
		"state":                     exp.Status.State.String(),
	}).Info("Experiment status updated")

	return u.publisher.Publish(ctx, event.ExperimentStatusChanged{
		Identity: id,
		State:    exp.Status.State,
	})
}

// UpdateGfacState checkpoints the internal state of a submission. Updates
// for experiments missing from the coordination store are dropped.
func (u *Updater) UpdateGfacState(
	ctx context.Context,
	id model.TaskIdentity,
	state model.GfacExperimentState) error {
	if u.checkpoints == nil {
		return nil
	}
	err := u.checkpoints.UpdateState(ctx, id.ExperimentID, id.TaskID, state)
	if err == nil {
		u.metrics.GfacStateUpdate.Inc(1)
		return nil
	}
	if common.IsMonitoringInconsistency(err) {
		u.metrics.GfacStateDropped.Inc(1)
		return nil
	}
	u.metrics.GfacStateUpdateFail.Inc(1)
	return err
}

// SaveErrorDetails appends a failure to the error list of a task.
func (u *Updater) SaveErrorDetails(
	ctx context.Context,
	taskID string,
	cause error,
	userMessage string) error {
	task, err := storage.GetTask(ctx, u.registry, taskID)
	if storage.IsNotFound(err) {
		task = &model.TaskDetails{TaskID: taskID}
	} else if err != nil {
		return errors.Wrapf(err, "failed to read task %s", taskID)
	}

	category, action := common.Classify(cause)
	task.Errors = append(task.Errors, model.ErrorDetails{
		ErrorID:             uuid.New(),
		CreationTime:        u.now(),
		ActualErrorMessage:  cause.Error(),
		UserFriendlyMessage: userMessage,
		Category:            category,
		CorrectiveAction:    action,
	})
	if err := u.registry.Update(ctx, storage.EntityTaskDetails, task, taskID); err != nil {
		return errors.Wrapf(err, "failed to record error for task %s", taskID)
	}
	u.metrics.ErrorsRecorded.Inc(1)
	return nil
}
