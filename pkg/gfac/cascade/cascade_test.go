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
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/event"
	"github.com/apache/airavata-gfac/pkg/model"
	"github.com/apache/airavata-gfac/pkg/storage"
	"github.com/apache/airavata-gfac/pkg/storage/memory"
)

const (
	_experimentID = "exp-1"
	_nodeID       = "node-1"
	_taskID       = "task-1"
	_jobID        = "1234.host"
)

type fakeCheckpointer struct {
	states []model.GfacExperimentState
	err    error
}

func (f *fakeCheckpointer) UpdateState(
	ctx context.Context,
	experimentID, taskID string,
	state model.GfacExperimentState) error {
	if f.err != nil {
		return f.err
	}
	f.states = append(f.states, state)
	return nil
}

type CascadeTestSuite struct {
	suite.Suite

	ctx         context.Context
	scope       tally.TestScope
	registry    *memory.Registry
	bus         *event.Bus
	checkpoints *fakeCheckpointer
	updater     *Updater
	now         time.Time
}

func TestCascade(t *testing.T) {
	suite.Run(t, new(CascadeTestSuite))
}

func (s *CascadeTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.scope = tally.NewTestScope("", nil)
	s.registry = memory.NewRegistry(tally.NoopScope)
	s.bus = event.NewBus(tally.NoopScope)
	s.checkpoints = &fakeCheckpointer{}
	s.now = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s.updater = New(s.registry, s.bus, s.checkpoints, s.scope)
	s.updater.now = func() time.Time { return s.now }
	s.updater.Register(s.bus)
}

func (s *CascadeTestSuite) jobIdentity() model.JobIdentity {
	return model.JobIdentity{
		JobID:          _jobID,
		TaskID:         _taskID,
		WorkflowNodeID: _nodeID,
		ExperimentID:   _experimentID,
	}
}

func (s *CascadeTestSuite) publishJobState(state model.JobState) {
	s.NoError(s.bus.Publish(s.ctx, event.JobStatusChangeRequest{
		Identity: s.jobIdentity(),
		State:    state,
	}))
}

func (s *CascadeTestSuite) states() (
	model.JobState, model.TaskState, model.WorkflowNodeState, model.ExperimentState) {
	job, err := storage.GetJob(s.ctx, s.registry, s.jobIdentity().Key())
	s.Require().NoError(err)
	task, err := storage.GetTask(s.ctx, s.registry, _taskID)
	s.Require().NoError(err)
	node, err := storage.GetWorkflowNode(s.ctx, s.registry, _nodeID)
	s.Require().NoError(err)
	exp, err := storage.GetExperiment(s.ctx, s.registry, _experimentID)
	s.Require().NoError(err)
	return job.Status.State, task.Status.State, node.Status.State, exp.Status.State
}

func (s *CascadeTestSuite) TestJobStateCascadesToExperiment() {
	var changed []model.ExperimentState
	s.bus.Subscribe(event.TopicExperimentStatusChanged, "recorder",
		func(ctx context.Context, ev event.Event) error {
			changed = append(changed, ev.(event.ExperimentStatusChanged).State)
			return nil
		})

	s.publishJobState(model.JobStateSubmitted)
	job, task, node, exp := s.states()
	s.Equal(model.JobStateSubmitted, job)
	s.Equal(model.TaskStateStarted, task)
	s.Equal(model.WorkflowNodeStateInvoked, node)
	s.Equal(model.ExperimentStateLaunched, exp)

	s.publishJobState(model.JobStateActive)
	s.publishJobState(model.JobStateComplete)
	job, task, node, exp = s.states()
	s.Equal(model.JobStateComplete, job)
	s.Equal(model.TaskStateCompleted, task)
	s.Equal(model.WorkflowNodeStateCompleted, node)
	s.Equal(model.ExperimentStateCompleted, exp)

	s.Equal([]model.ExperimentState{
		model.ExperimentStateLaunched,
		model.ExperimentStateExecuting,
		model.ExperimentStateCompleted,
	}, changed)
	s.Equal(int64(3), s.scope.Snapshot().Counters()["cascade.job_update+"].Value())
}

func (s *CascadeTestSuite) TestJobRecordCreatedWhenMissing() {
	s.publishJobState(model.JobStateQueued)

	job, err := storage.GetJob(s.ctx, s.registry, s.jobIdentity().Key())
	s.NoError(err)
	s.Equal(_jobID, job.JobID)
	s.Equal(_taskID, job.TaskID)
	s.Equal(s.now, job.Status.TimeOfChange)

	task, err := storage.GetTask(s.ctx, s.registry, _taskID)
	s.NoError(err)
	s.Equal(model.TaskStateWaiting, task.Status.State)
	s.Equal(_experimentID, task.ExperimentID)
}

func (s *CascadeTestSuite) TestCancellationGuardHoldsThroughCascade() {
	s.NoError(s.bus.Publish(s.ctx, event.ExperimentStatusChangeRequest{
		Identity: model.ExperimentIdentity{ExperimentID: _experimentID},
		State:    model.ExperimentStateCanceling,
		Reason:   "canceled by user",
	}))

	s.now = s.now.Add(time.Minute)
	s.publishJobState(model.JobStateActive)
	_, _, _, exp := s.states()
	s.Equal(model.ExperimentStateCanceling, exp)

	stored, err := storage.GetExperiment(s.ctx, s.registry, _experimentID)
	s.NoError(err)
	s.Equal("canceled by user", stored.Status.Reason)
	s.Equal(s.now, stored.Status.TimeOfChange)

	s.publishJobState(model.JobStateCanceled)
	_, task, node, exp := s.states()
	s.Equal(model.TaskStateCanceled, task)
	s.Equal(model.WorkflowNodeStateCanceled, node)
	s.Equal(model.ExperimentStateCanceled, exp)

	s.publishJobState(model.JobStateComplete)
	_, _, _, exp = s.states()
	s.Equal(model.ExperimentStateCanceled, exp)
}

func (s *CascadeTestSuite) TestUnmappedJobStateStopsAtJob() {
	s.publishJobState(model.JobStateUnknown)

	_, err := storage.GetTask(s.ctx, s.registry, _taskID)
	s.True(storage.IsNotFound(err))
}

func (s *CascadeTestSuite) TestTaskStatusChangeRequest() {
	s.NoError(s.bus.Publish(s.ctx, event.TaskStatusChangeRequest{
		Identity: model.TaskIdentity{
			TaskID:         _taskID,
			WorkflowNodeID: _nodeID,
			ExperimentID:   _experimentID,
		},
		State: model.TaskStateInputDataStaging,
	}))

	node, err := storage.GetWorkflowNode(s.ctx, s.registry, _nodeID)
	s.NoError(err)
	s.Equal(model.WorkflowNodeStateExecuting, node.Status.State)
	exp, err := storage.GetExperiment(s.ctx, s.registry, _experimentID)
	s.NoError(err)
	s.Equal(model.ExperimentStateExecuting, exp.Status.State)
}

func (s *CascadeTestSuite) TestGfacStateCheckpointed() {
	id := model.TaskIdentity{TaskID: _taskID, ExperimentID: _experimentID}
	s.NoError(s.bus.Publish(s.ctx, event.GfacStateChangeRequest{
		Identity: id,
		State:    model.GfacStateProviderInvoking,
	}))
	s.Equal([]model.GfacExperimentState{model.GfacStateProviderInvoking}, s.checkpoints.states)

	s.checkpoints.err = &common.MonitoringInconsistencyError{Path: "gfac/server/exp-1+task-1"}
	s.NoError(s.updater.UpdateGfacState(s.ctx, id, model.GfacStateJobSubmitted))
	s.Equal(int64(1), s.scope.Snapshot().Counters()["cascade.gfac_state_dropped+"].Value())

	s.checkpoints.err = errors.New("zk down")
	s.Error(s.updater.UpdateGfacState(s.ctx, id, model.GfacStateJobSubmitted))
}

func (s *CascadeTestSuite) TestGfacStateWithoutCheckpointer() {
	u := New(s.registry, s.bus, nil, tally.NoopScope)
	s.NoError(u.UpdateGfacState(s.ctx, model.TaskIdentity{}, model.GfacStateLaunched))
}

func (s *CascadeTestSuite) TestSaveErrorDetails() {
	cause := common.NewTransportError("stage-in /data/in.txt",
		model.ErrorCategoryFileSystemFailure,
		model.CorrectiveActionContactSupport,
		errors.New("permission denied"))
	s.NoError(s.updater.SaveErrorDetails(s.ctx, _taskID, cause, "Could not stage input in.txt"))
	s.NoError(s.updater.SaveErrorDetails(s.ctx, _taskID, errors.New("boom"), "Job failed"))

	task, err := storage.GetTask(s.ctx, s.registry, _taskID)
	s.NoError(err)
	s.Len(task.Errors, 2)
	s.NotEmpty(task.Errors[0].ErrorID)
	s.NotEqual(task.Errors[0].ErrorID, task.Errors[1].ErrorID)
	s.Equal("Could not stage input in.txt", task.Errors[0].UserFriendlyMessage)
	s.Equal(model.ErrorCategoryFileSystemFailure, task.Errors[0].Category)
	s.Equal(s.now, task.Errors[1].CreationTime)
}
