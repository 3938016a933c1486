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
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/libkv/store"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/common/memkv"
	"github.com/apache/airavata-gfac/pkg/gfac/cascade"
	"github.com/apache/airavata-gfac/pkg/gfac/checkpoint"
	"github.com/apache/airavata-gfac/pkg/gfac/cluster"
	clustermocks "github.com/apache/airavata-gfac/pkg/gfac/cluster/mocks"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/event"
	"github.com/apache/airavata-gfac/pkg/gfac/handler"
	"github.com/apache/airavata-gfac/pkg/gfac/monitor"
	"github.com/apache/airavata-gfac/pkg/gfac/pipeline"
	"github.com/apache/airavata-gfac/pkg/gfac/provider"
	"github.com/apache/airavata-gfac/pkg/gfac/scheduler"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
	"github.com/apache/airavata-gfac/pkg/storage"
	"github.com/apache/airavata-gfac/pkg/storage/memory"
)

const (
	_exp  = "exp-1"
	_task = "task-1"
	_node = "node-1"
)

var _serverInfo = cluster.ServerInfo{UserName: "gfac", Host: "bigred.example.org", Port: 22}

type fakeSecurity struct {
	rc cluster.RemoteCluster
}

func (f *fakeSecurity) Attach(ctx context.Context, jec *core.ExecutionContext) error {
	jec.SetSecurityContext(security.NewSSHContext(
		_serverInfo,
		cluster.Credentials{Password: "secret"},
		func() (cluster.RemoteCluster, error) { return f.rc, nil }))
	return nil
}

// collectOutputs stands in for output staging.
type collectOutputs struct {
	invoked *atomic.Int32
}

func (h *collectOutputs) Initialize(map[string]string) error { return nil }

func (h *collectOutputs) Invoke(ctx context.Context, jec *core.ExecutionContext) error {
	h.invoked.Inc()
	jec.SetOutput(model.Parameter{
		Name:  "result",
		Value: jec.Deployment.OutputDir + "/result.dat",
		Type:  model.ParameterTypeURI,
	})
	return nil
}

// jobScript plays back job states; the last one repeats. UNKNOWN is
// reported as a failed status query.
type jobScript struct {
	sync.Mutex
	states []model.JobState
}

func (j *jobScript) next(ctx context.Context, jobID string) (model.JobState, error) {
	j.Lock()
	defer j.Unlock()
	state := j.states[0]
	if len(j.states) > 1 {
		j.states = j.states[1:]
	}
	if state == model.JobStateUnknown {
		return state, errors.New("qstat: connection reset")
	}
	return state, nil
}

func (j *jobScript) set(states ...model.JobState) {
	j.Lock()
	defer j.Unlock()
	j.states = states
}

// statusLog records the persisted states of every level of the hierarchy
// in the order the cascade wrote them.
type statusLog struct {
	sync.Mutex
	tasks       []model.TaskState
	nodes       []model.WorkflowNodeState
	experiments []model.ExperimentState
}

func (l *statusLog) register(bus *event.Bus) {
	bus.Subscribe(event.TopicTaskStatusChanged, "status-log",
		func(ctx context.Context, ev event.Event) error {
			l.Lock()
			defer l.Unlock()
			l.tasks = append(l.tasks, ev.(event.TaskStatusChanged).State)
			return nil
		})
	bus.Subscribe(event.TopicWorkflowNodeStatusChanged, "status-log",
		func(ctx context.Context, ev event.Event) error {
			l.Lock()
			defer l.Unlock()
			l.nodes = append(l.nodes, ev.(event.WorkflowNodeStatusChanged).State)
			return nil
		})
	bus.Subscribe(event.TopicExperimentStatusChanged, "status-log",
		func(ctx context.Context, ev event.Event) error {
			l.Lock()
			defer l.Unlock()
			l.experiments = append(l.experiments, ev.(event.ExperimentStatusChanged).State)
			return nil
		})
}

func (l *statusLog) snapshot() (
	[]model.TaskState,
	[]model.WorkflowNodeState,
	[]model.ExperimentState) {
	l.Lock()
	defer l.Unlock()
	return append([]model.TaskState(nil), l.tasks...),
		append([]model.WorkflowNodeState(nil), l.nodes...),
		append([]model.ExperimentState(nil), l.experiments...)
}

type EngineTestSuite struct {
	suite.Suite

	ctx      context.Context
	ctrl     *gomock.Controller
	rc       *clustermocks.MockRemoteCluster
	registry *memory.Registry
	kv       *memkv.Store
	store    *checkpoint.Store
	bus      *event.Bus
	updater  *cascade.Updater
	monitor  *monitor.Monitor
	outFlow  *atomic.Int32
	script   *jobScript
	statuses *statusLog
	scope    tally.TestScope
	deps     Dependencies
	engine   *Engine
}

func TestEngine(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.rc = clustermocks.NewMockRemoteCluster(s.ctrl)
	s.rc.EXPECT().ServerInfo().Return(_serverInfo).AnyTimes()
	s.script = &jobScript{states: []model.JobState{model.JobStateQueued}}
	s.rc.EXPECT().JobStatus(gomock.Any(), gomock.Any()).DoAndReturn(s.script.next).AnyTimes()

	s.registry = memory.NewRegistry(tally.NoopScope)
	s.scope = tally.NewTestScope("", nil)
	s.kv = memkv.New()
	s.store = checkpoint.NewWithDialer(checkpoint.Config{
		Root:             "/airavata/gfac-experiments",
		ServerName:       "gfac-1",
		ReconnectTimeout: time.Second,
	}, func() (store.Store, error) { return s.kv, nil }, tally.NoopScope)
	s.bus = event.NewBus(tally.NoopScope)
	s.updater = cascade.New(s.registry, s.bus, s.store, tally.NoopScope)
	s.updater.Register(s.bus)
	s.statuses = &statusLog{}
	s.statuses.register(s.bus)
	s.monitor = monitor.New(monitor.Config{
		PollInterval:   5 * time.Millisecond,
		HostQueryRate:  1000,
		HostQueryBurst: 10,
	}, s.bus, tally.NoopScope)

	reg := pipeline.NewRegistry()
	s.Require().NoError(handler.Register(reg, handler.Dependencies{
		Registry: s.registry,
		Recorder: s.updater,
	}))
	s.Require().NoError(provider.Register(reg, provider.Dependencies{
		Registry:  s.registry,
		Publisher: s.bus,
		Monitor:   s.monitor,
	}))
	s.outFlow = atomic.NewInt32(0)
	s.Require().NoError(reg.RegisterHandler("collect-outputs", func() core.Handler {
		return &collectOutputs{invoked: s.outFlow}
	}))
	pl, err := pipeline.Build(reg, pipeline.Config{
		InFlow: []pipeline.HandlerConfig{
			{Name: handler.DescriptorNormalizer, Properties: map[string]string{"scratch_dir": "/scratch"}},
			{Name: handler.SSHDirectorySetup},
		},
		OutFlow:   []pipeline.HandlerConfig{{Name: "collect-outputs"}},
		Providers: map[string]string{"ssh": "hpc"},
	}, NewPipelineHooks(s.store), tally.NoopScope)
	s.Require().NoError(err)

	catalog, err := scheduler.NewStaticCatalog(scheduler.CatalogConfig{
		Hosts: []model.HostDescription{{
			Name:    "bigred",
			Address: "bigred.example.org",
			Type:    model.HostTypeSSH,
			SSH:     &model.SSHHost{HPC: true, JobManager: model.JobManagerPBS},
		}},
		Applications: []scheduler.ApplicationConfig{
			{
				ID:          "echo",
				Deployments: []scheduler.DeploymentConfig{{
					Host:                  "bigred",
					ApplicationDeployment: model.ApplicationDeployment{ExecutablePath: "/bin/echo"},
				}},
			},
			{ID: "unplaced"},
		},
	})
	s.Require().NoError(err)
	policy, err := scheduler.NewPolicy(scheduler.FirstAvailable, nil)
	s.Require().NoError(err)

	s.deps = Dependencies{
		Registry:    s.registry,
		Publisher:   s.bus,
		Checkpoints: s.store,
		Scheduler:   scheduler.New(catalog, policy, pl, tally.NoopScope),
		Security:    &fakeSecurity{rc: s.rc},
		Pipeline:    pl,
		Monitor:     s.monitor,
		Recorder:    s.updater,
		Scope:       s.scope,
	}
	s.engine, err = New(Config{Workers: 2}, s.deps)
	s.Require().NoError(err)

	s.seed("echo")
}

func (s *EngineTestSuite) TearDownTest() {
	s.engine.Stop()
	s.ctrl.Finish()
}

func (s *EngineTestSuite) seed(applicationID string) {
	s.Require().NoError(s.registry.Update(s.ctx, storage.EntityExperiment, &model.Experiment{
		ExperimentID: _exp,
		GatewayID:    "default",
		UserName:     "alice",
	}, _exp))
	s.Require().NoError(s.registry.Update(s.ctx, storage.EntityWorkflowNodeDetails,
		&model.WorkflowNodeDetails{NodeInstanceID: _node, ExperimentID: _exp}, _node))
	s.Require().NoError(s.registry.Update(s.ctx, storage.EntityTaskDetails, &model.TaskDetails{
		TaskID:         _task,
		ExperimentID:   _exp,
		WorkflowNodeID: _node,
		ApplicationID:  applicationID,
		Inputs: []model.Parameter{
			{Name: "greeting", Value: "hello", Type: model.ParameterTypeString},
		},
	}, _task))
}

func (s *EngineTestSuite) expectDirectories() {
	s.rc.EXPECT().MakeDirectory(gomock.Any(), gomock.Any()).Return(nil).Times(3)
}

func (s *EngineTestSuite) waitFinished() {
	s.Eventually(func() bool {
		return !s.engine.InFlight(_exp, _task)
	}, 5*time.Second, time.Millisecond)
}

func (s *EngineTestSuite) task() *model.TaskDetails {
	task, err := storage.GetTask(s.ctx, s.registry, _task)
	s.Require().NoError(err)
	return task
}

func (s *EngineTestSuite) experiment() *model.Experiment {
	exp, err := storage.GetExperiment(s.ctx, s.registry, _exp)
	s.Require().NoError(err)
	return exp
}

func (s *EngineTestSuite) job(jobID string) *model.JobDetails {
	job, err := storage.GetJob(s.ctx, s.registry, model.JobKey(_task, jobID))
	s.Require().NoError(err)
	return job
}

func (s *EngineTestSuite) checkpoints() []checkpoint.ExperimentKey {
	keys, err := s.store.ListExperiments(s.ctx)
	s.Require().NoError(err)
	return keys
}

func (s *EngineTestSuite) TestNewValidatesDependencies() {
	_, err := New(Config{}, Dependencies{Registry: s.registry})
	s.Error(err)
	s.True(common.IsConfigurationError(err))
	s.Contains(err.Error(), "scheduler")
}

func (s *EngineTestSuite) TestSubmitBeforeStart() {
	s.Error(s.engine.Submit(s.ctx, _exp, _task, "token-1"))
}

func (s *EngineTestSuite) TestSubmittedJobRunsToCompletion() {
	s.expectDirectories()
	s.rc.EXPECT().SubmitBatchJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, jd *cluster.JobDescriptor) (string, error) {
			s.Equal("/bin/echo", jd.Executable)
			return "42", nil
		})
	s.script.set(model.JobStateActive, model.JobStateComplete)

	s.Require().NoError(s.engine.Start(s.ctx))
	s.Require().NoError(s.engine.Submit(s.ctx, _exp, _task, "token-1"))
	s.True(s.engine.InFlight(_exp, _task))
	s.waitFinished()

	// SUBMITTED, ACTIVE and COMPLETE each move the whole hierarchy once;
	// the out-flow never moves a finished task back
	tasks, nodes, experiments := s.statuses.snapshot()
	s.Equal([]model.TaskState{
		model.TaskStateStarted,
		model.TaskStateExecuting,
		model.TaskStateCompleted,
	}, tasks)
	s.Equal([]model.WorkflowNodeState{
		model.WorkflowNodeStateInvoked,
		model.WorkflowNodeStateExecuting,
		model.WorkflowNodeStateCompleted,
	}, nodes)
	s.Equal([]model.ExperimentState{
		model.ExperimentStateLaunched,
		model.ExperimentStateLaunched,
		model.ExperimentStateExecuting,
		model.ExperimentStateCompleted,
	}, experiments)

	s.Equal(model.JobStateComplete, s.job("42").Status.State)
	s.Equal("bigred", s.job("42").ComputeResource)

	task := s.task()
	s.Equal(model.TaskStateCompleted, task.Status.State)
	s.Equal([]string{"42"}, task.JobIDs)
	s.True(strings.HasPrefix(task.WorkingDir, "/scratch/echo_"))
	s.Empty(task.Errors)

	node, err := storage.GetWorkflowNode(s.ctx, s.registry, _node)
	s.Require().NoError(err)
	s.Equal(model.WorkflowNodeStateCompleted, node.Status.State)
	s.Equal(model.ExperimentStateCompleted, s.experiment().Status.State)

	s.Equal(int32(1), s.outFlow.Load())
	s.Empty(s.checkpoints())
	s.False(s.monitor.IsMonitoring("42"))
	s.Equal(int64(1), s.scope.Snapshot().Counters()["engine.completed+"].Value())
}

func (s *EngineTestSuite) TestRepeatedUnknownFailsSubmission() {
	s.expectDirectories()
	s.rc.EXPECT().SubmitBatchJob(gomock.Any(), gomock.Any()).Return("42", nil)
	s.script.set(model.JobStateActive, model.JobStateUnknown)

	s.Require().NoError(s.engine.Start(s.ctx))
	s.Require().NoError(s.engine.Submit(s.ctx, _exp, _task, "token-1"))
	s.waitFinished()

	s.Equal(model.JobStateFailed, s.job("42").Status.State)
	task := s.task()
	s.Equal(model.TaskStateFailed, task.Status.State)
	s.Require().Len(task.Errors, 1)
	s.Equal("Task failed", task.Errors[0].UserFriendlyMessage)

	exp := s.experiment()
	s.Equal(model.ExperimentStateFailed, exp.Status.State)
	s.Equal("Task failed", exp.Status.Reason)

	s.Zero(s.outFlow.Load())
	s.Empty(s.checkpoints())
	s.Equal(int64(1), s.scope.Snapshot().Counters()["engine.failed+"].Value())
}

func (s *EngineTestSuite) TestInFlowFailureRecordsErrorOnce() {
	s.rc.EXPECT().MakeDirectory(gomock.Any(), gomock.Any()).Return(errors.New("permission denied"))

	s.Require().NoError(s.engine.Start(s.ctx))
	s.Require().NoError(s.engine.Submit(s.ctx, _exp, _task, "token-1"))
	s.waitFinished()

	task := s.task()
	s.Equal(model.TaskStateFailed, task.Status.State)
	s.Empty(task.JobIDs)
	s.Require().Len(task.Errors, 1)
	s.Equal(model.ErrorCategoryFileSystemFailure, task.Errors[0].Category)

	exp := s.experiment()
	s.Equal(model.ExperimentStateFailed, exp.Status.State)
	s.Equal("Task failed in in-flow "+handler.SSHDirectorySetup, exp.Status.Reason)
	s.Empty(s.checkpoints())
}

func (s *EngineTestSuite) TestNoEligibleHost() {
	s.seed("unplaced")

	s.Require().NoError(s.engine.Start(s.ctx))
	s.Require().NoError(s.engine.Submit(s.ctx, _exp, _task, "token-1"))
	s.waitFinished()

	exp := s.experiment()
	s.Equal(model.ExperimentStateFailed, exp.Status.State)
	s.Contains(exp.Status.Reason, "unplaced")
	s.Len(s.task().Errors, 1)
	s.Empty(s.checkpoints())
}

func (s *EngineTestSuite) TestRelaunchReattachesMonitor() {
	// state left behind by a process that stopped after submitting job 42
	s.Require().NoError(s.registry.Update(s.ctx, storage.EntityJobDetails, &model.JobDetails{
		JobID:           "42",
		TaskID:          _task,
		ComputeResource: "bigred",
		Status:          &model.JobStatus{State: model.JobStateSubmitted},
	}, model.JobKey(_task, "42")))
	task := s.task()
	task.JobIDs = []string{"42"}
	task.WorkingDir = "/scratch/echo_1"
	s.Require().NoError(s.registry.Update(s.ctx, storage.EntityTaskDetails, task, _task))

	s.Require().NoError(s.store.RegisterExperiment(s.ctx, _exp, _task, "token-1"))
	s.Require().NoError(s.store.UpdateState(s.ctx, _exp, _task, model.GfacStateJobSubmitted))
	for _, plugin := range []string{handler.DescriptorNormalizer, handler.SSHDirectorySetup} {
		s.Require().NoError(s.store.UpdatePluginState(s.ctx, _exp, _task, plugin, model.PluginStateCompleted))
	}
	s.Require().NoError(s.store.UpdatePluginState(s.ctx, _exp, _task, "hpc", model.PluginStateInvoking))

	// no submission and no directory setup is expected
	s.script.set(model.JobStateActive, model.JobStateComplete)

	s.Require().NoError(s.engine.Start(s.ctx))
	s.True(s.engine.InFlight(_exp, _task))
	s.waitFinished()

	task = s.task()
	s.Equal(model.TaskStateCompleted, task.Status.State)
	s.Equal([]string{"42"}, task.JobIDs)
	s.Equal(model.JobStateComplete, s.job("42").Status.State)
	s.Equal(int32(1), s.outFlow.Load())
	s.Empty(s.checkpoints())
	s.Equal(int64(1), s.scope.Snapshot().Counters()["engine.relaunched+"].Value())
}

func (s *EngineTestSuite) TestRelaunchAfterOutFlowOnlyCleansUp() {
	s.Require().NoError(s.store.RegisterExperiment(s.ctx, _exp, _task, "token-1"))
	s.Require().NoError(s.store.UpdateState(s.ctx, _exp, _task, model.GfacStateOutHandlersInvoked))

	s.Require().NoError(s.engine.Start(s.ctx))
	s.waitFinished()

	s.Zero(s.outFlow.Load())
	s.Empty(s.checkpoints())
}

func (s *EngineTestSuite) TestWatcherLaunchesRegisteredExperiments() {
	s.expectDirectories()
	s.rc.EXPECT().SubmitBatchJob(gomock.Any(), gomock.Any()).Return("42", nil)
	s.script.set(model.JobStateActive, model.JobStateComplete)

	var err error
	s.engine, err = New(Config{Workers: 2, WatchLaunchRequests: true}, s.deps)
	s.Require().NoError(err)
	s.Require().NoError(s.engine.Start(s.ctx))

	// another process registers the launch request
	s.Require().NoError(s.store.RegisterExperiment(s.ctx, _exp, _task, "token-1"))

	s.Eventually(func() bool {
		return s.outFlow.Load() == 1 && !s.engine.InFlight(_exp, _task)
	}, 5*time.Second, time.Millisecond)
	s.Equal(model.TaskStateCompleted, s.task().Status.State)
	s.Empty(s.checkpoints())
}

func (s *EngineTestSuite) TestCancelRunningJob() {
	s.expectDirectories()
	s.rc.EXPECT().SubmitBatchJob(gomock.Any(), gomock.Any()).Return("42", nil)
	s.script.set(model.JobStateActive)
	s.rc.EXPECT().CancelJob(gomock.Any(), "42").DoAndReturn(
		func(ctx context.Context, jobID string) error {
			s.script.set(model.JobStateCanceled)
			return nil
		})

	s.Require().NoError(s.engine.Start(s.ctx))
	s.Require().NoError(s.engine.Submit(s.ctx, _exp, _task, "token-1"))
	s.Eventually(func() bool {
		job, err := storage.GetJob(s.ctx, s.registry, model.JobKey(_task, "42"))
		return err == nil && job.Status != nil && job.Status.State == model.JobStateActive
	}, 5*time.Second, time.Millisecond)

	s.Require().NoError(s.engine.Cancel(s.ctx, _exp, _task))
	s.waitFinished()

	s.Equal(model.JobStateCanceled, s.job("42").Status.State)
	s.Equal(model.TaskStateCanceled, s.task().Status.State)
	s.Equal(model.ExperimentStateCanceled, s.experiment().Status.State)
	s.Equal(int32(1), s.outFlow.Load())
	s.Empty(s.checkpoints())

	counters := s.scope.Snapshot().Counters()
	s.Equal(int64(1), counters["engine.canceled+"].Value())
	s.Equal(int64(1), counters["engine.cancel_requested+"].Value())
}

func (s *EngineTestSuite) TestCancelNotInFlight() {
	s.Require().NoError(s.engine.Start(s.ctx))
	s.Error(s.engine.Cancel(s.ctx, _exp, _task))
}
