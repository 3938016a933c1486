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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/gfac/cluster"
	clustermocks "github.com/apache/airavata-gfac/pkg/gfac/cluster/mocks"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/event"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
)

const _waitTimeout = 5 * time.Second

type recordingPublisher struct {
	sync.Mutex
	states []model.JobState
}

func (p *recordingPublisher) Publish(ctx context.Context, ev event.Event) error {
	p.Lock()
	defer p.Unlock()
	if e, ok := ev.(event.JobStatusChangeRequest); ok {
		p.states = append(p.states, e.State)
	}
	return nil
}

func (p *recordingPublisher) published() []model.JobState {
	p.Lock()
	defer p.Unlock()
	return append([]model.JobState(nil), p.states...)
}

type fakeCompletion struct {
	outFlow chan string
	failed  chan string
}

func newFakeCompletion() *fakeCompletion {
	return &fakeCompletion{
		outFlow: make(chan string, 4),
		failed:  make(chan string, 4),
	}
}

func (c *fakeCompletion) RunOutFlow(ctx context.Context, jec *core.ExecutionContext) error {
	c.outFlow <- jec.TaskID
	return nil
}

func (c *fakeCompletion) JobFailed(ctx context.Context, jec *core.ExecutionContext, cause error) {
	c.failed <- jec.TaskID
}

type MonitorTestSuite struct {
	suite.Suite

	ctrl       *gomock.Controller
	rc         *clustermocks.MockRemoteCluster
	publisher  *recordingPublisher
	completion *fakeCompletion
	scope      tally.TestScope
	monitor    *Monitor
}

func TestMonitor(t *testing.T) {
	suite.Run(t, new(MonitorTestSuite))
}

func (s *MonitorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.rc = clustermocks.NewMockRemoteCluster(s.ctrl)
	s.rc.EXPECT().ServerInfo().
		Return(cluster.ServerInfo{UserName: "gfac", Host: "login.example.org", Port: 22}).
		AnyTimes()
	s.publisher = &recordingPublisher{}
	s.completion = newFakeCompletion()
	s.scope = tally.NewTestScope("", nil)
	s.monitor = New(Config{
		PollInterval:      5 * time.Millisecond,
		CancelGracePeriod: 20 * time.Millisecond,
		HostQueryRate:     1000,
		HostQueryBurst:    10,
	}, s.publisher, s.scope)
	s.monitor.Start(s.completion)
}

func (s *MonitorTestSuite) TearDownTest() {
	s.monitor.Stop()
	s.ctrl.Finish()
}

func (s *MonitorTestSuite) jec() *core.ExecutionContext {
	jec := core.NewExecutionContext("exp-1", "task-1")
	jec.Host = &model.HostDescription{
		Name:    "bigred",
		Address: "login.example.org",
		Type:    model.HostTypeSSH,
	}
	jec.Deployment = &model.ApplicationDeployment{OutputDir: "/scratch/out"}
	jec.SetSecurityContext(security.NewSSHContext(
		cluster.ServerInfo{UserName: "gfac", Host: "login.example.org", Port: 22},
		cluster.Credentials{Password: "secret"},
		func() (cluster.RemoteCluster, error) { return s.rc, nil },
	))
	return jec
}

// script makes JobStatus return states in order and repeat the last one.
func (s *MonitorTestSuite) script(states ...model.JobState) {
	var mu sync.Mutex
	i := 0
	s.rc.EXPECT().JobStatus(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, jobID string) (model.JobState, error) {
			mu.Lock()
			defer mu.Unlock()
			st := states[i]
			if i < len(states)-1 {
				i++
			}
			if st == model.JobStateUnknown {
				return model.JobStateUnknown, errors.New("qstat: unknown job id")
			}
			return st, nil
		}).AnyTimes()
}

func (s *MonitorTestSuite) waitFor(ch chan string) string {
	select {
	case id := <-ch:
		return id
	case <-time.After(_waitTimeout):
		s.FailNow("timed out waiting for completion")
		return ""
	}
}

func (s *MonitorTestSuite) TestCompletedJobRunsOutFlow() {
	s.script(model.JobStateQueued, model.JobStateActive, model.JobStateComplete)
	s.NoError(s.monitor.Monitor("42", s.jec()))
	s.True(s.monitor.IsMonitoring("42"))

	s.Equal("task-1", s.waitFor(s.completion.outFlow))
	s.False(s.monitor.IsMonitoring("42"))
	s.Equal([]model.JobState{
		model.JobStateQueued,
		model.JobStateActive,
		model.JobStateComplete,
	}, s.publisher.published())
	s.Equal(int64(1), s.scope.Snapshot().Counters()["monitor.completed+"].Value())
}

func (s *MonitorTestSuite) TestRepeatedUnknownFailsJob() {
	s.script(model.JobStateActive, model.JobStateUnknown)
	s.NoError(s.monitor.Monitor("42", s.jec()))

	s.Equal("task-1", s.waitFor(s.completion.failed))
	s.False(s.monitor.IsMonitoring("42"))
	// UNKNOWN itself is never published
	s.Equal([]model.JobState{
		model.JobStateActive,
		model.JobStateFailed,
	}, s.publisher.published())
	s.Empty(s.completion.outFlow)
}

func (s *MonitorTestSuite) TestMonitorIsIdempotent() {
	s.script(model.JobStateActive)
	s.NoError(s.monitor.Monitor("42", s.jec()))
	s.NoError(s.monitor.Monitor("42", s.jec()))
	s.Equal(float64(1), s.scope.Snapshot().Gauges()["monitor.monitored+"].Value())
}

func (s *MonitorTestSuite) TestMonitorBeforeStart() {
	m := New(Config{}, s.publisher, tally.NoopScope)
	s.Error(m.Monitor("42", s.jec()))
	s.False(m.IsMonitoring("42"))
}

func (s *MonitorTestSuite) TestCanceledJobIsForcedAfterGracePeriod() {
	s.script(model.JobStateActive)
	s.NoError(s.monitor.Monitor("42", s.jec()))
	s.monitor.CanceledJob("42")
	s.monitor.CanceledJob("42")

	s.Equal("task-1", s.waitFor(s.completion.outFlow))
	states := s.publisher.published()
	s.Equal(model.JobStateCanceled, states[len(states)-1])
	s.Equal(int64(1), s.scope.Snapshot().Counters()["monitor.forced_cancel+"].Value())
}

func (s *MonitorTestSuite) TestStopMonitor() {
	s.script(model.JobStateActive)
	s.NoError(s.monitor.Monitor("42", s.jec()))
	s.monitor.StopMonitor("42", true)
	s.Equal("task-1", s.waitFor(s.completion.outFlow))
	s.False(s.monitor.IsMonitoring("42"))

	s.NoError(s.monitor.Monitor("43", s.jec()))
	s.monitor.StopMonitor("43", false)
	s.Eventually(func() bool { return !s.monitor.IsMonitoring("43") },
		_waitTimeout, time.Millisecond)
	s.Empty(s.completion.outFlow)
}

func (s *MonitorTestSuite) TestObservePushedState() {
	m := New(Config{PollInterval: time.Hour}, s.publisher, s.scope)
	m.Start(s.completion)
	defer m.Stop()

	s.Error(m.Observe("42", model.JobStateActive))
	s.NoError(m.Monitor("42", s.jec()))
	s.NoError(m.Observe("42", model.JobStateActive))
	s.NoError(m.Observe("42", model.JobStateComplete))

	s.Equal("task-1", s.waitFor(s.completion.outFlow))
	s.Equal([]model.JobState{
		model.JobStateActive,
		model.JobStateComplete,
	}, s.publisher.published())
}

func (s *MonitorTestSuite) TestStopDoesNotRunOutFlow() {
	s.script(model.JobStateActive)
	s.NoError(s.monitor.Monitor("42", s.jec()))
	s.monitor.Stop()
	s.False(s.monitor.IsMonitoring("42"))
	s.Empty(s.completion.outFlow)
	s.Empty(s.completion.failed)
}

func (s *MonitorTestSuite) TestOutputCheckPolicy() {
	p := OutputCheckPolicy{Threshold: 2}
	jec := s.jec()
	mid := model.NewMonitorID(jec.JobIdentity(), "A1", "gfac", jec.Host)
	mid.SetState(model.JobStateActive)
	mid.SetState(model.JobStateUnknown)

	_, ok := p.Resolve(context.Background(), mid, jec)
	s.False(ok)

	mid.SetState(model.JobStateUnknown)
	s.rc.EXPECT().ListDirectory(gomock.Any(), "/scratch/out").Return(nil, nil)
	_, ok = p.Resolve(context.Background(), mid, jec)
	s.False(ok)
	s.Equal(0, mid.FailedCount())

	mid.SetState(model.JobStateUnknown)
	mid.SetState(model.JobStateUnknown)
	s.rc.EXPECT().ListDirectory(gomock.Any(), "/scratch/out").Return([]string{"result.dat"}, nil)
	state, ok := p.Resolve(context.Background(), mid, jec)
	s.True(ok)
	s.Equal(model.JobStateComplete, state)
}

func (s *MonitorTestSuite) TestThresholdPolicy() {
	p := ThresholdPolicy{Threshold: 1}
	mid := model.NewMonitorID(model.JobIdentity{JobID: "42"}, "A1", "gfac", nil)
	_, ok := p.Resolve(context.Background(), mid, nil)
	s.False(ok)
	mid.SetState(model.JobStateActive)
	mid.SetState(model.JobStateUnknown)
	state, ok := p.Resolve(context.Background(), mid, nil)
	s.True(ok)
	s.Equal(model.JobStateFailed, state)
}
