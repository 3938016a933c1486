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

// Package monitor tracks submitted batch jobs until they reach a terminal
// state.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/event"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
)

const _observedBuffer = 8

var errNotRunning = errors.New("job monitor is not running")

// Completion finishes the task of a job once monitoring stopped.
type Completion interface {
	// RunOutFlow runs the out-flow of a job that completed or was canceled.
	RunOutFlow(ctx context.Context, jec *core.ExecutionContext) error
	// JobFailed records the failure of a job.
	JobFailed(ctx context.Context, jec *core.ExecutionContext, cause error)
}

type job struct {
	mid *model.MonitorID
	jec *core.ExecutionContext

	// last state published, owned by the job goroutine
	published model.JobState

	observed   chan model.JobState
	stop       chan struct{}
	stopOnce   sync.Once
	runOutFlow atomic.Bool
	canceled   chan struct{}
	cancelOnce sync.Once
}

// Monitor runs one goroutine per job, polling its status through the
// cluster of the execution context. Status queries are rate limited per
// host.
type Monitor struct {
	sync.Mutex

	cfg        Config
	publisher  event.Publisher
	policy     UnknownStatePolicy
	completion Completion
	jobs       map[string]*job
	limiters   map[string]*rate.Limiter

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	metrics *Metrics
}

// New creates a Monitor with the unknown state policy selected by cfg.
func New(cfg Config, publisher event.Publisher, scope tally.Scope) *Monitor {
	cfg.normalize()
	var policy UnknownStatePolicy = ThresholdPolicy{Threshold: cfg.UnknownThreshold}
	if cfg.CheckOutputOnUnknown {
		policy = OutputCheckPolicy{Threshold: cfg.UnknownThreshold}
	}
	return NewWithPolicy(cfg, publisher, policy, scope)
}

// NewWithPolicy creates a Monitor using policy for jobs in UNKNOWN state.
func NewWithPolicy(
	cfg Config,
	publisher event.Publisher,
	policy UnknownStatePolicy,
	scope tally.Scope) *Monitor {
	cfg.normalize()
	return &Monitor{
		cfg:       cfg,
		publisher: publisher,
		policy:    policy,
		jobs:      make(map[string]*job),
		limiters:  make(map[string]*rate.Limiter),
		metrics:   NewMetrics(scope.SubScope("monitor")),
	}
}

// Start lets the monitor accept jobs. completion is called once a job
// stopped.
func (m *Monitor) Start(completion Completion) {
	m.Lock()
	defer m.Unlock()
	if m.running.Load() {
		return
	}
	m.completion = completion
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.running.Store(true)
	log.Info("Job monitor started")
}

// Stop stops all job goroutines without running out-flows. Jobs in flight
// are picked up again by relaunch.
func (m *Monitor) Stop() {
	m.Lock()
	if !m.running.Load() {
		m.Unlock()
		return
	}
	m.running.Store(false)
	m.cancel()
	m.jobs = make(map[string]*job)
	m.Unlock()

	m.wg.Wait()
	m.metrics.Monitored.Update(0)
	log.Info("Job monitor stopped")
}

// Monitor starts observing jobID. It does nothing if the job is already
// observed.
func (m *Monitor) Monitor(jobID string, jec *core.ExecutionContext) error {
	m.Lock()
	defer m.Unlock()
	if !m.running.Load() {
		return errNotRunning
	}
	if _, ok := m.jobs[jobID]; ok {
		return nil
	}

	userName := jec.UserName
	if cl, err := security.ClusterFrom(jec); err == nil {
		userName = cl.ServerInfo().UserName
	}
	var jobName string
	if j := jec.Job(); j != nil {
		jobName = j.JobName
	}
	id := jec.JobIdentity()
	id.JobID = jobID
	mid := model.NewMonitorID(id, jobName, userName, jec.Host)
	mid.SetState(model.JobStateSubmitted)

	j := &job{
		mid:       mid,
		jec:       jec,
		published: model.JobStateSubmitted,
		observed:  make(chan model.JobState, _observedBuffer),
		stop:      make(chan struct{}),
		canceled:  make(chan struct{}),
	}
	m.jobs[jobID] = j
	m.metrics.Monitored.Update(float64(len(m.jobs)))

	m.wg.Add(1)
	go m.run(j)

	log.WithFields(log.Fields{
		common.ExperimentIDLogField: jec.ExperimentID,
		common.TaskIDLogField:       jec.TaskID,
		common.JobIDLogField:        jobID,
	}).Info("Monitoring job")
	return nil
}

func (m *Monitor) lookup(jobID string) (*job, bool) {
	m.Lock()
	defer m.Unlock()
	j, ok := m.jobs[jobID]
	return j, ok
}

// StopMonitor stops observing jobID. The out-flow of the job runs after
// stopping if runOutFlow is set.
func (m *Monitor) StopMonitor(jobID string, runOutFlow bool) {
	j, ok := m.lookup(jobID)
	if !ok {
		return
	}
	if runOutFlow {
		j.runOutFlow.Store(true)
	}
	j.stopOnce.Do(func() { close(j.stop) })
}

// IsMonitoring returns true if jobID is observed.
func (m *Monitor) IsMonitoring(jobID string) bool {
	_, ok := m.lookup(jobID)
	return ok
}

// CanceledJob tells the monitor that jobID was canceled by the user. The
// job is moved to CANCELED if the host does not report it within the grace
// period.
func (m *Monitor) CanceledJob(jobID string) {
	j, ok := m.lookup(jobID)
	if !ok {
		return
	}
	j.cancelOnce.Do(func() { close(j.canceled) })
}

// Observe feeds a state pushed by the remote execution layer.
func (m *Monitor) Observe(jobID string, state model.JobState) error {
	j, ok := m.lookup(jobID)
	if !ok {
		return errors.Errorf("job %s is not monitored", jobID)
	}
	m.metrics.Observed.Inc(1)
	select {
	case j.observed <- state:
		return nil
	case <-j.stop:
		return errors.Errorf("job %s is no longer monitored", jobID)
	case <-m.ctx.Done():
		return errNotRunning
	}
}

func (m *Monitor) remove(j *job) {
	m.Lock()
	defer m.Unlock()
	if cur, ok := m.jobs[j.mid.JobID]; ok && cur == j {
		delete(m.jobs, j.mid.JobID)
	}
	m.metrics.Monitored.Update(float64(len(m.jobs)))
}

func (m *Monitor) run(j *job) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	var graceExpired <-chan time.Time
	canceled := j.canceled

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-j.stop:
			m.remove(j)
			if j.runOutFlow.Load() {
				m.runOutFlow(j)
			}
			return
		case <-canceled:
			canceled = nil
			graceExpired = time.After(m.cfg.CancelGracePeriod)
		case <-graceExpired:
			m.metrics.ForcedCancel.Inc(1)
			log.WithField(common.JobIDLogField, j.mid.JobID).
				Warn("Canceled job did not report CANCELED in time, forcing it")
			if m.handle(j, model.JobStateCanceled) {
				return
			}
		case s := <-j.observed:
			if m.handle(j, s) {
				return
			}
		case <-ticker.C:
			if m.handle(j, m.poll(j)) {
				return
			}
		}
	}
}

func (m *Monitor) limiter(host string) *rate.Limiter {
	m.Lock()
	defer m.Unlock()
	l, ok := m.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(m.cfg.HostQueryRate), m.cfg.HostQueryBurst)
		m.limiters[host] = l
	}
	return l
}

// poll queries the status of a job. Failed queries yield UNKNOWN.
func (m *Monitor) poll(j *job) model.JobState {
	m.metrics.Polls.Inc(1)
	cl, err := security.ClusterFrom(j.jec)
	if err != nil {
		m.metrics.PollFail.Inc(1)
		return model.JobStateUnknown
	}
	if err := m.limiter(cl.ServerInfo().Host).Wait(m.ctx); err != nil {
		return model.JobStateUnknown
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.PollInterval)
	defer cancel()
	state, err := cl.JobStatus(ctx, j.mid.JobID)
	if err != nil {
		m.metrics.PollFail.Inc(1)
		log.WithError(err).
			WithField(common.JobIDLogField, j.mid.JobID).
			Warn("Failed to query job status")
		return model.JobStateUnknown
	}
	return state
}

// handle records an observation and returns true once monitoring of the
// job ended.
func (m *Monitor) handle(j *job, state model.JobState) bool {
	j.mid.SetState(state)
	if state == model.JobStateUnknown {
		m.metrics.Unknown.Inc(1)
		resolved, ok := m.policy.Resolve(m.ctx, j.mid, j.jec)
		if !ok {
			return false
		}
		m.metrics.Resolved.Inc(1)
		log.WithFields(log.Fields{
			common.JobIDLogField: j.mid.JobID,
			"failed_count":       j.mid.FailedCount(),
			"state":              resolved.String(),
		}).Warn("Job kept reporting UNKNOWN")
		state = resolved
		j.mid.SetState(state)
	}

	if state != j.published {
		j.published = state
		if err := m.publisher.Publish(m.ctx, event.JobStatusChangeRequest{
			Identity: j.mid.Identity(),
			State:    state,
			Monitor:  j.mid,
		}); err != nil {
			log.WithError(err).
				WithField(common.JobIDLogField, j.mid.JobID).
				Warn("Failed to publish job status")
		}
	}

	switch state {
	case model.JobStateComplete:
		m.metrics.Completed.Inc(1)
	case model.JobStateCanceled:
		m.metrics.Canceled.Inc(1)
	case model.JobStateFailed:
		m.metrics.Failed.Inc(1)
		m.remove(j)
		m.completion.JobFailed(m.ctx, j.jec,
			errors.Errorf("job %s failed on %s", j.mid.JobID, hostName(j.mid)))
		return true
	default:
		return false
	}
	m.remove(j)
	m.runOutFlow(j)
	return true
}

func (m *Monitor) runOutFlow(j *job) {
	if err := m.completion.RunOutFlow(m.ctx, j.jec); err != nil {
		m.metrics.OutFlowFail.Inc(1)
		log.WithError(err).WithFields(log.Fields{
			common.ExperimentIDLogField: j.jec.ExperimentID,
			common.TaskIDLogField:       j.jec.TaskID,
			common.JobIDLogField:        j.mid.JobID,
		}).Error("Out-flow failed")
	}
}

func hostName(mid *model.MonitorID) string {
	if mid.Host == nil {
		return "unknown host"
	}
	return mid.Host.Name
}
