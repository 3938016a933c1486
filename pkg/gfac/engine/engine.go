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

// Package engine drives submissions through scheduling, the handler
// pipeline and the provider, and finishes them once their job stopped.
// Submissions interrupted by a restart are relaunched from their last
// checkpoint.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/common/async"
	"github.com/apache/airavata-gfac/pkg/gfac/checkpoint"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/event"
	"github.com/apache/airavata-gfac/pkg/gfac/monitor"
	"github.com/apache/airavata-gfac/pkg/gfac/scheduler"
	"github.com/apache/airavata-gfac/pkg/model"
	"github.com/apache/airavata-gfac/pkg/storage"
)

const (
	_defaultWorkers = 8

	_relaunchedProperty = "engine.relaunched"
)

var errNotRunning = errors.New("engine is not running")

// Config is the engine configuration.
type Config struct {
	// Workers bounds the number of submissions launched concurrently.
	Workers int `yaml:"workers"`

	// WatchLaunchRequests launches experiments registered in the
	// coordination store by other processes.
	WatchLaunchRequests bool `yaml:"watch_launch_requests"`
}

// Scheduler binds the host, deployment and provider of a submission.
type Scheduler interface {
	Schedule(ctx context.Context, jec *core.ExecutionContext) error
}

// SecurityBuilder attaches the security contexts of the bound host.
type SecurityBuilder interface {
	Attach(ctx context.Context, jec *core.ExecutionContext) error
}

// Pipeline runs the handlers and the provider of a submission.
type Pipeline interface {
	InvokeInFlow(ctx context.Context, jec *core.ExecutionContext) error
	ReInvokeInFlow(ctx context.Context, jec *core.ExecutionContext) error
	InvokeOutFlow(ctx context.Context, jec *core.ExecutionContext) error
	ReInvokeOutFlow(ctx context.Context, jec *core.ExecutionContext) error
	RunProvider(ctx context.Context, jec *core.ExecutionContext) error
	RecoverProvider(ctx context.Context, jec *core.ExecutionContext) error
}

// JobMonitor observes asynchronous jobs and calls back into the engine once
// they stopped.
type JobMonitor interface {
	Start(completion monitor.Completion)
	Stop()
	StopMonitor(jobID string, runOutFlow bool)
}

// Dependencies of the engine. Contexts defaults to a factory reading the
// registry.
type Dependencies struct {
	Registry    storage.Registry
	Publisher   event.Publisher
	Checkpoints *checkpoint.Store
	Contexts    ContextFactory
	Scheduler   Scheduler
	Security    SecurityBuilder
	Pipeline    Pipeline
	Monitor     JobMonitor
	Recorder    core.ErrorRecorder
	Scope       tally.Scope
}

func (d *Dependencies) validate() error {
	var missing []string
	for name, ok := range map[string]bool{
		"registry":    d.Registry != nil,
		"publisher":   d.Publisher != nil,
		"checkpoints": d.Checkpoints != nil,
		"scheduler":   d.Scheduler != nil,
		"security":    d.Security != nil,
		"pipeline":    d.Pipeline != nil,
		"monitor":     d.Monitor != nil,
		"recorder":    d.Recorder != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing dependencies: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Engine launches, relaunches, cancels and finishes submissions. A
// submission stays in flight from its launch until its out-flow completed
// or it failed.
type Engine struct {
	sync.Mutex

	cfg      Config
	deps     Dependencies
	pool     *async.Pool
	inFlight map[checkpoint.ExperimentKey]struct{}

	running atomic.Bool
	stopCh  chan struct{}
	watchWg sync.WaitGroup

	metrics *Metrics
}

// New returns an Engine.
func New(cfg Config, deps Dependencies) (*Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, common.NewConfigurationError("engine", err)
	}
	if deps.Contexts == nil {
		deps.Contexts = NewContextFactory(deps.Registry)
	}
	if deps.Scope == nil {
		deps.Scope = tally.NoopScope
	}
	if cfg.Workers <= 0 {
		cfg.Workers = _defaultWorkers
	}
	scope := deps.Scope.SubScope("engine")
	return &Engine{
		cfg:  cfg,
		deps: deps,
		pool: async.NewPool(
			async.PoolOptions{MaxWorkers: cfg.Workers}, scope.SubScope("pool")),
		inFlight: make(map[checkpoint.ExperimentKey]struct{}),
		metrics:  NewMetrics(scope),
	}, nil
}

// Start starts the job monitor and the workers, then relaunches the
// submissions found in the coordination store.
func (e *Engine) Start(ctx context.Context) error {
	e.Lock()
	if e.running.Load() {
		e.Unlock()
		return nil
	}
	e.deps.Monitor.Start(e)
	e.pool.Start()
	e.stopCh = make(chan struct{})
	stopCh := e.stopCh
	e.running.Store(true)
	e.Unlock()

	if e.cfg.WatchLaunchRequests {
		updates, err := e.deps.Checkpoints.WatchExperiments(ctx, stopCh)
		if err != nil {
			e.Stop()
			return errors.Wrap(err, "failed to watch launch requests")
		}
		e.watchWg.Add(1)
		go e.watch(stopCh, updates)
	} else {
		keys, err := e.deps.Checkpoints.ListExperiments(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to list submissions to relaunch")
		}
		e.enqueueAll(keys)
	}

	log.WithField("workers", e.cfg.Workers).Info("Engine started")
	return nil
}

// Stop stops accepting work. Submissions in flight keep their checkpoints
// and are relaunched by the next leader.
func (e *Engine) Stop() {
	e.Lock()
	if !e.running.Load() {
		e.Unlock()
		return
	}
	e.running.Store(false)
	close(e.stopCh)
	e.Unlock()

	e.watchWg.Wait()
	e.pool.Stop()
	e.deps.Monitor.Stop()

	e.Lock()
	e.inFlight = make(map[checkpoint.ExperimentKey]struct{})
	e.metrics.InFlight.Update(0)
	e.Unlock()
	log.Info("Engine stopped")
}

// Submit registers a submission in the coordination store and launches it.
func (e *Engine) Submit(ctx context.Context, experimentID, taskID, token string) error {
	if !e.running.Load() {
		return errNotRunning
	}
	if err := e.deps.Checkpoints.RegisterExperiment(ctx, experimentID, taskID, token); err != nil {
		return errors.Wrapf(err, "failed to register %s+%s", experimentID, taskID)
	}
	e.metrics.Submitted.Inc(1)
	e.enqueue(checkpoint.ExperimentKey{ExperimentID: experimentID, TaskID: taskID})
	return nil
}

// InFlight returns true while the submission is handled by this engine.
func (e *Engine) InFlight(experimentID, taskID string) bool {
	e.Lock()
	defer e.Unlock()
	_, ok := e.inFlight[checkpoint.ExperimentKey{ExperimentID: experimentID, TaskID: taskID}]
	return ok
}

func keyOf(jec *core.ExecutionContext) checkpoint.ExperimentKey {
	return checkpoint.ExperimentKey{ExperimentID: jec.ExperimentID, TaskID: jec.TaskID}
}

func (e *Engine) enqueueAll(keys []checkpoint.ExperimentKey) {
	for _, key := range keys {
		if e.enqueue(key) {
			log.WithFields(log.Fields{
				common.ExperimentIDLogField: key.ExperimentID,
				common.TaskIDLogField:       key.TaskID,
			}).Info("Picked up launch request")
		}
	}
}

// enqueue schedules the launch of key unless it is already in flight.
func (e *Engine) enqueue(key checkpoint.ExperimentKey) bool {
	e.Lock()
	if !e.running.Load() {
		e.Unlock()
		return false
	}
	if _, ok := e.inFlight[key]; ok {
		e.Unlock()
		return false
	}
	e.inFlight[key] = struct{}{}
	e.metrics.InFlight.Update(float64(len(e.inFlight)))
	e.Unlock()

	e.pool.Enqueue(async.JobFunc(func(ctx context.Context) {
		jec, err := e.launch(ctx, key)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				common.ExperimentIDLogField: key.ExperimentID,
				common.TaskIDLogField:       key.TaskID,
			}).Warn("Launch did not complete")
		}
		if jec == nil || !jec.Monitored() {
			e.release(key)
		}
	}))
	return true
}

func (e *Engine) release(key checkpoint.ExperimentKey) {
	e.Lock()
	defer e.Unlock()
	delete(e.inFlight, key)
	e.metrics.InFlight.Update(float64(len(e.inFlight)))
}

// launch starts or resumes a submission according to its checkpoint.
func (e *Engine) launch(
	ctx context.Context,
	key checkpoint.ExperimentKey) (*core.ExecutionContext, error) {
	logger := log.WithFields(log.Fields{
		common.ExperimentIDLogField: key.ExperimentID,
		common.TaskIDLogField:       key.TaskID,
	})

	token, err := e.deps.Checkpoints.ReadToken(ctx, key.ExperimentID, key.TaskID)
	if common.IsMonitoringInconsistency(err) {
		e.metrics.Dropped.Inc(1)
		logger.Info("Launch request withdrawn")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	state, found, err := e.deps.Checkpoints.ReadState(ctx, key.ExperimentID, key.TaskID)
	if err != nil {
		return nil, err
	}
	if found && state >= model.GfacStateOutHandlersInvoked {
		logger.WithField("state", state.String()).Info("Nothing left to relaunch")
		return nil, e.deps.Checkpoints.DeleteExperiment(ctx, key.ExperimentID, key.TaskID)
	}

	jec, err := e.deps.Contexts.NewContext(ctx, key.ExperimentID, key.TaskID, token)
	if err != nil {
		jec = core.NewExecutionContext(key.ExperimentID, key.TaskID)
		return jec, e.fail(ctx, jec, err, false)
	}
	if !found || state < model.GfacStateInHandlersInvoking {
		return jec, e.fullLaunch(ctx, jec)
	}
	return jec, e.relaunch(ctx, jec, state)
}

// prepare binds the host, provider and security contexts of jec.
func (e *Engine) prepare(ctx context.Context, jec *core.ExecutionContext) error {
	if err := e.deps.Scheduler.Schedule(ctx, jec); err != nil {
		return err
	}
	return e.deps.Security.Attach(ctx, jec)
}

func (e *Engine) fullLaunch(ctx context.Context, jec *core.ExecutionContext) error {
	e.metrics.Launched.Inc(1)
	e.publishGfacState(ctx, jec, model.GfacStateAccepted)
	e.publishExperimentState(ctx, jec, model.ExperimentStateLaunched, "")
	if err := e.prepare(ctx, jec); err != nil {
		return e.fail(ctx, jec, err, false)
	}

	// task states follow the job states from here on
	e.publishGfacState(ctx, jec, model.GfacStateInHandlersInvoking)
	if err := e.deps.Pipeline.InvokeInFlow(ctx, jec); err != nil {
		return e.fail(ctx, jec, err, false)
	}
	e.publishGfacState(ctx, jec, model.GfacStateInHandlersInvoked)
	return e.runProvider(ctx, jec, e.deps.Pipeline.RunProvider)
}

// relaunch resumes a submission interrupted in state. Handlers that
// already ran are recovered so that jec carries their results again.
func (e *Engine) relaunch(
	ctx context.Context,
	jec *core.ExecutionContext,
	state model.GfacExperimentState) error {
	e.metrics.Relaunched.Inc(1)
	jec.SetProperty(_relaunchedProperty, true)
	log.WithFields(log.Fields{
		common.ExperimentIDLogField: jec.ExperimentID,
		common.TaskIDLogField:       jec.TaskID,
		"state":                     state.String(),
	}).Info("Relaunching submission")

	if err := e.prepare(ctx, jec); err != nil {
		return e.fail(ctx, jec, err, false)
	}
	if err := e.deps.Pipeline.ReInvokeInFlow(ctx, jec); err != nil {
		return e.fail(ctx, jec, err, false)
	}

	switch {
	case state <= model.GfacStateInHandlersInvoked:
		e.publishGfacState(ctx, jec, model.GfacStateInHandlersInvoked)
		return e.runProvider(ctx, jec, e.deps.Pipeline.RunProvider)
	case state == model.GfacStateProviderInvoking:
		return e.runProvider(ctx, jec, e.deps.Pipeline.RecoverProvider)
	case state <= model.GfacStateProviderInvoked:
		jobState, found, err := e.jobState(ctx, jec)
		if err != nil {
			return e.fail(ctx, jec, err, false)
		}
		switch {
		case found && jobState == model.JobStateFailed:
			return e.fail(ctx, jec, errors.Errorf("job of task %s failed", jec.TaskID), false)
		case found && jobState.IsTerminal():
			return e.outFlow(ctx, jec)
		case !found && state == model.GfacStateProviderInvoked:
			// synchronous providers record no job
			return e.outFlow(ctx, jec)
		}
		return e.runProvider(ctx, jec, e.deps.Pipeline.RecoverProvider)
	default:
		return e.outFlow(ctx, jec)
	}
}

func (e *Engine) runProvider(
	ctx context.Context,
	jec *core.ExecutionContext,
	run func(context.Context, *core.ExecutionContext) error) error {
	e.publishGfacState(ctx, jec, model.GfacStateProviderInvoking)
	if err := run(ctx, jec); err != nil {
		return e.fail(ctx, jec, err, true)
	}
	if jec.Monitored() {
		// the job monitor owns the submission from here on
		return nil
	}
	e.publishGfacState(ctx, jec, model.GfacStateProviderInvoked)
	return e.outFlow(ctx, jec)
}

func (e *Engine) outFlow(ctx context.Context, jec *core.ExecutionContext) error {
	e.publishGfacState(ctx, jec, model.GfacStateOutHandlersInvoking)

	flow := e.deps.Pipeline.InvokeOutFlow
	if relaunched, _ := jec.Property(_relaunchedProperty); relaunched == true {
		flow = e.deps.Pipeline.ReInvokeOutFlow
	}
	if err := flow(ctx, jec); err != nil {
		return e.fail(ctx, jec, err, false)
	}
	e.publishGfacState(ctx, jec, model.GfacStateOutHandlersInvoked)
	e.complete(ctx, jec)
	return nil
}

func (e *Engine) complete(ctx context.Context, jec *core.ExecutionContext) {
	jobState, found, err := e.jobState(ctx, jec)
	if err != nil {
		log.WithError(err).WithField(common.TaskIDLogField, jec.TaskID).
			Warn("Failed to read job state of finished task")
	}
	switch {
	case found && jobState == model.JobStateCanceled:
		e.metrics.Canceled.Inc(1)
	case found && jobState == model.JobStateComplete:
		// the cascade already completed the task
		e.metrics.Completed.Inc(1)
	default:
		e.metrics.Completed.Inc(1)
		e.publishTaskState(ctx, jec, model.TaskStateCompleted)
	}
	// COMPLETED removes the checkpoints, canceled submissions included
	e.publishGfacState(ctx, jec, model.GfacStateCompleted)
	e.release(keyOf(jec))

	log.WithFields(log.Fields{
		common.ExperimentIDLogField: jec.ExperimentID,
		common.TaskIDLogField:       jec.TaskID,
	}).Info("Submission finished")
}

// fail records cause against the task and moves the submission to FAILED.
// Failures caused by the engine stopping leave the checkpoints for the next
// relaunch.
func (e *Engine) fail(
	ctx context.Context,
	jec *core.ExecutionContext,
	cause error,
	publishJob bool) error {
	logger := log.WithFields(log.Fields{
		common.ExperimentIDLogField: jec.ExperimentID,
		common.TaskIDLogField:       jec.TaskID,
	})
	err := errors.Wrapf(cause, "submission %s+%s failed", jec.ExperimentID, jec.TaskID)
	if ctx.Err() != nil {
		logger.WithError(cause).Warn("Submission interrupted, leaving it for relaunch")
		return err
	}

	e.metrics.Failed.Inc(1)
	logger.WithError(cause).Error("Submission failed")
	msg := userMessage(cause)
	if !common.IsTransportError(cause) {
		if rerr := e.deps.Recorder.SaveErrorDetails(ctx, jec.TaskID, cause, msg); rerr != nil {
			logger.WithError(rerr).Warn("Failed to record error details")
		}
	}

	if job := jec.Job(); job != nil {
		if jec.Monitored() {
			e.deps.Monitor.StopMonitor(job.JobID, false)
		}
		if publishJob {
			id := jec.JobIdentity()
			e.publish(ctx, jec, event.JobStatusChangeRequest{Identity: id, State: model.JobStateFailed})
		}
	}
	e.publishTaskState(ctx, jec, model.TaskStateFailed)
	e.publishExperimentState(ctx, jec, model.ExperimentStateFailed, msg)
	e.publishGfacState(ctx, jec, model.GfacStateFailed)
	e.release(keyOf(jec))
	return err
}

// RunOutFlow implements monitor.Completion.
func (e *Engine) RunOutFlow(ctx context.Context, jec *core.ExecutionContext) error {
	return e.outFlow(ctx, jec)
}

// JobFailed implements monitor.Completion.
func (e *Engine) JobFailed(ctx context.Context, jec *core.ExecutionContext, cause error) {
	e.fail(ctx, jec, cause, false)
}

// Cancel cancels the remote job of a submission. The job monitor finishes
// the submission once the job reports CANCELED.
func (e *Engine) Cancel(ctx context.Context, experimentID, taskID string) error {
	token, err := e.deps.Checkpoints.ReadToken(ctx, experimentID, taskID)
	if common.IsMonitoringInconsistency(err) {
		return errors.Errorf("submission %s+%s is not in flight", experimentID, taskID)
	}
	if err != nil {
		return err
	}
	jec, err := e.deps.Contexts.NewContext(ctx, experimentID, taskID, token)
	if err != nil {
		return err
	}
	if err := e.prepare(ctx, jec); err != nil {
		return err
	}
	prov, ok := jec.Provider.(core.CancelableProvider)
	if !ok {
		e.metrics.CancelFail.Inc(1)
		return errors.Errorf("provider %s cannot cancel jobs", jec.ProviderName)
	}

	e.publishExperimentState(ctx, jec, model.ExperimentStateCanceling, "canceled by user")
	e.publishTaskState(ctx, jec, model.TaskStateCanceling)
	if err := prov.Cancel(ctx, jec); err != nil {
		e.metrics.CancelFail.Inc(1)
		return errors.Wrapf(err, "failed to cancel %s+%s", experimentID, taskID)
	}
	e.metrics.CancelRequested.Inc(1)
	log.WithFields(log.Fields{
		common.ExperimentIDLogField: experimentID,
		common.TaskIDLogField:       taskID,
	}).Info("Cancel requested")
	return nil
}

// jobState returns the state of the latest job of the task. The second
// return value is false if the task has no job.
func (e *Engine) jobState(
	ctx context.Context,
	jec *core.ExecutionContext) (model.JobState, bool, error) {
	job := jec.Job()
	if job == nil {
		task, err := storage.GetTask(ctx, e.deps.Registry, jec.TaskID)
		if err != nil {
			return model.JobStateUnknown, false, err
		}
		if len(task.JobIDs) == 0 {
			return model.JobStateUnknown, false, nil
		}
		job = &model.JobDetails{JobID: task.JobIDs[len(task.JobIDs)-1]}
	}
	// the status is written by the cascade, so read it back
	stored, err := storage.GetJob(ctx, e.deps.Registry, model.JobKey(jec.TaskID, job.JobID))
	if storage.IsNotFound(err) {
		return model.JobStateUnknown, false, nil
	}
	if err != nil {
		return model.JobStateUnknown, false, err
	}
	if stored.Status == nil {
		return model.JobStateUnSubmitted, true, nil
	}
	return stored.Status.State, true, nil
}

func (e *Engine) publish(ctx context.Context, jec *core.ExecutionContext, ev event.Event) {
	if err := e.deps.Publisher.Publish(ctx, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{
			common.ExperimentIDLogField: jec.ExperimentID,
			common.TaskIDLogField:       jec.TaskID,
			"topic":                     ev.Topic().String(),
		}).Warn("Failed to publish event")
	}
}

func (e *Engine) publishGfacState(
	ctx context.Context,
	jec *core.ExecutionContext,
	state model.GfacExperimentState) {
	e.publish(ctx, jec, event.GfacStateChangeRequest{Identity: jec.TaskIdentity(), State: state})
}

func (e *Engine) publishTaskState(
	ctx context.Context,
	jec *core.ExecutionContext,
	state model.TaskState) {
	e.publish(ctx, jec, event.TaskStatusChangeRequest{Identity: jec.TaskIdentity(), State: state})
}

func (e *Engine) publishExperimentState(
	ctx context.Context,
	jec *core.ExecutionContext,
	state model.ExperimentState,
	reason string) {
	e.publish(ctx, jec, event.ExperimentStatusChangeRequest{
		Identity: model.ExperimentIdentity{ExperimentID: jec.ExperimentID},
		State:    state,
		Reason:   reason,
	})
}

// userMessage describes a failure to the user. The full error chain is
// only logged.
func userMessage(err error) string {
	var noHost *scheduler.NoEligibleHostError
	if errors.As(err, &noHost) {
		return fmt.Sprintf("No compute resource can run application %s", noHost.ApplicationID)
	}
	if plugin, stage, ok := common.FailedPlugin(err); ok {
		return fmt.Sprintf("Task failed in %s %s", stage, plugin)
	}
	if common.IsConfigurationError(err) {
		return "Task could not be configured"
	}
	return "Task failed"
}
