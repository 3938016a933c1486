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

// Package provider provides the providers submitting work to compute hosts.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/cluster"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/event"
	"github.com/apache/airavata-gfac/pkg/gfac/pipeline"
	"github.com/apache/airavata-gfac/pkg/model"
	"github.com/apache/airavata-gfac/pkg/storage"
)

// Registered provider names.
const (
	HPC     = "hpc"
	SSHExec = "ssh-exec"
)

// JobMonitor tracks submitted batch jobs until they finish.
type JobMonitor interface {
	Monitor(jobID string, jec *core.ExecutionContext) error
	IsMonitoring(jobID string) bool
	CanceledJob(jobID string)
}

// Dependencies are shared by all providers.
type Dependencies struct {
	Registry  storage.Registry
	Publisher event.Publisher
	Monitor   JobMonitor
	Scope     tally.Scope

	// Now defaults to time.Now.
	Now func() time.Time
}

// Register adds every provider of this package to reg.
func Register(reg *pipeline.Registry, deps Dependencies) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Scope == nil {
		deps.Scope = tally.NoopScope
	}
	metrics := NewMetrics(deps.Scope.SubScope("provider"))

	if err := reg.RegisterProvider(HPC, func() core.Provider {
		return &hpcProvider{deps: deps, metrics: metrics}
	}); err != nil {
		return err
	}
	return reg.RegisterProvider(SSHExec, func() core.Provider {
		return &sshExecProvider{deps: deps, metrics: metrics}
	})
}

// newJobDescriptor describes the job of jec. Input values become the
// arguments of the executable, in order.
func newJobDescriptor(jec *core.ExecutionContext) (*cluster.JobDescriptor, error) {
	dep := jec.Deployment
	if dep == nil {
		return nil, errors.New("no application deployment bound to the execution context")
	}
	jd := &cluster.JobDescriptor{
		JobName:        jobName(),
		Executable:     dep.ExecutablePath,
		WorkingDir:     dep.WorkingDir,
		InputDir:       dep.InputDir,
		OutputDir:      dep.OutputDir,
		StdOut:         dep.StdOut,
		StdErr:         dep.StdErr,
		Queue:          dep.Queue,
		Environment:    dep.Environment,
		PreJobCommands: dep.PreJobCommands,
	}
	for _, p := range jec.Inputs() {
		if p.Value != "" {
			jd.Arguments = append(jd.Arguments, p.Value)
		}
	}
	if s := jec.Scheduling; s != nil {
		if s.QueueName != "" {
			jd.Queue = s.QueueName
		}
		jd.Account = s.ProjectAccount
		jd.NodeCount = s.NodeCount
		jd.CPUCount = s.TotalCPUCount
		jd.WallTime = time.Duration(s.WallTimeLimit) * time.Minute
	}
	return jd, nil
}

// jobName returns a name accepted by every batch system: it starts with a
// letter and has at most 15 characters.
func jobName() string {
	return "A" + strings.ReplaceAll(uuid.New(), "-", "")[:14]
}

// recordJob stores job and adds it to the jobs of its task.
func recordJob(
	ctx context.Context,
	registry storage.Registry,
	jec *core.ExecutionContext,
	job *model.JobDetails) error {
	key := model.JobKey(job.TaskID, job.JobID)
	if err := registry.Update(ctx, storage.EntityJobDetails, job, key); err != nil {
		return errors.Wrapf(err, "failed to record job %s", key)
	}

	task, err := storage.GetTask(ctx, registry, jec.TaskID)
	if storage.IsNotFound(err) {
		task = &model.TaskDetails{
			TaskID:         jec.TaskID,
			ExperimentID:   jec.ExperimentID,
			WorkflowNodeID: jec.WorkflowNodeID,
			ApplicationID:  jec.ApplicationID,
		}
	} else if err != nil {
		return errors.Wrapf(err, "failed to read task %s", jec.TaskID)
	}
	for _, id := range task.JobIDs {
		if id == job.JobID {
			return nil
		}
	}
	task.JobIDs = append(task.JobIDs, job.JobID)
	if err := registry.Update(ctx, storage.EntityTaskDetails, task, jec.TaskID); err != nil {
		return errors.Wrapf(err, "failed to add job %s to task %s", job.JobID, jec.TaskID)
	}
	return nil
}

// latestJob returns the last job recorded for the task of jec.
func latestJob(
	ctx context.Context,
	registry storage.Registry,
	jec *core.ExecutionContext) (*model.JobDetails, error) {
	if job := jec.Job(); job != nil {
		return job, nil
	}
	task, err := storage.GetTask(ctx, registry, jec.TaskID)
	if err != nil {
		return nil, err
	}
	if len(task.JobIDs) == 0 {
		return nil, errors.Wrapf(storage.ErrNotFound, "task %s has no job", jec.TaskID)
	}
	return storage.GetJob(ctx, registry,
		model.JobKey(jec.TaskID, task.JobIDs[len(task.JobIDs)-1]))
}

// publish delivers ev and logs subscriber failures. The job state already
// changed on the compute host, so failures are not returned.
func publish(ctx context.Context, p event.Publisher, jec *core.ExecutionContext, ev event.Event) {
	if err := p.Publish(ctx, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{
			common.ExperimentIDLogField: jec.ExperimentID,
			common.TaskIDLogField:       jec.TaskID,
			"topic":                     ev.Topic().String(),
		}).Warn("Failed to publish provider event")
	}
}

func publishJobState(
	ctx context.Context,
	p event.Publisher,
	jec *core.ExecutionContext,
	state model.JobState,
	mid *model.MonitorID) {
	publish(ctx, p, jec, event.JobStatusChangeRequest{
		Identity: jec.JobIdentity(),
		State:    state,
		Monitor:  mid,
	})
}
