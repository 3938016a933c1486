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

package provider

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/cluster"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/event"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
	"github.com/apache/airavata-gfac/pkg/storage"
)

// hpcProvider submits a batch job and hands it to the job monitor, which
// runs the out-flow once the job finished.
type hpcProvider struct {
	deps    Dependencies
	metrics *Metrics
	cluster cluster.RemoteCluster
}

func (p *hpcProvider) Initialize(ctx context.Context, jec *core.ExecutionContext) error {
	if jec.Host == nil || !jec.Host.HPC() {
		return errors.New("hpc provider needs a host running a batch system")
	}
	cl, err := security.ClusterFrom(jec)
	if err != nil {
		return err
	}
	p.cluster = cl
	return nil
}

func (p *hpcProvider) Execute(ctx context.Context, jec *core.ExecutionContext) error {
	jd, err := newJobDescriptor(jec)
	if err != nil {
		return err
	}

	jobID, err := p.cluster.SubmitBatchJob(ctx, jd)
	if err != nil {
		p.metrics.SubmitFail.Inc(1)
		return errors.Wrapf(err, "failed to submit job of task %s", jec.TaskID)
	}
	p.metrics.Submitted.Inc(1)

	job := &model.JobDetails{
		JobID:           jobID,
		TaskID:          jec.TaskID,
		JobName:         jd.JobName,
		JobDescription:  jd.CommandLine(),
		ComputeResource: jec.Host.Name,
		CreationTime:    p.deps.Now(),
	}
	jec.SetJob(job)
	if err := recordJob(ctx, p.deps.Registry, jec, job); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		common.ExperimentIDLogField: jec.ExperimentID,
		common.TaskIDLogField:       jec.TaskID,
		common.JobIDLogField:        jobID,
		common.HostLogField:         jec.Host.Name,
	}).Info("Job submitted")

	publish(ctx, p.deps.Publisher, jec, event.GfacStateChangeRequest{
		Identity: jec.TaskIdentity(),
		State:    model.GfacStateJobSubmitted,
	})
	mid := model.NewMonitorID(
		jec.JobIdentity(), jd.JobName, p.cluster.ServerInfo().UserName, jec.Host)
	publishJobState(ctx, p.deps.Publisher, jec, model.JobStateSubmitted, mid)

	return p.monitor(jobID, jec)
}

// Recover re-attaches the monitor to the job submitted before the restart.
// The job is submitted again if none was recorded.
func (p *hpcProvider) Recover(ctx context.Context, jec *core.ExecutionContext) error {
	job, err := latestJob(ctx, p.deps.Registry, jec)
	if storage.IsNotFound(err) {
		log.WithFields(log.Fields{
			common.ExperimentIDLogField: jec.ExperimentID,
			common.TaskIDLogField:       jec.TaskID,
		}).Info("No job recorded for task, submitting again")
		p.metrics.Resubmitted.Inc(1)
		return p.Execute(ctx, jec)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read job of task %s", jec.TaskID)
	}

	jec.SetJob(job)
	p.metrics.Recovered.Inc(1)
	if p.deps.Monitor.IsMonitoring(job.JobID) {
		jec.SetMonitored(true)
		return nil
	}
	return p.monitor(job.JobID, jec)
}

// monitor marks jec as monitored before the monitor sees the job, since the
// monitor may run the out-flow before Execute returns.
func (p *hpcProvider) monitor(jobID string, jec *core.ExecutionContext) error {
	jec.SetMonitored(true)
	if err := p.deps.Monitor.Monitor(jobID, jec); err != nil {
		jec.SetMonitored(false)
		return errors.Wrapf(err, "failed to monitor job %s", jobID)
	}
	return nil
}

// Cancel cancels the batch job and tells the monitor to expect the
// cancellation.
func (p *hpcProvider) Cancel(ctx context.Context, jec *core.ExecutionContext) error {
	job, err := latestJob(ctx, p.deps.Registry, jec)
	if err != nil {
		return errors.Wrapf(err, "no job to cancel for task %s", jec.TaskID)
	}
	jec.SetJob(job)
	if p.cluster == nil {
		if err := p.Initialize(ctx, jec); err != nil {
			return err
		}
	}

	publishJobState(ctx, p.deps.Publisher, jec, model.JobStateCanceling, nil)
	if err := p.cluster.CancelJob(ctx, job.JobID); err != nil {
		p.metrics.CancelFail.Inc(1)
		return errors.Wrapf(err, "failed to cancel job %s", job.JobID)
	}
	p.metrics.Canceled.Inc(1)
	p.deps.Monitor.CanceledJob(job.JobID)
	return nil
}

// Dispose has nothing to release; clusters are shared.
func (p *hpcProvider) Dispose(ctx context.Context, jec *core.ExecutionContext) error {
	return nil
}
