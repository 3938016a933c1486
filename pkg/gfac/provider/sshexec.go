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
	"strings"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/cluster"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
)

// sshExecProvider runs the executable over ssh and waits for it to exit.
type sshExecProvider struct {
	deps    Dependencies
	metrics *Metrics
	cluster cluster.RemoteCluster
}

func (p *sshExecProvider) Initialize(ctx context.Context, jec *core.ExecutionContext) error {
	cl, err := security.ClusterFrom(jec)
	if err != nil {
		return err
	}
	p.cluster = cl
	return nil
}

func (p *sshExecProvider) Execute(ctx context.Context, jec *core.ExecutionContext) error {
	jd, err := newJobDescriptor(jec)
	if err != nil {
		return err
	}

	job := &model.JobDetails{
		JobID:           "ssh-" + uuid.New(),
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
	publishJobState(ctx, p.deps.Publisher, jec, model.JobStateActive, nil)

	out, err := p.cluster.Execute(ctx, jd.CommandLine())
	if err == nil && out.ExitCode != 0 {
		err = errors.Errorf("%s exited with code %d: %s",
			jd.Executable, out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	if err != nil {
		p.metrics.ExecuteFail.Inc(1)
		publishJobState(ctx, p.deps.Publisher, jec, model.JobStateFailed, nil)
		return errors.Wrapf(err, "failed to run job of task %s", jec.TaskID)
	}

	p.metrics.Executed.Inc(1)
	log.WithFields(log.Fields{
		common.ExperimentIDLogField: jec.ExperimentID,
		common.TaskIDLogField:       jec.TaskID,
		common.JobIDLogField:        job.JobID,
	}).Info("Job finished")
	publishJobState(ctx, p.deps.Publisher, jec, model.JobStateComplete, nil)
	return nil
}

func (p *sshExecProvider) Dispose(ctx context.Context, jec *core.ExecutionContext) error {
	return nil
}
