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

	"github.com/pkg/errors"

	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/scheduler"
	"github.com/apache/airavata-gfac/pkg/model"
	"github.com/apache/airavata-gfac/pkg/storage"
)

// ContextFactory builds the execution context of a submission.
type ContextFactory interface {
	NewContext(ctx context.Context, experimentID, taskID, token string) (*core.ExecutionContext, error)
}

type registryContextFactory struct {
	registry storage.Registry
}

// NewContextFactory returns a ContextFactory reading tasks and experiments
// from registry.
func NewContextFactory(registry storage.Registry) ContextFactory {
	return &registryContextFactory{registry: registry}
}

func (f *registryContextFactory) NewContext(
	ctx context.Context,
	experimentID, taskID, token string) (*core.ExecutionContext, error) {
	task, err := storage.GetTask(ctx, f.registry, taskID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read task %s", taskID)
	}
	if task.ExperimentID != "" && task.ExperimentID != experimentID {
		return nil, errors.Errorf("task %s belongs to experiment %s, not %s",
			taskID, task.ExperimentID, experimentID)
	}
	exp, err := storage.GetExperiment(ctx, f.registry, experimentID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read experiment %s", experimentID)
	}

	jec := core.NewExecutionContext(experimentID, taskID)
	jec.WorkflowNodeID = task.WorkflowNodeID
	jec.GatewayID = exp.GatewayID
	jec.UserName = exp.UserName
	jec.ApplicationID = task.ApplicationID
	jec.CredentialToken = token
	jec.Scheduling = task.Scheduling
	jec.SetInputs(task.Inputs)
	jec.SetOutputs(task.Outputs)

	// a task that already submitted a job stays on that host
	if n := len(task.JobIDs); n > 0 {
		job, err := storage.GetJob(ctx, f.registry, model.JobKey(taskID, task.JobIDs[n-1]))
		switch {
		case err == nil:
			if job.ComputeResource != "" {
				jec.SetProperty(scheduler.HostProperty, job.ComputeResource)
			}
		case !storage.IsNotFound(err):
			return nil, errors.Wrapf(err, "failed to read job of task %s", taskID)
		}
	}
	return jec, nil
}
