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

package handler

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/model"
	"github.com/apache/airavata-gfac/pkg/storage"
)

const (
	_scratchDirProperty = "scratch_dir"
	_defaultScratchDir  = "/tmp"
	_dirDateLayout      = "Jan_02_2006_15_04_05"
)

var errNoDeployment = errors.New("no application deployment bound to the execution context")

// descriptorNormalizer fills the unset directories and stdout/stderr paths
// of the bound deployment. The working directory chosen for a task is kept
// in the registry so that a relaunch uses the same one.
type descriptorNormalizer struct {
	registry   storage.Registry
	now        func() time.Time
	scratchDir string
}

func (h *descriptorNormalizer) Initialize(props map[string]string) error {
	h.scratchDir = props[_scratchDirProperty]
	if h.scratchDir == "" {
		h.scratchDir = _defaultScratchDir
	}
	return nil
}

func (h *descriptorNormalizer) Invoke(ctx context.Context, jec *core.ExecutionContext) error {
	dep, err := deploymentOf(jec)
	if err != nil {
		return err
	}
	d := *dep

	name := jec.ApplicationID
	if jec.Service != nil && jec.Service.Name != "" {
		name = jec.Service.Name
	}

	if d.WorkingDir == "" {
		d.WorkingDir, err = h.workingDir(ctx, jec, d.ScratchDir, name)
		if err != nil {
			return err
		}
	}
	if d.InputDir == "" {
		d.InputDir = path.Join(d.WorkingDir, "inputs")
	}
	if d.OutputDir == "" {
		d.OutputDir = path.Join(d.WorkingDir, "outputs")
	}
	if d.StdOut == "" {
		d.StdOut = path.Join(d.WorkingDir, name+".stdout")
	}
	if d.StdErr == "" {
		d.StdErr = path.Join(d.WorkingDir, name+".stderr")
	}
	jec.Deployment = &d

	log.WithFields(log.Fields{
		common.ExperimentIDLogField: jec.ExperimentID,
		common.TaskIDLogField:       jec.TaskID,
		"working_dir":               d.WorkingDir,
	}).Debug("Deployment normalized")
	return nil
}

// Recover normalizes again; the working directory comes from the registry.
func (h *descriptorNormalizer) Recover(ctx context.Context, jec *core.ExecutionContext) error {
	return h.Invoke(ctx, jec)
}

func (h *descriptorNormalizer) workingDir(
	ctx context.Context,
	jec *core.ExecutionContext,
	scratch string,
	name string) (string, error) {
	if h.registry == nil {
		return h.newWorkingDir(scratch, name), nil
	}

	task, err := storage.GetTask(ctx, h.registry, jec.TaskID)
	if err != nil && !storage.IsNotFound(err) {
		return "", errors.Wrapf(err, "failed to read task %s", jec.TaskID)
	}
	if err == nil && task.WorkingDir != "" {
		return task.WorkingDir, nil
	}
	if storage.IsNotFound(err) {
		task = jecTask(jec)
	}

	task.WorkingDir = h.newWorkingDir(scratch, name)
	if err := h.registry.Update(ctx, storage.EntityTaskDetails, task, jec.TaskID); err != nil {
		return "", errors.Wrapf(err, "failed to store working dir of task %s", jec.TaskID)
	}
	return task.WorkingDir, nil
}

func (h *descriptorNormalizer) newWorkingDir(scratch, name string) string {
	if scratch == "" {
		scratch = h.scratchDir
	}
	return path.Join(scratch,
		fmt.Sprintf("%s_%s_%s", name, h.now().Format(_dirDateLayout), uuid.New()))
}

func jecTask(jec *core.ExecutionContext) *model.TaskDetails {
	return &model.TaskDetails{
		TaskID:         jec.TaskID,
		ExperimentID:   jec.ExperimentID,
		WorkflowNodeID: jec.WorkflowNodeID,
		ApplicationID:  jec.ApplicationID,
	}
}
