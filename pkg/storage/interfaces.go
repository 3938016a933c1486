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

package storage

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/apache/airavata-gfac/pkg/model"
)

// EntityType names a kind of registry record.
type EntityType int

// Registry record kinds.
const (
	EntityJobDetails EntityType = iota + 1
	EntityTaskDetails
	EntityWorkflowNodeDetails
	EntityExperiment
)

func (t EntityType) String() string {
	switch t {
	case EntityJobDetails:
		return "job_details"
	case EntityTaskDetails:
		return "task_details"
	case EntityWorkflowNodeDetails:
		return "workflow_node_details"
	case EntityExperiment:
		return "experiment"
	}
	return fmt.Sprintf("EntityType(%d)", int(t))
}

// ErrNotFound is returned by Get when no record exists.
var ErrNotFound = errors.New("registry entity not found")

// Registry is the persistent store of experiments, workflow nodes, tasks
// and jobs. Get returns a pointer to the model type matching t
// (*model.JobDetails, *model.TaskDetails, *model.WorkflowNodeDetails or
// *model.Experiment). Update creates or replaces the record.
type Registry interface {
	Get(ctx context.Context, t EntityType, id string) (interface{}, error)
	Update(ctx context.Context, t EntityType, entity interface{}, id string) error
}

// NewEntity returns an empty model value for t.
func NewEntity(t EntityType) (interface{}, error) {
	switch t {
	case EntityJobDetails:
		return &model.JobDetails{}, nil
	case EntityTaskDetails:
		return &model.TaskDetails{}, nil
	case EntityWorkflowNodeDetails:
		return &model.WorkflowNodeDetails{}, nil
	case EntityExperiment:
		return &model.Experiment{}, nil
	}
	return nil, errors.Errorf("unsupported entity type %v", t)
}

// CheckEntity verifies that entity is the model type stored for t.
func CheckEntity(t EntityType, entity interface{}) error {
	var ok bool
	switch t {
	case EntityJobDetails:
		_, ok = entity.(*model.JobDetails)
	case EntityTaskDetails:
		_, ok = entity.(*model.TaskDetails)
	case EntityWorkflowNodeDetails:
		_, ok = entity.(*model.WorkflowNodeDetails)
	case EntityExperiment:
		_, ok = entity.(*model.Experiment)
	}
	if !ok {
		return errors.Errorf("entity %T cannot be stored as %v", entity, t)
	}
	return nil
}

// GetJob reads the job with the given registry key.
func GetJob(ctx context.Context, r Registry, key string) (*model.JobDetails, error) {
	v, err := r.Get(ctx, EntityJobDetails, key)
	if err != nil {
		return nil, err
	}
	return v.(*model.JobDetails), nil
}

// GetTask reads a task.
func GetTask(ctx context.Context, r Registry, id string) (*model.TaskDetails, error) {
	v, err := r.Get(ctx, EntityTaskDetails, id)
	if err != nil {
		return nil, err
	}
	return v.(*model.TaskDetails), nil
}

// GetWorkflowNode reads a workflow node.
func GetWorkflowNode(
	ctx context.Context,
	r Registry,
	id string) (*model.WorkflowNodeDetails, error) {
	v, err := r.Get(ctx, EntityWorkflowNodeDetails, id)
	if err != nil {
		return nil, err
	}
	return v.(*model.WorkflowNodeDetails), nil
}

// GetExperiment reads an experiment.
func GetExperiment(ctx context.Context, r Registry, id string) (*model.Experiment, error) {
	v, err := r.Get(ctx, EntityExperiment, id)
	if err != nil {
		return nil, err
	}
	return v.(*model.Experiment), nil
}

// IsNotFound returns true if err says that a record does not exist.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
