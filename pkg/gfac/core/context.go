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

package core

import (
	"sync"

	"github.com/apache/airavata-gfac/pkg/model"
)

// Keys under which security contexts are stored in an ExecutionContext.
const (
	GSISecurityContextKey   = "gsi"
	SSHSecurityContextKey   = "ssh"
	CloudSecurityContextKey = "cloud"
)

// SecurityContext is the credential bundle and transport handle of one
// authentication mechanism.
type SecurityContext interface {
	// Key is the name the context is stored under.
	Key() string
}

// ExecutionContext carries the state of one submission through scheduling,
// the handler pipeline and the provider. It is owned by a single submission.
type ExecutionContext struct {
	ExperimentID    string
	TaskID          string
	WorkflowNodeID  string
	GatewayID       string
	UserName        string
	ApplicationID   string
	CredentialToken string

	Host       *model.HostDescription
	Deployment *model.ApplicationDeployment
	Service    *model.ServiceDescription
	Scheduling *model.ComputationalScheduling

	ProviderName string
	Provider     Provider

	mu         sync.RWMutex
	inputs     []model.Parameter
	outputs    []model.Parameter
	job        *model.JobDetails
	monitored  bool
	security   map[string]SecurityContext
	properties map[string]interface{}
}

// NewExecutionContext creates a context for the given task.
func NewExecutionContext(experimentID, taskID string) *ExecutionContext {
	return &ExecutionContext{
		ExperimentID: experimentID,
		TaskID:       taskID,
		security:     make(map[string]SecurityContext),
		properties:   make(map[string]interface{}),
	}
}

// TaskIdentity returns the identity of the task being executed.
func (c *ExecutionContext) TaskIdentity() model.TaskIdentity {
	return model.TaskIdentity{
		TaskID:         c.TaskID,
		WorkflowNodeID: c.WorkflowNodeID,
		ExperimentID:   c.ExperimentID,
	}
}

// JobIdentity returns the identity of the submitted job. JobID is empty
// until the provider submitted the job.
func (c *ExecutionContext) JobIdentity() model.JobIdentity {
	var jobID string
	if job := c.Job(); job != nil {
		jobID = job.JobID
	}
	return model.JobIdentity{
		JobID:          jobID,
		TaskID:         c.TaskID,
		WorkflowNodeID: c.WorkflowNodeID,
		ExperimentID:   c.ExperimentID,
	}
}

// SetSecurityContext stores sc under its key, replacing any previous one.
func (c *ExecutionContext) SetSecurityContext(sc SecurityContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.security[sc.Key()] = sc
}

// SecurityContext returns the context stored under key.
func (c *ExecutionContext) SecurityContext(key string) (SecurityContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sc, ok := c.security[key]
	return sc, ok
}

// SetInputs replaces the input parameters.
func (c *ExecutionContext) SetInputs(params []model.Parameter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = append([]model.Parameter(nil), params...)
}

// Inputs returns a copy of the input parameters.
func (c *ExecutionContext) Inputs() []model.Parameter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Parameter(nil), c.inputs...)
}

// SetInput replaces the input with the same name or appends it.
func (c *ExecutionContext) SetInput(p model.Parameter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs = setParameter(c.inputs, p)
}

// SetOutputs replaces the output parameters.
func (c *ExecutionContext) SetOutputs(params []model.Parameter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = append([]model.Parameter(nil), params...)
}

// Outputs returns a copy of the output parameters.
func (c *ExecutionContext) Outputs() []model.Parameter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Parameter(nil), c.outputs...)
}

// SetOutput replaces the output with the same name or appends it.
func (c *ExecutionContext) SetOutput(p model.Parameter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = setParameter(c.outputs, p)
}

func setParameter(params []model.Parameter, p model.Parameter) []model.Parameter {
	for i := range params {
		if params[i].Name == p.Name {
			params[i] = p
			return params
		}
	}
	return append(params, p)
}

// SetJob records the job submitted for this context.
func (c *ExecutionContext) SetJob(job *model.JobDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.job = job
}

// Job returns the submitted job, nil before submission.
func (c *ExecutionContext) Job() *model.JobDetails {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.job
}

// SetMonitored marks the job as handed to the job monitor, which then owns
// running the out-flow.
func (c *ExecutionContext) SetMonitored(monitored bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monitored = monitored
}

// Monitored returns true if the job monitor runs the out-flow.
func (c *ExecutionContext) Monitored() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.monitored
}

// SetProperty stores a value in the property bag.
func (c *ExecutionContext) SetProperty(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.properties[name] = value
}

// Property returns a value from the property bag.
func (c *ExecutionContext) Property(name string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.properties[name]
	return v, ok
}

// StringProperty returns a string value from the property bag, empty when
// unset or not a string.
func (c *ExecutionContext) StringProperty(name string) string {
	v, ok := c.Property(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
