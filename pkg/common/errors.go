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

package common

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/apache/airavata-gfac/pkg/model"
)

// ConfigurationError is returned when a component cannot be built from its
// configuration. These errors are fatal at startup.
type ConfigurationError struct {
	Component string
	cause     error
}

// NewConfigurationError wraps cause as a configuration error of component.
func NewConfigurationError(component string, cause error) error {
	return &ConfigurationError{Component: component, cause: cause}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %v", e.Component, e.cause)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error { return e.cause }

// SecurityContextError is returned when credentials for a host cannot be
// assembled.
type SecurityContextError struct {
	Host  string
	cause error
}

// NewSecurityContextError wraps cause as a failure to build a security
// context for host.
func NewSecurityContextError(host string, cause error) error {
	return &SecurityContextError{Host: host, cause: cause}
}

func (e *SecurityContextError) Error() string {
	return fmt.Sprintf("unable to build security context for host %s: %v", e.Host, e.cause)
}

// Unwrap returns the underlying error.
func (e *SecurityContextError) Unwrap() error { return e.cause }

// TransportError is a failure to move data to or from a compute resource.
// It carries the classification recorded in the task's error details.
type TransportError struct {
	Op       string
	Category model.ErrorCategory
	Action   model.CorrectiveAction
	cause    error
}

// NewTransportError wraps cause as a failed transport operation.
func NewTransportError(
	op string,
	category model.ErrorCategory,
	action model.CorrectiveAction,
	cause error) error {
	return &TransportError{Op: op, Category: category, Action: action, cause: cause}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.cause)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.cause }

// PipelineStage names the part of a submission where a plugin failed.
type PipelineStage string

// Pipeline stages.
const (
	StageInFlow          PipelineStage = "in-flow"
	StageOutFlow         PipelineStage = "out-flow"
	StageProviderInit    PipelineStage = "provider-initialize"
	StageProviderExecute PipelineStage = "provider-execute"
	StageProviderDispose PipelineStage = "provider-dispose"
)

// PipelineError identifies the handler or provider that failed.
type PipelineError struct {
	Stage  PipelineStage
	Plugin string
	cause  error
}

// NewPipelineError wraps cause as a failure of plugin during stage.
func NewPipelineError(stage PipelineStage, plugin string, cause error) error {
	return &PipelineError{Stage: stage, Plugin: plugin, cause: cause}
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("error while executing %s %s: %v", e.Stage, e.Plugin, e.cause)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error { return e.cause }

// MonitoringInconsistencyError is returned when a checkpoint update refers to
// an experiment node that does not exist in the coordination store.
type MonitoringInconsistencyError struct {
	Path string
}

func (e *MonitoringInconsistencyError) Error() string {
	return fmt.Sprintf("experiment node %s does not exist", e.Path)
}

// IsConfigurationError returns true if err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsTransportError returns true if err wraps a TransportError. Transport
// errors were already recorded against their task.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsMonitoringInconsistency returns true if err wraps a
// MonitoringInconsistencyError.
func IsMonitoringInconsistency(err error) bool {
	var target *MonitoringInconsistencyError
	return errors.As(err, &target)
}

// FailedPlugin returns the plugin named by a wrapped PipelineError.
func FailedPlugin(err error) (string, PipelineStage, bool) {
	var target *PipelineError
	if errors.As(err, &target) {
		return target.Plugin, target.Stage, true
	}
	return "", "", false
}

// Classify returns the error category and corrective action that should be
// recorded for err.
func Classify(err error) (model.ErrorCategory, model.CorrectiveAction) {
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.Category, transport.Action
	}
	var sec *SecurityContextError
	if errors.As(err, &sec) {
		return model.ErrorCategorySystemFailure, model.CorrectiveActionContactSupport
	}
	if IsConfigurationError(err) {
		return model.ErrorCategorySystemFailure, model.CorrectiveActionContactSupport
	}
	return model.ErrorCategoryApplicationFailure, model.CorrectiveActionCannotBeDetermined
}
