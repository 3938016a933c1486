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

// Package handler provides the in-flow and out-flow handlers of the
// execution pipeline.
package handler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/pipeline"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
	"github.com/apache/airavata-gfac/pkg/storage"
)

// Registered handler names.
const (
	DescriptorNormalizer = "descriptor-normalizer"
	SSHDirectorySetup    = "ssh-directory-setup"
	SSHInputStaging      = "ssh-input-staging"
	SSHOutputStaging     = "ssh-output-staging"
	S3OutputUpload       = "s3-output-upload"
)

// CloudContextSource builds the cloud context of a gateway for an object
// store account.
type CloudContextSource interface {
	CloudContext(
		ctx context.Context,
		gatewayID string,
		host *model.CloudHost) (*security.CloudContext, error)
}

// Dependencies are shared by all handlers.
type Dependencies struct {
	Registry storage.Registry
	Recorder core.ErrorRecorder
	Clouds   CloudContextSource
	Scope    tally.Scope

	// Now defaults to time.Now.
	Now func() time.Time
}

// Register adds every handler of this package to reg.
func Register(reg *pipeline.Registry, deps Dependencies) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Scope == nil {
		deps.Scope = tally.NoopScope
	}
	metrics := NewMetrics(deps.Scope.SubScope("handler"))

	factories := map[string]core.HandlerFactory{
		DescriptorNormalizer: func() core.Handler {
			return &descriptorNormalizer{registry: deps.Registry, now: deps.Now}
		},
		SSHDirectorySetup: func() core.Handler {
			return &directorySetup{recorder: deps.Recorder, metrics: metrics}
		},
		SSHInputStaging: func() core.Handler {
			return &inputStaging{recorder: deps.Recorder, metrics: metrics}
		},
		SSHOutputStaging: func() core.Handler {
			return &outputStaging{recorder: deps.Recorder, metrics: metrics}
		},
		S3OutputUpload: func() core.Handler {
			return &s3Upload{clouds: deps.Clouds, recorder: deps.Recorder, metrics: metrics}
		},
	}
	for _, name := range []string{
		DescriptorNormalizer,
		SSHDirectorySetup,
		SSHInputStaging,
		SSHOutputStaging,
		S3OutputUpload,
	} {
		if err := reg.RegisterHandler(name, factories[name]); err != nil {
			return err
		}
	}
	return nil
}

// transportFailure records the failure against the task and returns it as
// a TransportError.
func transportFailure(
	ctx context.Context,
	recorder core.ErrorRecorder,
	jec *core.ExecutionContext,
	op string,
	category model.ErrorCategory,
	action model.CorrectiveAction,
	cause error,
	userMessage string) error {
	err := common.NewTransportError(op, category, action, cause)
	if recorder != nil {
		if rerr := recorder.SaveErrorDetails(ctx, jec.TaskID, err, userMessage); rerr != nil {
			log.WithError(rerr).
				WithField(common.TaskIDLogField, jec.TaskID).
				Error("Failed to record error details")
		}
	}
	log.WithError(cause).WithFields(log.Fields{
		common.ExperimentIDLogField: jec.ExperimentID,
		common.TaskIDLogField:       jec.TaskID,
		"op":                        op,
	}).Warn("Transport operation failed")
	return err
}

func deploymentOf(jec *core.ExecutionContext) (*model.ApplicationDeployment, error) {
	if jec.Deployment == nil {
		return nil, errNoDeployment
	}
	return jec.Deployment, nil
}
