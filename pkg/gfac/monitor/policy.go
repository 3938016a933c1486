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

package monitor

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
)

// UnknownStatePolicy decides the state of a job that keeps reporting
// UNKNOWN. It returns false to keep waiting.
type UnknownStatePolicy interface {
	Resolve(ctx context.Context, mid *model.MonitorID, jec *core.ExecutionContext) (model.JobState, bool)
}

// ThresholdPolicy fails a job once its failed count reaches Threshold.
type ThresholdPolicy struct {
	Threshold int
}

// Resolve implements UnknownStatePolicy.
func (p ThresholdPolicy) Resolve(
	ctx context.Context,
	mid *model.MonitorID,
	jec *core.ExecutionContext) (model.JobState, bool) {
	if mid.FailedCount() >= p.Threshold {
		return model.JobStateFailed, true
	}
	return model.JobStateUnknown, false
}

// OutputCheckPolicy completes a job whose status stays UNKNOWN but whose
// output directory has files; batch systems forget finished jobs. An empty
// directory restarts the count.
type OutputCheckPolicy struct {
	Threshold int
}

// Resolve implements UnknownStatePolicy.
func (p OutputCheckPolicy) Resolve(
	ctx context.Context,
	mid *model.MonitorID,
	jec *core.ExecutionContext) (model.JobState, bool) {
	if mid.FailedCount() < p.Threshold || jec.Deployment == nil {
		return model.JobStateUnknown, false
	}
	cl, err := security.ClusterFrom(jec)
	if err != nil {
		return model.JobStateFailed, true
	}
	files, err := cl.ListDirectory(ctx, jec.Deployment.OutputDir)
	if err != nil {
		log.WithError(err).
			WithField(common.JobIDLogField, mid.JobID).
			Warn("Failed to list output directory of job in unknown state")
	}
	if len(files) > 0 {
		return model.JobStateComplete, true
	}
	mid.ResetFailedCount()
	return model.JobStateUnknown, false
}
