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

	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
)

// directorySetup creates the working, input and output directories on the
// compute host.
type directorySetup struct {
	recorder core.ErrorRecorder
	metrics  *Metrics
}

func (h *directorySetup) Initialize(props map[string]string) error { return nil }

func (h *directorySetup) Invoke(ctx context.Context, jec *core.ExecutionContext) error {
	dep, err := deploymentOf(jec)
	if err != nil {
		return err
	}
	cl, err := security.ClusterFrom(jec)
	if err != nil {
		return transportFailure(ctx, h.recorder, jec, "directory setup",
			model.ErrorCategoryFileSystemFailure, model.CorrectiveActionContactSupport,
			err, "Security context is not set properly")
	}

	for _, dir := range []string{dep.WorkingDir, dep.InputDir, dep.OutputDir} {
		if dir == "" {
			continue
		}
		if err := cl.MakeDirectory(ctx, dir); err != nil {
			h.metrics.TransferFail.Inc(1)
			return transportFailure(ctx, h.recorder, jec, "mkdir "+dir,
				model.ErrorCategoryFileSystemFailure, model.CorrectiveActionContactSupport,
				err, "Could not create directory "+dir+" on "+cl.ServerInfo().Host)
		}
		h.metrics.DirectoriesCreated.Inc(1)
	}
	return nil
}
