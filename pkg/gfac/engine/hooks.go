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

	"github.com/apache/airavata-gfac/pkg/gfac/checkpoint"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/pipeline"
	"github.com/apache/airavata-gfac/pkg/model"
)

type checkpointHooks struct {
	store *checkpoint.Store
}

// NewPipelineHooks checkpoints the progress of every handler and provider
// in store.
func NewPipelineHooks(store *checkpoint.Store) pipeline.Hooks {
	return &checkpointHooks{store: store}
}

func (h *checkpointHooks) UpdatePluginState(
	ctx context.Context,
	jec *core.ExecutionContext,
	plugin string,
	state model.PluginState) error {
	return h.store.UpdatePluginState(ctx, jec.ExperimentID, jec.TaskID, plugin, state)
}

func (h *checkpointHooks) PluginState(
	ctx context.Context,
	jec *core.ExecutionContext,
	plugin string) (model.PluginState, error) {
	return h.store.PluginState(ctx, jec.ExperimentID, jec.TaskID, plugin)
}
