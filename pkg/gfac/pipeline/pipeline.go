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

package pipeline

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/model"
)

// HandlerConfig names a handler and its initialization properties.
type HandlerConfig struct {
	Name       string            `yaml:"name" validate:"nonzero"`
	Properties map[string]string `yaml:"properties"`
}

// Config lists the handlers of both flows in invocation order and the
// provider used for every host type.
type Config struct {
	InFlow  []HandlerConfig `yaml:"in_flow"`
	OutFlow []HandlerConfig `yaml:"out_flow"`

	// Providers maps a host type (gsi, ssh, cloud, unicore) to a provider
	// name.
	Providers map[string]string `yaml:"providers"`
}

// Hooks observe plugin progress so that an interrupted submission can be
// resumed.
type Hooks interface {
	UpdatePluginState(ctx context.Context, jec *core.ExecutionContext, plugin string, state model.PluginState) error
	PluginState(ctx context.Context, jec *core.ExecutionContext, plugin string) (model.PluginState, error)
}

type noopHooks struct{}

func (noopHooks) UpdatePluginState(context.Context, *core.ExecutionContext, string, model.PluginState) error {
	return nil
}

func (noopHooks) PluginState(context.Context, *core.ExecutionContext, string) (model.PluginState, error) {
	return model.PluginStateNotFound, nil
}

// NoopHooks ignores plugin progress.
var NoopHooks Hooks = noopHooks{}

type namedHandler struct {
	name    string
	handler core.Handler
}

// Pipeline runs the handlers and the provider of a submission.
type Pipeline struct {
	registry  *Registry
	inFlow    []namedHandler
	outFlow   []namedHandler
	providers map[model.HostType]string
	hooks     Hooks
	metrics   *Metrics
}

func buildFlow(reg *Registry, flow string, cfgs []HandlerConfig) ([]namedHandler, error) {
	handlers := make([]namedHandler, 0, len(cfgs))
	for _, hc := range cfgs {
		f, ok := reg.handler(hc.Name)
		if !ok {
			return nil, common.NewConfigurationError(flow,
				fmt.Errorf("unknown handler %q", hc.Name))
		}
		h := f()
		props := hc.Properties
		if props == nil {
			props = map[string]string{}
		}
		if err := h.Initialize(props); err != nil {
			return nil, common.NewConfigurationError(flow,
				fmt.Errorf("failed to initialize handler %s: %v", hc.Name, err))
		}
		handlers = append(handlers, namedHandler{name: hc.Name, handler: h})
	}
	return handlers, nil
}

// Build resolves and initializes every configured plugin. A nil hooks
// disables plugin checkpoints.
func Build(reg *Registry, cfg Config, hooks Hooks, scope tally.Scope) (*Pipeline, error) {
	inFlow, err := buildFlow(reg, string(common.StageInFlow), cfg.InFlow)
	if err != nil {
		return nil, err
	}
	outFlow, err := buildFlow(reg, string(common.StageOutFlow), cfg.OutFlow)
	if err != nil {
		return nil, err
	}

	providers := make(map[model.HostType]string, len(cfg.Providers))
	for hostType, name := range cfg.Providers {
		t, err := model.ParseHostType(hostType)
		if err != nil {
			return nil, common.NewConfigurationError("providers", err)
		}
		if _, ok := reg.provider(name); !ok {
			return nil, common.NewConfigurationError("providers",
				fmt.Errorf("unknown provider %q for host type %s", name, hostType))
		}
		providers[t] = name
	}

	if hooks == nil {
		hooks = NoopHooks
	}
	p := &Pipeline{
		registry:  reg,
		inFlow:    inFlow,
		outFlow:   outFlow,
		providers: providers,
		hooks:     hooks,
		metrics:   NewMetrics(scope.SubScope("pipeline")),
	}
	log.WithFields(log.Fields{
		"in_flow":   p.InFlowNames(),
		"out_flow":  p.OutFlowNames(),
		"providers": cfg.Providers,
	}).Info("Handler pipeline built")
	return p, nil
}

func names(handlers []namedHandler) []string {
	result := make([]string, 0, len(handlers))
	for _, h := range handlers {
		result = append(result, h.name)
	}
	return result
}

// InFlowNames returns the in-flow handler names in invocation order.
func (p *Pipeline) InFlowNames() []string { return names(p.inFlow) }

// OutFlowNames returns the out-flow handler names in invocation order.
func (p *Pipeline) OutFlowNames() []string { return names(p.outFlow) }

// NewProvider creates the provider configured for hostType.
func (p *Pipeline) NewProvider(hostType model.HostType) (string, core.Provider, error) {
	name, ok := p.providers[hostType]
	if !ok {
		return "", nil, fmt.Errorf("no provider configured for host type %s", hostType)
	}
	f, _ := p.registry.provider(name)
	return name, f(), nil
}

// updatePlugin records plugin progress. Failing to record it only affects
// recovery, so the error is logged.
func (p *Pipeline) updatePlugin(
	ctx context.Context,
	jec *core.ExecutionContext,
	plugin string,
	state model.PluginState) {
	if err := p.hooks.UpdatePluginState(ctx, jec, plugin, state); err != nil {
		p.metrics.HookFail.Inc(1)
		log.WithError(err).WithFields(log.Fields{
			common.ExperimentIDLogField: jec.ExperimentID,
			common.TaskIDLogField:       jec.TaskID,
			"plugin":                    plugin,
			"state":                     state.String(),
		}).Warn("Failed to checkpoint plugin state")
	}
}

func (p *Pipeline) invoke(
	ctx context.Context,
	jec *core.ExecutionContext,
	stage common.PipelineStage,
	h namedHandler) error {
	p.updatePlugin(ctx, jec, h.name, model.PluginStateInvoking)
	sw := p.metrics.HandlerLatency.Start()
	err := h.handler.Invoke(ctx, jec)
	sw.Stop()
	if err != nil {
		p.metrics.HandlerFail.Inc(1)
		return common.NewPipelineError(stage, h.name, err)
	}
	p.metrics.HandlerSuccess.Inc(1)
	p.updatePlugin(ctx, jec, h.name, model.PluginStateCompleted)
	return nil
}

func (p *Pipeline) invokeFlow(
	ctx context.Context,
	jec *core.ExecutionContext,
	stage common.PipelineStage,
	handlers []namedHandler) error {
	for _, h := range handlers {
		if err := p.invoke(ctx, jec, stage, h); err != nil {
			return err
		}
	}
	return nil
}

// reInvokeFlow runs handlers that had not finished. Finished handlers are
// recovered when they support it and skipped otherwise.
func (p *Pipeline) reInvokeFlow(
	ctx context.Context,
	jec *core.ExecutionContext,
	stage common.PipelineStage,
	handlers []namedHandler) error {
	for _, h := range handlers {
		state, err := p.hooks.PluginState(ctx, jec, h.name)
		if err != nil {
			log.WithError(err).WithField("plugin", h.name).
				Warn("Failed to read plugin state, invoking again")
			state = model.PluginStateNotFound
		}
		if state < model.PluginStateInvoked {
			if err := p.invoke(ctx, jec, stage, h); err != nil {
				return err
			}
			continue
		}

		rh, ok := h.handler.(core.RecoverableHandler)
		if !ok {
			p.metrics.HandlerSkipped.Inc(1)
			continue
		}
		if err := rh.Recover(ctx, jec); err != nil {
			p.metrics.HandlerFail.Inc(1)
			return common.NewPipelineError(stage, h.name, err)
		}
		p.metrics.HandlerRecovered.Inc(1)
		p.updatePlugin(ctx, jec, h.name, model.PluginStateCompleted)
	}
	return nil
}

// InvokeInFlow runs the in-flow handlers in order and stops at the first
// failure.
func (p *Pipeline) InvokeInFlow(ctx context.Context, jec *core.ExecutionContext) error {
	return p.invokeFlow(ctx, jec, common.StageInFlow, p.inFlow)
}

// InvokeOutFlow runs the out-flow handlers in order and stops at the first
// failure.
func (p *Pipeline) InvokeOutFlow(ctx context.Context, jec *core.ExecutionContext) error {
	return p.invokeFlow(ctx, jec, common.StageOutFlow, p.outFlow)
}

// ReInvokeInFlow resumes the in-flow of a relaunched submission.
func (p *Pipeline) ReInvokeInFlow(ctx context.Context, jec *core.ExecutionContext) error {
	return p.reInvokeFlow(ctx, jec, common.StageInFlow, p.inFlow)
}

// ReInvokeOutFlow resumes the out-flow of a relaunched submission.
func (p *Pipeline) ReInvokeOutFlow(ctx context.Context, jec *core.ExecutionContext) error {
	return p.reInvokeFlow(ctx, jec, common.StageOutFlow, p.outFlow)
}

// RunProvider initializes and executes the provider bound to jec. Dispose
// runs whatever happened before; its error is appended to the primary one.
func (p *Pipeline) RunProvider(ctx context.Context, jec *core.ExecutionContext) error {
	return p.runProvider(ctx, jec, func(prov core.Provider) (common.PipelineStage, error) {
		return common.StageProviderExecute, prov.Execute(ctx, jec)
	})
}

// RecoverProvider re-attaches to a submission that was in flight. Providers
// that cannot recover are executed again.
func (p *Pipeline) RecoverProvider(ctx context.Context, jec *core.ExecutionContext) error {
	if _, ok := jec.Provider.(core.RecoverableProvider); !ok {
		log.WithFields(log.Fields{
			common.ExperimentIDLogField: jec.ExperimentID,
			common.TaskIDLogField:       jec.TaskID,
			"provider":                  jec.ProviderName,
		}).Info("Provider cannot recover, executing again")
		return p.RunProvider(ctx, jec)
	}
	return p.runProvider(ctx, jec, func(prov core.Provider) (common.PipelineStage, error) {
		p.metrics.ProviderRecovered.Inc(1)
		return common.StageProviderExecute, prov.(core.RecoverableProvider).Recover(ctx, jec)
	})
}

func (p *Pipeline) runProvider(
	ctx context.Context,
	jec *core.ExecutionContext,
	run func(core.Provider) (common.PipelineStage, error)) (err error) {
	prov := jec.Provider
	name := jec.ProviderName
	if prov == nil {
		return common.NewPipelineError(common.StageProviderInit, name,
			fmt.Errorf("no provider bound to task %s", jec.TaskID))
	}

	defer func() {
		if derr := prov.Dispose(ctx, jec); derr != nil {
			p.metrics.DisposeFail.Inc(1)
			derr = common.NewPipelineError(common.StageProviderDispose, name, derr)
			if err == nil {
				err = derr
				return
			}
			err = multierror.Append(err, derr)
		}
	}()

	p.updatePlugin(ctx, jec, name, model.PluginStateInvoking)
	if ierr := prov.Initialize(ctx, jec); ierr != nil {
		p.metrics.ProviderFail.Inc(1)
		return common.NewPipelineError(common.StageProviderInit, name, ierr)
	}
	if stage, rerr := run(prov); rerr != nil {
		p.metrics.ProviderFail.Inc(1)
		return common.NewPipelineError(stage, name, rerr)
	}
	p.metrics.ProviderSuccess.Inc(1)
	p.updatePlugin(ctx, jec, name, model.PluginStateInvoked)
	return nil
}
