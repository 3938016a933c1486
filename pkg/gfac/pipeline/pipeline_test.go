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

package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/core/mocks"
	"github.com/apache/airavata-gfac/pkg/gfac/pipeline"
	"github.com/apache/airavata-gfac/pkg/model"
)

// recordingHooks keeps plugin states in memory.
type recordingHooks struct {
	states  map[string]model.PluginState
	history []string
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{states: make(map[string]model.PluginState)}
}

func (h *recordingHooks) UpdatePluginState(
	_ context.Context, _ *core.ExecutionContext, plugin string, state model.PluginState) error {
	h.states[plugin] = state
	h.history = append(h.history, plugin+":"+state.String())
	return nil
}

func (h *recordingHooks) PluginState(
	_ context.Context, _ *core.ExecutionContext, plugin string) (model.PluginState, error) {
	if s, ok := h.states[plugin]; ok {
		return s, nil
	}
	return model.PluginStateNotFound, nil
}

type PipelineTestSuite struct {
	suite.Suite

	ctx   context.Context
	ctrl  *gomock.Controller
	reg   *pipeline.Registry
	hooks *recordingHooks
	jec   *core.ExecutionContext

	first  *mocks.MockHandler
	second *mocks.MockRecoverableHandler
	third  *mocks.MockHandler
	out    *mocks.MockHandler
}

func (suite *PipelineTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.ctrl = gomock.NewController(suite.T())
	suite.hooks = newRecordingHooks()
	suite.jec = core.NewExecutionContext("exp", "task")

	suite.first = mocks.NewMockHandler(suite.ctrl)
	suite.second = mocks.NewMockRecoverableHandler(suite.ctrl)
	suite.third = mocks.NewMockHandler(suite.ctrl)
	suite.out = mocks.NewMockHandler(suite.ctrl)

	suite.reg = pipeline.NewRegistry()
	suite.NoError(suite.reg.RegisterHandler("first", func() core.Handler { return suite.first }))
	suite.NoError(suite.reg.RegisterHandler("second", func() core.Handler { return suite.second }))
	suite.NoError(suite.reg.RegisterHandler("third", func() core.Handler { return suite.third }))
	suite.NoError(suite.reg.RegisterHandler("out", func() core.Handler { return suite.out }))
}

func (suite *PipelineTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func TestPipeline(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (suite *PipelineTestSuite) build() *pipeline.Pipeline {
	suite.first.EXPECT().Initialize(map[string]string{"a": "1"}).Return(nil)
	suite.second.EXPECT().Initialize(map[string]string{}).Return(nil)
	suite.third.EXPECT().Initialize(map[string]string{}).Return(nil)
	suite.out.EXPECT().Initialize(map[string]string{}).Return(nil)

	p, err := pipeline.Build(suite.reg, pipeline.Config{
		InFlow: []pipeline.HandlerConfig{
			{Name: "first", Properties: map[string]string{"a": "1"}},
			{Name: "second"},
			{Name: "third"},
		},
		OutFlow: []pipeline.HandlerConfig{{Name: "out"}},
	}, suite.hooks, tally.NoopScope)
	suite.NoError(err)
	return p
}

func (suite *PipelineTestSuite) TestDuplicateRegistration() {
	suite.Error(suite.reg.RegisterHandler("first", func() core.Handler { return suite.first }))
	suite.NoError(suite.reg.RegisterProvider("p", func() core.Provider { return nil }))
	suite.Error(suite.reg.RegisterProvider("p", func() core.Provider { return nil }))
	suite.Equal([]string{"first", "out", "second", "third"}, suite.reg.HandlerNames())
	suite.Equal([]string{"p"}, suite.reg.ProviderNames())
}

func (suite *PipelineTestSuite) TestBuildUnknownHandler() {
	_, err := pipeline.Build(suite.reg, pipeline.Config{
		InFlow: []pipeline.HandlerConfig{{Name: "missing"}},
	}, nil, tally.NoopScope)
	suite.Error(err)
	suite.True(common.IsConfigurationError(err))
}

func (suite *PipelineTestSuite) TestBuildInitFailure() {
	suite.first.EXPECT().Initialize(gomock.Any()).Return(errors.New("bad property"))
	_, err := pipeline.Build(suite.reg, pipeline.Config{
		OutFlow: []pipeline.HandlerConfig{{Name: "first"}},
	}, nil, tally.NoopScope)
	suite.True(common.IsConfigurationError(err))
}

func (suite *PipelineTestSuite) TestBuildProviders() {
	_, err := pipeline.Build(suite.reg, pipeline.Config{
		Providers: map[string]string{"ssh": "missing"},
	}, nil, tally.NoopScope)
	suite.True(common.IsConfigurationError(err))

	_, err = pipeline.Build(suite.reg, pipeline.Config{
		Providers: map[string]string{"mainframe": "p"},
	}, nil, tally.NoopScope)
	suite.True(common.IsConfigurationError(err))

	prov := mocks.NewMockProvider(suite.ctrl)
	suite.NoError(suite.reg.RegisterProvider("p", func() core.Provider { return prov }))
	p, err := pipeline.Build(suite.reg, pipeline.Config{
		Providers: map[string]string{"ssh": "p"},
	}, nil, tally.NoopScope)
	suite.NoError(err)

	name, got, err := p.NewProvider(model.HostTypeSSH)
	suite.NoError(err)
	suite.Equal("p", name)
	suite.Equal(prov, got)

	_, _, err = p.NewProvider(model.HostTypeGSI)
	suite.Error(err)
}

func (suite *PipelineTestSuite) TestInFlowOrder() {
	p := suite.build()
	suite.Equal([]string{"first", "second", "third"}, p.InFlowNames())
	suite.Equal([]string{"out"}, p.OutFlowNames())

	gomock.InOrder(
		suite.first.EXPECT().Invoke(suite.ctx, suite.jec).Return(nil),
		suite.second.EXPECT().Invoke(suite.ctx, suite.jec).Return(nil),
		suite.third.EXPECT().Invoke(suite.ctx, suite.jec).Return(nil),
	)
	suite.NoError(p.InvokeInFlow(suite.ctx, suite.jec))
	suite.Equal([]string{
		"first:INVOKING", "first:COMPLETED",
		"second:INVOKING", "second:COMPLETED",
		"third:INVOKING", "third:COMPLETED",
	}, suite.hooks.history)
}

func (suite *PipelineTestSuite) TestInFlowAbortsOnFailure() {
	p := suite.build()

	gomock.InOrder(
		suite.first.EXPECT().Invoke(suite.ctx, suite.jec).Return(nil),
		suite.second.EXPECT().Invoke(suite.ctx, suite.jec).Return(errors.New("scp failed")),
	)
	err := p.InvokeInFlow(suite.ctx, suite.jec)
	suite.Error(err)

	plugin, stage, ok := common.FailedPlugin(err)
	suite.True(ok)
	suite.Equal("second", plugin)
	suite.Equal(common.StageInFlow, stage)
	suite.Contains(err.Error(), "scp failed")
	suite.Equal(model.PluginStateInvoking, suite.hooks.states["second"])
	_, ran := suite.hooks.states["third"]
	suite.False(ran)
}

func (suite *PipelineTestSuite) TestOutFlow() {
	p := suite.build()
	suite.out.EXPECT().Invoke(suite.ctx, suite.jec).Return(errors.New("disk full"))
	err := p.InvokeOutFlow(suite.ctx, suite.jec)
	_, stage, ok := common.FailedPlugin(err)
	suite.True(ok)
	suite.Equal(common.StageOutFlow, stage)
}

func (suite *PipelineTestSuite) TestReInvokeInFlow() {
	p := suite.build()
	suite.hooks.states["first"] = model.PluginStateCompleted
	suite.hooks.states["second"] = model.PluginStateCompleted
	suite.hooks.states["third"] = model.PluginStateInvoking

	// first is skipped, second recovered, third invoked again
	gomock.InOrder(
		suite.second.EXPECT().Recover(suite.ctx, suite.jec).Return(nil),
		suite.third.EXPECT().Invoke(suite.ctx, suite.jec).Return(nil),
	)
	suite.NoError(p.ReInvokeInFlow(suite.ctx, suite.jec))
	suite.Equal(model.PluginStateCompleted, suite.hooks.states["third"])
}

func (suite *PipelineTestSuite) TestReInvokeRecoverFailure() {
	p := suite.build()
	suite.hooks.states["second"] = model.PluginStateInvoked

	gomock.InOrder(
		suite.first.EXPECT().Invoke(suite.ctx, suite.jec).Return(nil),
		suite.second.EXPECT().Recover(suite.ctx, suite.jec).Return(errors.New("gone")),
	)
	err := p.ReInvokeInFlow(suite.ctx, suite.jec)
	plugin, _, _ := common.FailedPlugin(err)
	suite.Equal("second", plugin)
}

func (suite *PipelineTestSuite) TestRunProviderDisposesAlways() {
	p := suite.build()
	prov := mocks.NewMockProvider(suite.ctrl)
	suite.jec.Provider = prov
	suite.jec.ProviderName = "hpc"

	gomock.InOrder(
		prov.EXPECT().Initialize(suite.ctx, suite.jec).Return(nil),
		prov.EXPECT().Execute(suite.ctx, suite.jec).Return(nil),
		prov.EXPECT().Dispose(suite.ctx, suite.jec).Return(nil),
	)
	suite.NoError(p.RunProvider(suite.ctx, suite.jec))
	suite.Equal(model.PluginStateInvoked, suite.hooks.states["hpc"])

	// dispose still runs after a failed initialize
	gomock.InOrder(
		prov.EXPECT().Initialize(suite.ctx, suite.jec).Return(errors.New("no cluster")),
		prov.EXPECT().Dispose(suite.ctx, suite.jec).Return(nil),
	)
	err := p.RunProvider(suite.ctx, suite.jec)
	plugin, stage, ok := common.FailedPlugin(err)
	suite.True(ok)
	suite.Equal("hpc", plugin)
	suite.Equal(common.StageProviderInit, stage)
}

func (suite *PipelineTestSuite) TestRunProviderDisposeErrorAppended() {
	p := suite.build()
	prov := mocks.NewMockProvider(suite.ctrl)
	suite.jec.Provider = prov
	suite.jec.ProviderName = "hpc"

	gomock.InOrder(
		prov.EXPECT().Initialize(suite.ctx, suite.jec).Return(nil),
		prov.EXPECT().Execute(suite.ctx, suite.jec).Return(errors.New("qsub failed")),
		prov.EXPECT().Dispose(suite.ctx, suite.jec).Return(errors.New("close failed")),
	)
	err := p.RunProvider(suite.ctx, suite.jec)
	merr, ok := err.(*multierror.Error)
	suite.True(ok)
	suite.Len(merr.Errors, 2)
	_, stage, _ := common.FailedPlugin(merr.Errors[0])
	suite.Equal(common.StageProviderExecute, stage)
	_, stage, _ = common.FailedPlugin(merr.Errors[1])
	suite.Equal(common.StageProviderDispose, stage)

	// a dispose failure alone is still reported
	gomock.InOrder(
		prov.EXPECT().Initialize(suite.ctx, suite.jec).Return(nil),
		prov.EXPECT().Execute(suite.ctx, suite.jec).Return(nil),
		prov.EXPECT().Dispose(suite.ctx, suite.jec).Return(errors.New("close failed")),
	)
	err = p.RunProvider(suite.ctx, suite.jec)
	_, stage, _ = common.FailedPlugin(err)
	suite.Equal(common.StageProviderDispose, stage)
}

func (suite *PipelineTestSuite) TestRecoverProvider() {
	p := suite.build()

	rp := mocks.NewMockRecoverableProvider(suite.ctrl)
	suite.jec.Provider = rp
	suite.jec.ProviderName = "hpc"
	gomock.InOrder(
		rp.EXPECT().Initialize(suite.ctx, suite.jec).Return(nil),
		rp.EXPECT().Recover(suite.ctx, suite.jec).Return(nil),
		rp.EXPECT().Dispose(suite.ctx, suite.jec).Return(nil),
	)
	suite.NoError(p.RecoverProvider(suite.ctx, suite.jec))

	// providers without recovery are executed again
	prov := mocks.NewMockProvider(suite.ctrl)
	suite.jec.Provider = prov
	gomock.InOrder(
		prov.EXPECT().Initialize(suite.ctx, suite.jec).Return(nil),
		prov.EXPECT().Execute(suite.ctx, suite.jec).Return(nil),
		prov.EXPECT().Dispose(suite.ctx, suite.jec).Return(nil),
	)
	suite.NoError(p.RecoverProvider(suite.ctx, suite.jec))
}

func (suite *PipelineTestSuite) TestRunWithoutProvider() {
	p := suite.build()
	err := p.RunProvider(suite.ctx, suite.jec)
	_, stage, ok := common.FailedPlugin(err)
	suite.True(ok)
	suite.Equal(common.StageProviderInit, stage)
}
