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
	"github.com/uber-go/tally"
)

// Metrics tracks handler and provider invocations.
type Metrics struct {
	HandlerSuccess   tally.Counter
	HandlerFail      tally.Counter
	HandlerSkipped   tally.Counter
	HandlerRecovered tally.Counter
	HandlerLatency   tally.Timer

	ProviderSuccess   tally.Counter
	ProviderFail      tally.Counter
	ProviderRecovered tally.Counter
	DisposeFail       tally.Counter

	HookFail tally.Counter
}

// NewMetrics returns a new Metrics struct rooted at scope.
func NewMetrics(scope tally.Scope) *Metrics {
	handlerScope := scope.SubScope("handler")
	providerScope := scope.SubScope("provider")
	return &Metrics{
		HandlerSuccess:   handlerScope.Counter("success"),
		HandlerFail:      handlerScope.Counter("fail"),
		HandlerSkipped:   handlerScope.Counter("skipped"),
		HandlerRecovered: handlerScope.Counter("recovered"),
		HandlerLatency:   handlerScope.Timer("latency"),

		ProviderSuccess:   providerScope.Counter("success"),
		ProviderFail:      providerScope.Counter("fail"),
		ProviderRecovered: providerScope.Counter("recovered"),
		DisposeFail:       providerScope.Counter("dispose_fail"),

		HookFail: scope.Counter("hook_fail"),
	}
}
