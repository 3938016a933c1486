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
	"context"
)

// Handler is one step of the in-flow or out-flow pipeline. Initialize is
// called once when the pipeline is built; Invoke is called for every
// submission and must not keep per-submission state on the handler.
type Handler interface {
	Initialize(properties map[string]string) error
	Invoke(ctx context.Context, jec *ExecutionContext) error
}

// RecoverableHandler can continue the work of a previous, interrupted
// invocation instead of being skipped on relaunch.
type RecoverableHandler interface {
	Handler
	Recover(ctx context.Context, jec *ExecutionContext) error
}

// Provider performs the remote submission. A provider instance serves one
// submission.
type Provider interface {
	Initialize(ctx context.Context, jec *ExecutionContext) error
	Execute(ctx context.Context, jec *ExecutionContext) error
	Dispose(ctx context.Context, jec *ExecutionContext) error
}

// RecoverableProvider can pick up a submission that was in flight when the
// process stopped.
type RecoverableProvider interface {
	Provider
	Recover(ctx context.Context, jec *ExecutionContext) error
}

// CancelableProvider can cancel the remote job it submitted.
type CancelableProvider interface {
	Provider
	Cancel(ctx context.Context, jec *ExecutionContext) error
}

// HandlerFactory creates a handler instance.
type HandlerFactory func() Handler

// ProviderFactory creates a provider instance.
type ProviderFactory func() Provider

// ErrorRecorder stores a failure against a task so that it is visible to
// the user.
type ErrorRecorder interface {
	SaveErrorDetails(ctx context.Context, taskID string, cause error, userMessage string) error
}
