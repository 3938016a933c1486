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

package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
)

func TestEmptyPool(t *testing.T) {
	p := NewPool(PoolOptions{MaxWorkers: 1}, nil)
	p.WaitUntilProcessed()
}

func TestPoolEnqueueAndRunMany(t *testing.T) {
	scope := tally.NewTestScope("", map[string]string{})
	p := NewPool(PoolOptions{}, scope)
	c := 100
	p.Start()
	defer p.Stop()

	r := atomic.NewInt64(0)
	for i := 0; i < c; i++ {
		p.Enqueue(JobFunc(func(ctx context.Context) {
			r.Inc()
		}))
	}

	p.WaitUntilProcessed()
	assert.Equal(t, int64(c), r.Load())
	assert.Equal(t, int64(c), scope.Snapshot().Counters()["done+"].Value())
}

func TestPoolEnqueueConcurrentAndRunMany(t *testing.T) {
	p := NewPool(PoolOptions{}, nil)
	c := 100
	p.Start()
	defer p.Stop()

	r := atomic.NewInt64(0)
	var wg sync.WaitGroup
	wg.Add(c)
	for i := 0; i < c; i++ {
		go func() {
			p.Enqueue(JobFunc(func(ctx context.Context) {
				r.Inc()
			}))
			wg.Done()
		}()
	}
	wg.Wait()

	p.WaitUntilProcessed()
	assert.Equal(t, int64(c), r.Load())
}

func TestPoolEnqueueBeforeStart(t *testing.T) {
	p := NewPool(PoolOptions{MaxWorkers: 2}, nil)
	r := atomic.NewInt64(0)
	p.Enqueue(JobFunc(func(ctx context.Context) { r.Inc() }))

	p.Start()
	defer p.Stop()
	p.WaitUntilProcessed()
	assert.Equal(t, int64(1), r.Load())
}

func TestPoolRecoversPanics(t *testing.T) {
	p := NewPool(PoolOptions{MaxWorkers: 1}, nil)
	p.Start()
	defer p.Stop()

	r := atomic.NewInt64(0)
	p.Enqueue(JobFunc(func(ctx context.Context) { panic("boom") }))
	p.Enqueue(JobFunc(func(ctx context.Context) { r.Inc() }))
	p.WaitUntilProcessed()
	assert.Equal(t, int64(1), r.Load())
}

func TestPoolStopCancelsRunningJobs(t *testing.T) {
	p := NewPool(PoolOptions{MaxWorkers: 1}, nil)
	p.Start()

	started := make(chan struct{})
	canceled := atomic.NewBool(false)
	p.Enqueue(JobFunc(func(ctx context.Context) {
		close(started)
		select {
		case <-ctx.Done():
			canceled.Store(true)
		case <-time.After(5 * time.Second):
		}
	}))
	<-started

	p.Stop()
	assert.True(t, canceled.Load())
	p.WaitUntilProcessed()

	// stopping twice is harmless
	p.Stop()
}
