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
	"container/list"
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
)

const (
	// DefaultMaxWorkers of a Pool.
	DefaultMaxWorkers = 4
)

// Job is a unit of work run by the pool.
type Job interface {
	Run(ctx context.Context)
}

// JobFunc adapts a function to the Job interface.
type JobFunc func(ctx context.Context)

// Run calls f(ctx).
func (f JobFunc) Run(ctx context.Context) { f(ctx) }

// PoolOptions for constructing a new Pool.
type PoolOptions struct {
	MaxWorkers int
}

// Pool runs up to MaxWorkers jobs concurrently. All enqueued jobs are
// accepted and kept in FIFO order until a worker is free. Jobs receive a
// context that is canceled when the pool is stopped.
type Pool struct {
	sync.Mutex
	cond *sync.Cond

	options PoolOptions
	queue   *list.List
	running bool
	ctx     context.Context
	cancel  context.CancelFunc

	jobs    sync.WaitGroup
	workers sync.WaitGroup

	queued tally.Gauge
	done   tally.Counter
	panics tally.Counter
}

// NewPool returns a new pool.
func NewPool(o PoolOptions, scope tally.Scope) *Pool {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	if scope == nil {
		scope = tally.NoopScope
	}
	p := &Pool{
		options: o,
		queue:   list.New(),
		queued:  scope.Gauge("queued"),
		done:    scope.Counter("done"),
		panics:  scope.Counter("panics"),
	}
	p.cond = sync.NewCond(&p.Mutex)
	return p
}

// Enqueue a job in the pool. Jobs enqueued before Start run once the pool is
// started.
func (p *Pool) Enqueue(job Job) {
	p.jobs.Add(1)
	p.Lock()
	p.queue.PushBack(job)
	p.queued.Update(float64(p.queue.Len()))
	p.Unlock()
	p.cond.Signal()
}

// WaitUntilProcessed blocks until the queue is empty and all workers are
// idle.
func (p *Pool) WaitUntilProcessed() {
	p.jobs.Wait()
}

// Start spawns the workers. Calling Start on a running pool is a no-op.
func (p *Pool) Start() {
	p.Lock()
	defer p.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	for i := 0; i < p.options.MaxWorkers; i++ {
		p.workers.Add(1)
		go p.runWorker(p.ctx)
	}
}

// Stop cancels the context of running jobs and waits for the workers to
// exit. Jobs still queued are dropped.
func (p *Pool) Stop() {
	p.Lock()
	if !p.running {
		p.Unlock()
		return
	}
	p.running = false
	p.cancel()
	for p.queue.Len() > 0 {
		p.queue.Remove(p.queue.Front())
		p.jobs.Done()
	}
	p.queued.Update(0)
	p.Unlock()
	p.cond.Broadcast()
	p.workers.Wait()
}

func (p *Pool) next() Job {
	p.Lock()
	defer p.Unlock()
	for p.running && p.queue.Len() == 0 {
		p.cond.Wait()
	}
	if !p.running {
		return nil
	}
	job := p.queue.Remove(p.queue.Front()).(Job)
	p.queued.Update(float64(p.queue.Len()))
	return job
}

func (p *Pool) runWorker(ctx context.Context) {
	defer p.workers.Done()
	for {
		job := p.next()
		if job == nil {
			return
		}
		p.run(ctx, job)
	}
}

func (p *Pool) run(ctx context.Context, job Job) {
	defer p.jobs.Done()
	defer func() {
		if r := recover(); r != nil {
			p.panics.Inc(1)
			log.WithField("panic", r).Error("async job panicked")
		}
	}()
	job.Run(ctx)
	p.done.Inc(1)
}
