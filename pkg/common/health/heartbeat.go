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

package health

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
)

const _defaultHeartbeatInterval = 10 * time.Second

// Config is the heartbeat configuration.
type Config struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// LeaderState reports whether this process currently leads.
type LeaderState interface {
	IsLeader() bool
}

// Metrics are the heartbeat gauges.
type Metrics struct {
	Init      tally.Counter
	Heartbeat tally.Gauge
	Leader    tally.Gauge
	Healthy   tally.Gauge
}

// NewMetrics returns the heartbeat metrics.
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		Init:      scope.Counter("init"),
		Heartbeat: scope.Gauge("heartbeat"),
		Leader:    scope.Gauge("leader"),
		Healthy:   scope.Gauge("healthy"),
	}
}

// Heartbeat periodically emits a liveness gauge, a leader gauge set only on
// the elected leader, and the result of the health check.
type Heartbeat struct {
	sync.Mutex

	running  atomic.Bool
	stopChan chan struct{}
	doneChan chan struct{}

	metrics  *Metrics
	interval time.Duration
	leader   LeaderState
	check    func() error
}

// New creates a Heartbeat. leader and check may be nil.
func New(
	cfg Config,
	leader LeaderState,
	check func() error,
	scope tally.Scope) *Heartbeat {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = _defaultHeartbeatInterval
	}
	hb := &Heartbeat{
		metrics:  NewMetrics(scope.SubScope("health")),
		interval: cfg.HeartbeatInterval,
		leader:   leader,
		check:    check,
	}
	hb.metrics.Init.Inc(1)
	return hb
}

// Start begins emitting heartbeats. Calling it on a running heartbeat is a
// no-op.
func (hb *Heartbeat) Start() {
	hb.Lock()
	defer hb.Unlock()

	if hb.running.Swap(true) {
		log.Warn("Heartbeater is already running, no-op.")
		return
	}
	hb.stopChan = make(chan struct{})
	hb.doneChan = make(chan struct{})

	go hb.run(hb.stopChan, hb.doneChan)
	log.Info("Heartbeater started.")
}

func (hb *Heartbeat) run(stopChan, doneChan chan struct{}) {
	defer close(doneChan)

	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopChan:
			log.Info("Heartbeater stopped.")
			return
		case t := <-ticker.C:
			log.WithField("tick", t).Debug("Emitting heartbeat.")
			hb.beat()
		}
	}
}

func (hb *Heartbeat) beat() {
	hb.metrics.Heartbeat.Update(1)

	if hb.leader != nil && hb.leader.IsLeader() {
		hb.metrics.Leader.Update(1)
	} else {
		hb.metrics.Leader.Update(0)
	}

	if hb.check == nil {
		return
	}
	if err := hb.check(); err != nil {
		log.WithError(err).Warn("Health check failed")
		hb.metrics.Healthy.Update(0)
		return
	}
	hb.metrics.Healthy.Update(1)
}

// Stop stops the heartbeat and waits for the emitting goroutine to exit.
func (hb *Heartbeat) Stop() {
	hb.Lock()
	defer hb.Unlock()

	if !hb.running.Load() {
		log.Warn("Heartbeat is not running, no-op.")
		return
	}
	close(hb.stopChan)
	<-hb.doneChan
	hb.running.Store(false)
	log.Info("Heartbeat stopped.")
}
