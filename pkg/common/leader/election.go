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

package leader

import (
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/docker/libkv/store"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"
)

const (
	// ttl of the lock; zookeeper locks live as long as the session.
	ttl = 5 * time.Second

	// _defaultRetryInterval is how long to wait before campaigning again
	// after a coordination store error.
	_defaultRetryInterval = 30 * time.Second

	// _metricsUpdateTick is the period between consecutive emissions of leader
	// election metrics.
	_metricsUpdateTick = 10 * time.Second
)

// ElectionConfig is config related to leader election of this service.
type ElectionConfig struct {
	// The root path in the coordination store to use for role leader
	// election, like /airavata/gfac-leader/gfac-1.
	Root string `yaml:"root"`

	// RetryInterval is the delay before campaigning again after an error.
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// KVSource returns the coordination store client to lock with. It is asked
// again after every error so that reconnected clients are picked up.
type KVSource func() (store.Store, error)

// election holds the state of the lock based election.
type election struct {
	sync.Mutex
	metrics    electionMetrics
	running    bool
	leader     atomic.Bool
	role       string
	key        string
	retry      time.Duration
	kv         KVSource
	nomination Nomination
	stopChan   chan struct{}
	resignChan chan struct{}
	wg         sync.WaitGroup
}

// NewCandidate creates new election object to control participation in leader
// election.
func NewCandidate(
	cfg ElectionConfig,
	kv KVSource,
	parent tally.Scope,
	role string,
	nomination Nomination) (Candidate, error) {
	if role == "" {
		return nil, errors.New("You need to specify a role to campaign " +
			"for that isnt the empty string")
	}
	if kv == nil {
		return nil, errors.New("election needs a coordination store")
	}
	retry := cfg.RetryInterval
	if retry <= 0 {
		retry = _defaultRetryInterval
	}
	key := leaderPath(cfg.Root, role)
	log.WithFields(log.Fields{
		"id":          nomination.GetID(),
		"role":        role,
		"leader_path": key,
	}).Debug("Creating new Candidate")

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get hostname")
	}
	return &election{
		metrics:    newElectionMetrics(parent.SubScope("election"), hostname),
		role:       role,
		key:        key,
		retry:      retry,
		kv:         kv,
		nomination: nomination,
	}, nil
}

// Start begins running election for leadership and calls callbacks when caller
// gain/lose leadership. Store errors are retried until Stop is called.
func (el *election) Start() error {
	el.Lock()
	defer el.Unlock()

	if el.running {
		return errors.New("Already running election")
	}
	el.running = true
	el.stopChan = make(chan struct{})
	el.resignChan = make(chan struct{}, 1)
	el.metrics.Start.Inc(1)
	el.metrics.Running.Update(1)

	log.WithFields(log.Fields{"role": el.role}).Info("Joining election")

	el.wg.Add(2)
	go el.campaign(el.stopChan, el.resignChan)
	go el.updateLeaderElectionMetrics(el.stopChan, _metricsUpdateTick)
	return nil
}

// updateLeaderElectionMetrics emits leader election metrics at constant
// interval.
func (el *election) updateLeaderElectionMetrics(stopChan chan struct{}, interval time.Duration) {
	defer el.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			if el.IsLeader() {
				el.metrics.IsLeader.Update(1)
			} else {
				el.metrics.IsLeader.Update(0)
			}
		}
	}
}

// campaign runs for the lock until stopChan is closed and backs off after
// store errors.
func (el *election) campaign(stopChan, resignChan chan struct{}) {
	defer el.wg.Done()
	for {
		select {
		case <-stopChan:
			log.WithField("role", el.role).Info("Stopped running election")
			return
		default:
		}

		if err := el.runOnce(stopChan, resignChan); err != nil {
			log.WithError(err).WithField("role", el.role).
				Error("Failure running election; retrying")
			el.metrics.Error.Inc(1)
			select {
			case <-stopChan:
			case <-time.After(el.retry):
			}
		}
	}
}

// runOnce blocks until the lock is held, then until the leadership ends.
func (el *election) runOnce(stopChan, resignChan chan struct{}) error {
	// a resign requested while following has nothing to give up
	select {
	case <-resignChan:
	default:
	}

	kv, err := el.kv()
	if err != nil {
		return err
	}
	lock, err := kv.NewLock(el.key, &store.LockOptions{
		Value: []byte(el.nomination.GetID()),
		TTL:   ttl,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to create lock %s", el.key)
	}
	lostCh, err := lock.Lock(stopChan)
	if err != nil {
		select {
		case <-stopChan:
			return nil
		default:
		}
		return errors.Wrapf(err, "failed to lock %s", el.key)
	}

	el.leader.Store(true)
	log.WithFields(log.Fields{
		"id":   el.nomination.GetID(),
		"role": el.role,
	}).Info("Leadership gained")
	el.metrics.GainedLeadership.Inc(1)
	el.metrics.IsLeader.Update(1)

	if err := el.nomination.GainedLeadershipCallback(); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"id":   el.nomination.GetID(),
			"role": el.role,
		}).Error("GainedLeadershipCallback failed")
		el.release(lock)
		el.declareLostLeadership()
		return nil
	}

	select {
	case <-lostCh:
	case <-resignChan:
		el.release(lock)
	case <-stopChan:
		// the shutdown callback stops the nomination
		el.release(lock)
		el.leader.Store(false)
		el.metrics.IsLeader.Update(0)
		return nil
	}
	el.declareLostLeadership()
	return nil
}

func (el *election) release(lock store.Locker) {
	if err := lock.Unlock(); err != nil {
		log.WithError(err).WithField("role", el.role).Warn("Failed to release leader lock")
	}
}

// declareLostLeadership declares lost leadership.
func (el *election) declareLostLeadership() {
	el.leader.Store(false)
	log.WithFields(log.Fields{
		"id":   el.nomination.GetID(),
		"role": el.role,
	}).Info("Leadership lost")
	el.metrics.LostLeadership.Inc(1)
	el.metrics.IsLeader.Update(0)
	if err := el.nomination.LostLeadershipCallback(); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"id":   el.nomination.GetID(),
			"role": el.role,
		}).Error("LostLeadershipCallback failed")
	}
}

// Stop stops campaigning for leadership and calls the shutdown callback.
func (el *election) Stop() error {
	el.Lock()
	if el.running {
		el.running = false
		close(el.stopChan)
		el.metrics.Stop.Inc(1)
		el.metrics.Running.Update(0)
	}
	el.Unlock()

	el.wg.Wait()
	return el.nomination.ShutDownCallback()
}

// IsLeader returns whether this candidate is the current leader.
func (el *election) IsLeader() bool {
	el.Lock()
	defer el.Unlock()
	return el.running && el.leader.Load()
}

// Resign gives up leadership. The candidate campaigns again right away.
func (el *election) Resign() {
	el.Lock()
	defer el.Unlock()
	if !el.running {
		return
	}
	el.metrics.Resigned.Inc(1)
	select {
	case el.resignChan <- struct{}{}:
	default:
	}
}

// leaderPath returns the store key of the leader node of role.
func leaderPath(rootPath string, role string) string {
	// NOTE: remember, there cannot be a leading / for libkv.
	return strings.TrimPrefix(path.Join(rootPath, role, "leader"), "/")
}
