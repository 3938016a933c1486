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

package checkpoint

import (
	"context"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/libkv/store"
	"github.com/docker/libkv/store/zookeeper"
	"github.com/pkg/errors"
	"github.com/samuel/go-zookeeper/zk"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/common/backoff"
	"github.com/apache/airavata-gfac/pkg/model"
)

const (
	_stateNode = "state"
	// separates experiment and task id in the experiment node name
	_keySeparator = "+"

	_defaultConnectionTimeout = 10 * time.Second
	_defaultReconnectTimeout  = 30 * time.Second
	_defaultUpdateAttempts    = 5
	_defaultUpdateInterval    = 50 * time.Millisecond
)

// ErrReconnectTimeout is returned when the coordination store could not be
// reached within the reconnect timeout.
var ErrReconnectTimeout = errors.New("timed out waiting for coordination store connection")

// Config configures the coordination store.
type Config struct {
	// ZKServers is the list of zookeeper servers.
	ZKServers []string `yaml:"zk_servers"`

	// Root is the path under which every server keeps its experiments,
	// e.g. /airavata/gfac-experiments.
	Root string `yaml:"root"`

	// ServerName is the name of this server. Experiments assigned to it
	// live under <root>/<server_name>.
	ServerName string `yaml:"server_name"`

	ConnectionTimeout time.Duration `yaml:"connection_timeout"`

	// ReconnectTimeout bounds how long an operation waits for the
	// connection to come back.
	ReconnectTimeout time.Duration `yaml:"reconnect_timeout"`

	// MaxUpdateAttempts bounds retries of a state write that lost a
	// version race.
	MaxUpdateAttempts   int           `yaml:"max_update_attempts"`
	UpdateRetryInterval time.Duration `yaml:"update_retry_interval"`

	// MaxUpdateRetryInterval, when above UpdateRetryInterval, doubles the
	// interval after every lost race up to this value.
	MaxUpdateRetryInterval time.Duration `yaml:"max_update_retry_interval"`
}

func (c *Config) normalize() {
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = _defaultConnectionTimeout
	}
	if c.ReconnectTimeout <= 0 {
		c.ReconnectTimeout = _defaultReconnectTimeout
	}
	if c.MaxUpdateAttempts <= 0 {
		c.MaxUpdateAttempts = _defaultUpdateAttempts
	}
	if c.UpdateRetryInterval <= 0 {
		c.UpdateRetryInterval = _defaultUpdateInterval
	}
}

func (c *Config) updatePolicy() backoff.RetryPolicy {
	if c.MaxUpdateRetryInterval > c.UpdateRetryInterval {
		return backoff.NewExponentialPolicy(
			c.MaxUpdateAttempts, c.UpdateRetryInterval, c.MaxUpdateRetryInterval)
	}
	return backoff.NewRetryPolicy(c.MaxUpdateAttempts, c.UpdateRetryInterval)
}

// Dialer opens a new connection to the coordination store.
type Dialer func() (store.Store, error)

// ZookeeperDialer returns a Dialer connecting to the configured zookeeper
// ensemble.
func ZookeeperDialer(cfg Config) Dialer {
	return func() (store.Store, error) {
		timeout := cfg.ConnectionTimeout
		if timeout <= 0 {
			timeout = _defaultConnectionTimeout
		}
		return zookeeper.New(cfg.ZKServers, &store.Config{ConnectionTimeout: timeout})
	}
}

// ExperimentKey names one in-flight submission.
type ExperimentKey struct {
	ExperimentID string
	TaskID       string
}

func (k ExperimentKey) String() string {
	return k.ExperimentID + _keySeparator + k.TaskID
}

// ParseExperimentKey parses an experiment node name.
func ParseExperimentKey(name string) (ExperimentKey, bool) {
	i := strings.LastIndex(name, _keySeparator)
	if i <= 0 || i == len(name)-1 {
		return ExperimentKey{}, false
	}
	return ExperimentKey{ExperimentID: name[:i], TaskID: name[i+1:]}, true
}

// Store checkpoints the internal state of submissions so that they can be
// resumed after a crash. All operations share one connection; the mutex is
// only held while reconnecting.
type Store struct {
	cfg     Config
	dial    Dialer
	policy  backoff.RetryPolicy
	metrics *Metrics

	sync.RWMutex
	kv store.Store

	reconnectMu sync.Mutex
}

// New creates a Store on zookeeper. The connection is opened lazily.
func New(cfg Config, scope tally.Scope) *Store {
	return NewWithDialer(cfg, ZookeeperDialer(cfg), scope)
}

// NewWithDialer creates a Store using dial to open connections.
func NewWithDialer(cfg Config, dial Dialer, scope tally.Scope) *Store {
	cfg.normalize()
	return &Store{
		cfg:     cfg,
		dial:    dial,
		policy:  cfg.updatePolicy(),
		metrics: NewMetrics(scope.SubScope("checkpoint")),
	}
}

// ServerPath is the parent of all experiment nodes of this server. There is
// no leading "/" since libkv adds it.
func (s *Store) ServerPath() string {
	return strings.TrimPrefix(path.Join(s.cfg.Root, s.cfg.ServerName), "/")
}

// ExperimentPath is the node of one submission.
func (s *Store) ExperimentPath(experimentID, taskID string) string {
	return path.Join(s.ServerPath(), ExperimentKey{experimentID, taskID}.String())
}

// StatePath is the node holding the internal state of one submission.
func (s *Store) StatePath(experimentID, taskID string) string {
	return path.Join(s.ExperimentPath(experimentID, taskID), _stateNode)
}

// PluginStatePath is the node holding the state of one handler or provider
// of a submission.
func (s *Store) PluginStatePath(experimentID, taskID, plugin string) string {
	return path.Join(s.ExperimentPath(experimentID, taskID), plugin, _stateNode)
}

func isConnectionError(err error) bool {
	switch errors.Cause(err) {
	case zk.ErrNoServer, zk.ErrConnectionClosed, zk.ErrSessionExpired,
		zk.ErrClosing, store.ErrNotReachable, ErrReconnectTimeout:
		return true
	}
	return false
}

func isVersionConflict(err error) bool {
	return err == store.ErrKeyExists || err == store.ErrKeyModified
}

type dialResult struct {
	kv  store.Store
	err error
}

// reconnect replaces stale by a new connection and waits for it to answer,
// at most ReconnectTimeout. Concurrent callers wait for the same attempt.
func (s *Store) reconnect(ctx context.Context, stale store.Store) (store.Store, error) {
	s.reconnectMu.Lock()
	defer s.reconnectMu.Unlock()

	s.RLock()
	current := s.kv
	s.RUnlock()
	if current != nil && current != stale {
		return current, nil
	}
	if stale != nil {
		s.Lock()
		s.kv = nil
		s.Unlock()
		stale.Close()
	}

	s.metrics.Reconnects.Inc(1)
	serverPath := s.ServerPath()
	result := make(chan dialResult, 1)
	go func() {
		kv, err := s.dial()
		if err == nil {
			// the first round trip is the connected acknowledgment
			_, err = kv.Exists(serverPath)
			if err != nil {
				kv.Close()
				kv = nil
			}
		}
		result <- dialResult{kv: kv, err: err}
	}()

	timer := time.NewTimer(s.cfg.ReconnectTimeout)
	defer timer.Stop()
	select {
	case r := <-result:
		if r.err != nil {
			s.metrics.ReconnectFail.Inc(1)
			return nil, errors.Wrap(r.err, "failed to connect to coordination store")
		}
		s.Lock()
		s.kv = r.kv
		s.Unlock()
		log.WithField("servers", s.cfg.ZKServers).Info("Connected to coordination store")
		return r.kv, nil
	case <-timer.C:
	case <-ctx.Done():
	}

	s.metrics.ReconnectFail.Inc(1)
	go func() {
		if r := <-result; r.kv != nil {
			r.kv.Close()
		}
	}()
	return nil, ErrReconnectTimeout
}

func (s *Store) client(ctx context.Context) (store.Store, error) {
	s.RLock()
	kv := s.kv
	s.RUnlock()
	if kv != nil {
		return kv, nil
	}
	return s.reconnect(ctx, nil)
}

// do runs op on a live connection. On a connection error the connection is
// re-established once and op is retried.
func (s *Store) do(ctx context.Context, op func(kv store.Store) error) error {
	kv, err := s.client(ctx)
	if err != nil {
		return err
	}
	err = op(kv)
	if err == nil || !isConnectionError(err) {
		return err
	}

	log.WithError(err).Warn("Lost connection to coordination store, reconnecting")
	kv, rerr := s.reconnect(ctx, kv)
	if rerr != nil {
		return rerr
	}
	return op(kv)
}

// createOrUpdate writes value to key, creating the node when it does not
// exist and otherwise updating it against the version just read.
func createOrUpdate(kv store.Store, key string, value []byte) error {
	pair, err := kv.Get(key)
	if err == store.ErrKeyNotFound {
		_, _, err = kv.AtomicPut(key, value, nil, nil)
		return err
	}
	if err != nil {
		return err
	}
	_, _, err = kv.AtomicPut(key, value, pair, nil)
	return err
}

func (s *Store) write(ctx context.Context, kv store.Store, key string, value []byte) error {
	return backoff.Retry(ctx, func() error {
		err := createOrUpdate(kv, key, value)
		if isVersionConflict(err) {
			s.metrics.VersionConflicts.Inc(1)
		}
		return err
	}, s.policy, isVersionConflict)
}

// UpdateState checkpoints state for a submission. The experiment node must
// exist; otherwise a MonitoringInconsistencyError is returned. Terminal
// states remove the whole experiment subtree.
func (s *Store) UpdateState(
	ctx context.Context,
	experimentID, taskID string,
	state model.GfacExperimentState) error {
	expPath := s.ExperimentPath(experimentID, taskID)
	statePath := s.StatePath(experimentID, taskID)
	value := []byte(strconv.Itoa(int(state)))

	err := s.do(ctx, func(kv store.Store) error {
		exists, err := kv.Exists(expPath)
		if err != nil {
			return err
		}
		if !exists {
			return &common.MonitoringInconsistencyError{Path: expPath}
		}
		return s.write(ctx, kv, statePath, value)
	})
	if err != nil {
		if common.IsMonitoringInconsistency(err) {
			s.metrics.Inconsistencies.Inc(1)
			log.WithFields(log.Fields{
				common.ExperimentIDLogField: experimentID,
				common.TaskIDLogField:       taskID,
				"state":                     state.String(),
			}).Warn("Experiment node missing, dropping checkpoint update")
			return err
		}
		s.metrics.UpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to checkpoint %s for %s", state, expPath)
	}
	s.metrics.Updates.Inc(1)

	if state.IsTerminal() {
		return s.DeleteExperiment(ctx, experimentID, taskID)
	}
	return nil
}

// ReadState returns the checkpointed state of a submission. The second
// return value is false if no state was checkpointed yet.
func (s *Store) ReadState(
	ctx context.Context,
	experimentID, taskID string) (model.GfacExperimentState, bool, error) {
	var pair *store.KVPair
	err := s.do(ctx, func(kv store.Store) error {
		var err error
		pair, err = kv.Get(s.StatePath(experimentID, taskID))
		return err
	})
	if err == store.ErrKeyNotFound {
		return model.GfacStateUnknown, false, nil
	}
	if err != nil {
		return model.GfacStateUnknown, false, errors.Wrap(err, "failed to read checkpoint")
	}
	v, err := strconv.Atoi(string(pair.Value))
	if err != nil {
		return model.GfacStateUnknown, false,
			errors.Wrapf(err, "invalid checkpoint value %q", pair.Value)
	}
	return model.GfacExperimentStateFromValue(v), true, nil
}

// UpdatePluginState checkpoints the state of one handler or provider. Like
// UpdateState it requires the experiment node.
func (s *Store) UpdatePluginState(
	ctx context.Context,
	experimentID, taskID, plugin string,
	state model.PluginState) error {
	expPath := s.ExperimentPath(experimentID, taskID)
	key := s.PluginStatePath(experimentID, taskID, plugin)
	value := []byte(strconv.Itoa(int(state)))
	err := s.do(ctx, func(kv store.Store) error {
		exists, err := kv.Exists(expPath)
		if err != nil {
			return err
		}
		if !exists {
			return &common.MonitoringInconsistencyError{Path: expPath}
		}
		return s.write(ctx, kv, key, value)
	})
	if common.IsMonitoringInconsistency(err) {
		s.metrics.Inconsistencies.Inc(1)
		return err
	}
	if err != nil {
		s.metrics.UpdateFail.Inc(1)
		return errors.Wrapf(err, "failed to checkpoint plugin %s", plugin)
	}
	return nil
}

// PluginState returns the checkpointed state of a plugin, or
// model.PluginStateNotFound.
func (s *Store) PluginState(
	ctx context.Context,
	experimentID, taskID, plugin string) (model.PluginState, error) {
	var pair *store.KVPair
	err := s.do(ctx, func(kv store.Store) error {
		var err error
		pair, err = kv.Get(s.PluginStatePath(experimentID, taskID, plugin))
		return err
	})
	if err == store.ErrKeyNotFound {
		return model.PluginStateNotFound, nil
	}
	if err != nil {
		return model.PluginStateNotFound, errors.Wrap(err, "failed to read plugin checkpoint")
	}
	v, err := strconv.Atoi(string(pair.Value))
	if err != nil {
		return model.PluginStateNotFound, errors.Wrapf(err, "invalid plugin state %q", pair.Value)
	}
	return model.PluginState(v), nil
}

// RegisterExperiment creates the experiment node of a submission with the
// credential token as its value.
func (s *Store) RegisterExperiment(
	ctx context.Context,
	experimentID, taskID, token string) error {
	key := s.ExperimentPath(experimentID, taskID)
	return s.do(ctx, func(kv store.Store) error {
		_, _, err := kv.AtomicPut(key, []byte(token), nil, nil)
		if err == store.ErrKeyExists {
			return nil
		}
		return err
	})
}

// ReadToken returns the credential token stored on the experiment node.
func (s *Store) ReadToken(ctx context.Context, experimentID, taskID string) (string, error) {
	key := s.ExperimentPath(experimentID, taskID)
	var pair *store.KVPair
	err := s.do(ctx, func(kv store.Store) error {
		var err error
		pair, err = kv.Get(key)
		return err
	})
	if err == store.ErrKeyNotFound {
		return "", &common.MonitoringInconsistencyError{Path: key}
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to read experiment node")
	}
	return string(pair.Value), nil
}

// DeleteExperiment removes the experiment node and everything below it.
// Deleting a missing node is not an error.
func (s *Store) DeleteExperiment(ctx context.Context, experimentID, taskID string) error {
	key := s.ExperimentPath(experimentID, taskID)
	err := s.do(ctx, func(kv store.Store) error {
		return deleteRecursive(kv, key)
	})
	if err != nil && err != store.ErrKeyNotFound {
		s.metrics.DeleteFail.Inc(1)
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	s.metrics.Deletes.Inc(1)
	log.WithFields(log.Fields{
		common.ExperimentIDLogField: experimentID,
		common.TaskIDLogField:       taskID,
	}).Debug("Experiment checkpoint removed")
	return nil
}

// deleteRecursive removes children before their parent since a zookeeper
// node with children cannot be deleted.
func deleteRecursive(kv store.Store, key string) error {
	children, err := kv.List(key)
	if err == store.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := deleteRecursive(kv, path.Join(key, child.Key)); err != nil {
			return err
		}
	}
	err = kv.Delete(key)
	if err == store.ErrKeyNotFound {
		return nil
	}
	return err
}

// ensureServerPath creates the parent of the experiment nodes.
func (s *Store) ensureServerPath(kv store.Store) error {
	exists, err := kv.Exists(s.ServerPath())
	if err != nil || exists {
		return err
	}
	return kv.Put(s.ServerPath(), nil, &store.WriteOptions{IsDir: true})
}

func toKeys(pairs []*store.KVPair) []ExperimentKey {
	var keys []ExperimentKey
	for _, p := range pairs {
		if k, ok := ParseExperimentKey(path.Base(p.Key)); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// ListExperiments returns every submission assigned to this server.
func (s *Store) ListExperiments(ctx context.Context) ([]ExperimentKey, error) {
	var pairs []*store.KVPair
	err := s.do(ctx, func(kv store.Store) error {
		if err := s.ensureServerPath(kv); err != nil {
			return err
		}
		var err error
		pairs, err = kv.List(s.ServerPath())
		return err
	})
	if err == store.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list experiments")
	}
	return toKeys(pairs), nil
}

// WatchExperiments sends the submissions assigned to this server whenever
// the set changes, until stopCh is closed.
func (s *Store) WatchExperiments(
	ctx context.Context,
	stopCh <-chan struct{}) (<-chan []ExperimentKey, error) {
	var pairsCh <-chan []*store.KVPair
	err := s.do(ctx, func(kv store.Store) error {
		if err := s.ensureServerPath(kv); err != nil {
			return err
		}
		var err error
		pairsCh, err = kv.WatchTree(s.ServerPath(), stopCh)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to watch experiments")
	}

	out := make(chan []ExperimentKey)
	go func() {
		defer close(out)
		for {
			select {
			case pairs, ok := <-pairsCh:
				if !ok {
					return
				}
				select {
				case out <- toKeys(pairs):
				case <-stopCh:
					return
				}
			case <-stopCh:
				return
			}
		}
	}()
	return out, nil
}

// Healthy returns an error if the coordination store cannot be reached.
func (s *Store) Healthy() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnectionTimeout)
	defer cancel()
	return s.do(ctx, func(kv store.Store) error {
		_, err := kv.Exists(s.ServerPath())
		return err
	})
}

// KV returns the live connection, for components sharing it such as leader
// election.
func (s *Store) KV(ctx context.Context) (store.Store, error) {
	return s.client(ctx)
}

// Close closes the connection.
func (s *Store) Close() {
	s.Lock()
	defer s.Unlock()
	if s.kv != nil {
		s.kv.Close()
		s.kv = nil
	}
}
