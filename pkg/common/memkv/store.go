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

// Package memkv is an in-process implementation of the libkv store.Store
// interface following the zookeeper backend semantics: keys form a tree,
// parents are created implicitly, versions start at 0 and a node with
// children cannot be deleted.
package memkv

import (
	"errors"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/docker/libkv/store"
)

// ErrNotEmpty is returned by Delete for a node that still has children.
var ErrNotEmpty = errors.New("node has children")

type node struct {
	value   []byte
	version uint64
}

type treeWatcher struct {
	dir  string
	ch   chan []*store.KVPair
	stop <-chan struct{}
}

type keyWatcher struct {
	key  string
	ch   chan *store.KVPair
	stop <-chan struct{}
}

// Store is a libkv store kept in memory.
type Store struct {
	sync.Mutex
	nodes        map[string]*node
	treeWatchers []*treeWatcher
	keyWatchers  []*keyWatcher
	locks        map[string]chan struct{}
	closed       bool
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nodes: make(map[string]*node),
		locks: make(map[string]chan struct{}),
	}
}

func normalize(key string) string {
	return strings.Trim(path.Clean("/"+key), "/")
}

func parent(key string) string {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return ""
	}
	return key[:i]
}

// must be called with the lock held
func (s *Store) createParents(key string) {
	for p := parent(key); p != ""; p = parent(p) {
		if _, ok := s.nodes[p]; ok {
			return
		}
		s.nodes[p] = &node{}
	}
}

// must be called with the lock held
func (s *Store) children(dir string) []string {
	prefix := dir + "/"
	if dir == "" {
		prefix = ""
	}
	var names []string
	for k := range s.nodes {
		if !strings.HasPrefix(k, prefix) || k == dir {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if rest != "" && !strings.Contains(rest, "/") {
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Store) pair(key string, n *node) *store.KVPair {
	return &store.KVPair{
		Key:       key,
		Value:     append([]byte(nil), n.value...),
		LastIndex: n.version,
	}
}

// must be called with the lock held
func (s *Store) listLocked(dir string) []*store.KVPair {
	var pairs []*store.KVPair
	for _, name := range s.children(dir) {
		p := s.pair(name, s.nodes[path.Join(dir, name)])
		pairs = append(pairs, p)
	}
	return pairs
}

// must be called with the lock held
func (s *Store) notify(key string) {
	for _, w := range s.keyWatchers {
		if w.key != key {
			continue
		}
		if n, ok := s.nodes[key]; ok {
			select {
			case w.ch <- s.pair(key, n):
			case <-w.stop:
			default:
			}
		}
	}
	dir := parent(key)
	for _, w := range s.treeWatchers {
		if w.dir != dir {
			continue
		}
		if _, ok := s.nodes[dir]; !ok {
			continue
		}
		select {
		case w.ch <- s.listLocked(dir):
		case <-w.stop:
		default:
		}
	}
}

// Put sets the value of key, creating it and its parents if needed.
func (s *Store) Put(key string, value []byte, options *store.WriteOptions) error {
	key = normalize(key)
	s.Lock()
	defer s.Unlock()
	if n, ok := s.nodes[key]; ok {
		n.value = append([]byte(nil), value...)
		n.version++
	} else {
		s.createParents(key)
		s.nodes[key] = &node{value: append([]byte(nil), value...)}
	}
	s.notify(key)
	return nil
}

// Get returns the value of key.
func (s *Store) Get(key string) (*store.KVPair, error) {
	key = normalize(key)
	s.Lock()
	defer s.Unlock()
	n, ok := s.nodes[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	return s.pair(key, n), nil
}

// Delete removes a leaf node.
func (s *Store) Delete(key string) error {
	key = normalize(key)
	s.Lock()
	defer s.Unlock()
	if _, ok := s.nodes[key]; !ok {
		return store.ErrKeyNotFound
	}
	if len(s.children(key)) > 0 {
		return ErrNotEmpty
	}
	delete(s.nodes, key)
	s.notify(key)
	return nil
}

// Exists returns true if key exists.
func (s *Store) Exists(key string) (bool, error) {
	key = normalize(key)
	s.Lock()
	defer s.Unlock()
	_, ok := s.nodes[key]
	return ok, nil
}

// Watch sends the value of key whenever it changes.
func (s *Store) Watch(key string, stopCh <-chan struct{}) (<-chan *store.KVPair, error) {
	key = normalize(key)
	s.Lock()
	defer s.Unlock()
	n, ok := s.nodes[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	w := &keyWatcher{key: key, ch: make(chan *store.KVPair, 16), stop: stopCh}
	w.ch <- s.pair(key, n)
	s.keyWatchers = append(s.keyWatchers, w)
	go s.removeOnStop(stopCh, func() { s.removeKeyWatcher(w) })
	return w.ch, nil
}

// WatchTree sends the children of directory whenever one of them changes.
func (s *Store) WatchTree(directory string, stopCh <-chan struct{}) (<-chan []*store.KVPair, error) {
	directory = normalize(directory)
	s.Lock()
	defer s.Unlock()
	if _, ok := s.nodes[directory]; !ok {
		return nil, store.ErrKeyNotFound
	}
	w := &treeWatcher{dir: directory, ch: make(chan []*store.KVPair, 16), stop: stopCh}
	w.ch <- s.listLocked(directory)
	s.treeWatchers = append(s.treeWatchers, w)
	go s.removeOnStop(stopCh, func() { s.removeTreeWatcher(w) })
	return w.ch, nil
}

func (s *Store) removeOnStop(stopCh <-chan struct{}, remove func()) {
	if stopCh == nil {
		return
	}
	<-stopCh
	remove()
}

func (s *Store) removeKeyWatcher(w *keyWatcher) {
	s.Lock()
	defer s.Unlock()
	for i, kw := range s.keyWatchers {
		if kw == w {
			s.keyWatchers = append(s.keyWatchers[:i], s.keyWatchers[i+1:]...)
			close(w.ch)
			return
		}
	}
}

func (s *Store) removeTreeWatcher(w *treeWatcher) {
	s.Lock()
	defer s.Unlock()
	for i, tw := range s.treeWatchers {
		if tw == w {
			s.treeWatchers = append(s.treeWatchers[:i], s.treeWatchers[i+1:]...)
			close(w.ch)
			return
		}
	}
}

// List returns the direct children of directory with keys relative to it.
func (s *Store) List(directory string) ([]*store.KVPair, error) {
	directory = normalize(directory)
	s.Lock()
	defer s.Unlock()
	if _, ok := s.nodes[directory]; !ok {
		return nil, store.ErrKeyNotFound
	}
	return s.listLocked(directory), nil
}

// DeleteTree removes directory and everything below it.
func (s *Store) DeleteTree(directory string) error {
	directory = normalize(directory)
	s.Lock()
	defer s.Unlock()
	if _, ok := s.nodes[directory]; !ok {
		return store.ErrKeyNotFound
	}
	for k := range s.nodes {
		if k == directory || strings.HasPrefix(k, directory+"/") {
			delete(s.nodes, k)
		}
	}
	s.notify(directory)
	return nil
}

// AtomicPut creates key when previous is nil and otherwise updates it only
// if its version still matches previous.
func (s *Store) AtomicPut(
	key string,
	value []byte,
	previous *store.KVPair,
	options *store.WriteOptions) (bool, *store.KVPair, error) {
	key = normalize(key)
	s.Lock()
	defer s.Unlock()

	n, ok := s.nodes[key]
	if previous == nil {
		if ok {
			return false, nil, store.ErrKeyExists
		}
		s.createParents(key)
		n = &node{value: append([]byte(nil), value...)}
		s.nodes[key] = n
		s.notify(key)
		return true, s.pair(key, n), nil
	}

	if !ok {
		return false, nil, store.ErrKeyNotFound
	}
	if n.version != previous.LastIndex {
		return false, nil, store.ErrKeyModified
	}
	n.value = append([]byte(nil), value...)
	n.version++
	s.notify(key)
	return true, s.pair(key, n), nil
}

// AtomicDelete deletes key only if its version still matches previous.
func (s *Store) AtomicDelete(key string, previous *store.KVPair) (bool, error) {
	if previous == nil {
		return false, store.ErrPreviousNotSpecified
	}
	key = normalize(key)
	s.Lock()
	defer s.Unlock()
	n, ok := s.nodes[key]
	if !ok {
		return false, store.ErrKeyNotFound
	}
	if n.version != previous.LastIndex {
		return false, store.ErrKeyModified
	}
	delete(s.nodes, key)
	s.notify(key)
	return true, nil
}

// NewLock returns a lock on key. Only one holder at a time can own it.
func (s *Store) NewLock(key string, options *store.LockOptions) (store.Locker, error) {
	l := &lock{store: s, key: normalize(key)}
	if options != nil {
		l.value = options.Value
	}
	return l, nil
}

// Close releases all watchers.
func (s *Store) Close() {
	s.Lock()
	defer s.Unlock()
	s.closed = true
}

type lock struct {
	store *Store
	key   string
	value []byte
	lost  chan struct{}
}

// Lock blocks until the lock is acquired or stopChan is closed.
func (l *lock) Lock(stopChan chan struct{}) (<-chan struct{}, error) {
	for {
		l.store.Lock()
		held, busy := l.store.locks[l.key]
		if !busy {
			l.lost = make(chan struct{})
			l.store.locks[l.key] = l.lost
			l.store.createParents(l.key)
			l.store.nodes[l.key] = &node{value: append([]byte(nil), l.value...)}
			l.store.notify(l.key)
			l.store.Unlock()
			return l.lost, nil
		}
		l.store.Unlock()

		select {
		case <-held:
		case <-stopChan:
			return nil, store.ErrCannotLock
		}
	}
}

// Unlock releases the lock.
func (l *lock) Unlock() error {
	l.store.Lock()
	defer l.store.Unlock()
	held, ok := l.store.locks[l.key]
	if !ok || held != l.lost {
		return nil
	}
	delete(l.store.locks, l.key)
	delete(l.store.nodes, l.key)
	close(held)
	l.store.notify(l.key)
	return nil
}
