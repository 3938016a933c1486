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

// Package gfac holds the leader-elected server of the job execution daemon.
package gfac

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/apache/airavata-gfac/pkg/common"
)

// Runner is started while this process leads. engine.Engine implements it.
type Runner interface {
	Start(ctx context.Context) error
	Stop()
}

// Server runs the engine while this process holds the leadership of its
// server name. It implements leader.Nomination.
type Server struct {
	sync.Mutex

	ID   string
	role string

	runner Runner

	// isLeader is set once leadership callback completes
	isLeader bool
}

// NewServer creates a Server with the given leader id.
func NewServer(id string, runner Runner) *Server {
	return &Server{
		ID:     id,
		role:   common.GFacRole,
		runner: runner,
	}
}

// GainedLeadershipCallback starts the engine, which relaunches the
// submissions left in the coordination store.
func (s *Server) GainedLeadershipCallback() error {
	s.Lock()
	defer s.Unlock()

	log.WithFields(log.Fields{"role": s.role}).Info("Gained leadership")
	if err := s.runner.Start(context.Background()); err != nil {
		return err
	}
	s.isLeader = true
	return nil
}

// LostLeadershipCallback stops the engine. Submissions in flight keep their
// checkpoints for the next leader.
func (s *Server) LostLeadershipCallback() error {
	s.Lock()
	defer s.Unlock()

	log.WithField("role", s.role).Info("Lost leadership")
	s.runner.Stop()
	s.isLeader = false
	return nil
}

// ShutDownCallback is called when the process stops campaigning.
func (s *Server) ShutDownCallback() error {
	s.Lock()
	defer s.Unlock()

	log.WithFields(log.Fields{"role": s.role}).Info("Quitting election")
	s.runner.Stop()
	s.isLeader = false
	return nil
}

// HasGainedLeadership returns true iff once GainedLeadershipCallback
// completes.
func (s *Server) HasGainedLeadership() bool {
	s.Lock()
	defer s.Unlock()
	return s.isLeader
}

// GetID returns the leader id of this server.
func (s *Server) GetID() string {
	return s.ID
}
