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

package model

import (
	"sync"
	"time"
)

// MonitorID is the monitoring record of one remote job.
type MonitorID struct {
	sync.RWMutex

	UserName       string
	Host           *HostDescription
	ExperimentID   string
	TaskID         string
	WorkflowNodeID string
	JobID          string
	JobName        string
	JobStartedTime time.Time

	lastMonitored time.Time
	state         JobState
	seenKnown     bool
	failedCount   int
}

// NewMonitorID creates a record for a job that was just submitted.
func NewMonitorID(id JobIdentity, jobName, userName string, host *HostDescription) *MonitorID {
	return &MonitorID{
		UserName:       userName,
		Host:           host,
		ExperimentID:   id.ExperimentID,
		TaskID:         id.TaskID,
		WorkflowNodeID: id.WorkflowNodeID,
		JobID:          id.JobID,
		JobName:        jobName,
		JobStartedTime: time.Now(),
		state:          JobStateUnSubmitted,
	}
}

// Identity returns the job identity of the monitored job.
func (m *MonitorID) Identity() JobIdentity {
	return JobIdentity{
		JobID:          m.JobID,
		TaskID:         m.TaskID,
		WorkflowNodeID: m.WorkflowNodeID,
		ExperimentID:   m.ExperimentID,
	}
}

// SetState records an observation. An UNKNOWN observation increments the
// failed count once any other state has been observed; every other
// observation resets it.
func (m *MonitorID) SetState(s JobState) {
	m.Lock()
	defer m.Unlock()

	if s == JobStateUnknown {
		if m.seenKnown {
			m.failedCount++
		}
	} else {
		m.seenKnown = true
		m.failedCount = 0
	}
	m.state = s
	m.lastMonitored = time.Now()
}

// State returns the last observed state.
func (m *MonitorID) State() JobState {
	m.RLock()
	defer m.RUnlock()
	return m.state
}

// FailedCount returns the number of consecutive UNKNOWN observations.
func (m *MonitorID) FailedCount() int {
	m.RLock()
	defer m.RUnlock()
	return m.failedCount
}

// LastMonitored returns the time of the last observation.
func (m *MonitorID) LastMonitored() time.Time {
	m.RLock()
	defer m.RUnlock()
	return m.lastMonitored
}

// ResetFailedCount clears the failed count once a policy looked at the job
// and decided to keep waiting.
func (m *MonitorID) ResetFailedCount() {
	m.Lock()
	defer m.Unlock()
	m.failedCount = 0
}
