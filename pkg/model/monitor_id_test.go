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
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMonitorIDFailedCount(t *testing.T) {
	m := NewMonitorID(JobIdentity{JobID: "j1", TaskID: "t1"}, "job", "user", nil)

	// nothing known yet
	m.SetState(JobStateUnknown)
	assert.Equal(t, 0, m.FailedCount())

	m.SetState(JobStateQueued)
	m.SetState(JobStateUnknown)
	m.SetState(JobStateUnknown)
	assert.Equal(t, 2, m.FailedCount())
	assert.Equal(t, JobStateUnknown, m.State())

	m.SetState(JobStateActive)
	assert.Equal(t, 0, m.FailedCount())
	assert.False(t, m.LastMonitored().IsZero())
}

func TestMonitorIDFailedCountProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		known := rapid.SampledFrom([]JobState{
			JobStateSubmitted, JobStateQueued, JobStateActive, JobStateHeld,
		}).Draw(t, "known")
		observations := rapid.SliceOf(
			rapid.SampledFrom(AllJobStates())).Draw(t, "observations")

		m := NewMonitorID(JobIdentity{JobID: "j"}, "", "", nil)
		m.SetState(known)

		expected := 0
		for _, s := range observations {
			before := m.FailedCount()
			m.SetState(s)
			if s == JobStateUnknown {
				expected++
				if m.FailedCount() != before+1 {
					t.Fatalf("UNKNOWN did not increment: %d -> %d", before, m.FailedCount())
				}
			} else {
				expected = 0
				if m.FailedCount() != 0 {
					t.Fatalf("%s did not reset failed count", s)
				}
			}
		}
		if m.FailedCount() != expected {
			t.Fatalf("expected %d, got %d", expected, m.FailedCount())
		}
	})
}
