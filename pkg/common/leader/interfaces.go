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

// Nomination is implemented by the component that does work only while this
// process holds the leadership of its role.
type Nomination interface {
	// GainedLeadershipCallback is called when this process became leader.
	// An error gives the leadership up again.
	GainedLeadershipCallback() error
	// LostLeadershipCallback is called when the leadership was lost or
	// given up.
	LostLeadershipCallback() error
	// ShutDownCallback is called once the candidate stopped campaigning.
	ShutDownCallback() error
	// GetID returns the value stored in the leader node, see NewID.
	GetID() string
}

// Candidate campaigns for the leadership of a role.
type Candidate interface {
	IsLeader() bool
	Start() error
	Stop() error
	Resign()
}
