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

package monitor

import (
	"time"
)

const (
	_defaultPollInterval      = 30 * time.Second
	_defaultCancelGracePeriod = 2 * time.Minute
	_defaultHostQueryRate     = 2.0
	_defaultHostQueryBurst    = 1
	_defaultUnknownThreshold  = 3
)

// Config is the job monitor configuration.
type Config struct {
	// PollInterval is the time between two status queries of one job.
	PollInterval time.Duration `yaml:"poll_interval"`

	// CancelGracePeriod is how long a canceled job may take to report
	// CANCELED before it is forced.
	CancelGracePeriod time.Duration `yaml:"cancel_grace_period"`

	// HostQueryRate limits the status queries sent to one host, per second.
	HostQueryRate  float64 `yaml:"host_query_rate"`
	HostQueryBurst int     `yaml:"host_query_burst"`

	// UnknownThreshold is the number of consecutive UNKNOWN observations
	// after which the unknown state policy decides.
	UnknownThreshold int `yaml:"unknown_threshold"`

	// CheckOutputOnUnknown makes the policy look at the output directory of
	// a job that keeps reporting UNKNOWN: a non-empty directory completes
	// the job, an empty one restarts the count.
	CheckOutputOnUnknown bool `yaml:"check_output_on_unknown"`
}

func (c *Config) normalize() {
	if c.PollInterval <= 0 {
		c.PollInterval = _defaultPollInterval
	}
	if c.CancelGracePeriod <= 0 {
		c.CancelGracePeriod = _defaultCancelGracePeriod
	}
	if c.HostQueryRate <= 0 {
		c.HostQueryRate = _defaultHostQueryRate
	}
	if c.HostQueryBurst <= 0 {
		c.HostQueryBurst = _defaultHostQueryBurst
	}
	if c.UnknownThreshold <= 0 {
		c.UnknownThreshold = _defaultUnknownThreshold
	}
}
