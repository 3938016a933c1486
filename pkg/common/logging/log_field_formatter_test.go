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

package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLogFieldFormatterFormat(t *testing.T) {
	logFields := log.Fields{
		"app":  "gfac",
		"zone": "z1",
	}

	formatter := LogFieldFormatter{Fields: logFields, Formatter: &log.JSONFormatter{}}
	b, err := formatter.Format(log.WithField("experiment_id", "e1"))
	assert.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, "\"app\":\"gfac\"")
	assert.Contains(t, s, "\"zone\":\"z1\"")
	assert.Contains(t, s, "\"experiment_id\":\"e1\"")
}

func TestLogFieldFormatterEntryWins(t *testing.T) {
	formatter := LogFieldFormatter{
		Fields:    log.Fields{"app": "gfac"},
		Formatter: &log.JSONFormatter{},
	}
	b, err := formatter.Format(log.WithField("app", "override"))
	assert.NoError(t, err)
	assert.Contains(t, string(b), "\"app\":\"override\"")
}
