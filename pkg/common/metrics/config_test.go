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

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricScopeNoop(t *testing.T) {
	scope, closer, mux, err := InitMetricScope(&Config{}, "gfac", time.Second, nil)
	require.NoError(t, err)
	defer closer.Close()

	scope.Counter("submissions").Inc(1)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", HealthPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInitMetricScopePrometheus(t *testing.T) {
	cfg := &Config{Prometheus: &PrometheusConfig{Enable: true}}
	scope, closer, mux, err := InitMetricScope(cfg, "gfac-test", time.Second,
		func() error { return errors.New("coordination store unreachable") })
	require.NoError(t, err)
	defer closer.Close()

	scope.Counter("submissions").Inc(1)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", MetricsPath, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", HealthPath, nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "unreachable")
}
