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
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/cactus/go-statsd-client/statsd"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	tallyprom "github.com/uber-go/tally/prometheus"
	tallystatsd "github.com/uber-go/tally/statsd"
)

const (
	// HealthPath is served on the metrics mux.
	HealthPath = "/health"
	// MetricsPath serves prometheus metrics when prometheus is enabled.
	MetricsPath = "/metrics"
)

// Config holds the metrics backends of a daemon.
type Config struct {
	Prometheus *PrometheusConfig `yaml:"prometheus"`
	Statsd     *StatsdConfig     `yaml:"statsd"`
}

// PrometheusConfig enables the prometheus reporter.
type PrometheusConfig struct {
	Enable bool `yaml:"enable"`
}

// StatsdConfig enables the statsd reporter.
type StatsdConfig struct {
	Enable   bool   `yaml:"enable"`
	Endpoint string `yaml:"endpoint"`
}

// HealthCheck reports whether the daemon is healthy.
type HealthCheck func() error

// InitMetricScope initializes a root scope and its closer, with a http server
// mux serving the health check and, with prometheus, the metrics endpoint.
func InitMetricScope(
	cfg *Config,
	rootMetricScope string,
	metricFlushInterval time.Duration,
	health HealthCheck) (tally.Scope, io.Closer, *nethttp.ServeMux, error) {
	mux := nethttp.NewServeMux()
	opts := tally.ScopeOptions{
		Tags:      map[string]string{},
		Separator: ".",
	}

	switch {
	case cfg != nil && cfg.Prometheus != nil && cfg.Prometheus.Enable:
		// prometheus names cannot contain "-"
		rootMetricScope = strings.Replace(rootMetricScope, "-", "_", -1)
		opts.Separator = tallyprom.DefaultSeparator
		promReporter := tallyprom.NewReporter(tallyprom.Options{})
		opts.CachedReporter = promReporter
		log.Infof("Setting up prometheus metrics handler at %s", MetricsPath)
		mux.Handle(MetricsPath, promReporter.HTTPHandler())
	case cfg != nil && cfg.Statsd != nil && cfg.Statsd.Enable:
		log.Infof("Metrics configured with statsd endpoint %s", cfg.Statsd.Endpoint)
		c, err := statsd.NewClient(cfg.Statsd.Endpoint, "")
		if err != nil {
			return nil, nil, nil, fmt.Errorf("unable to setup statsd client: %v", err)
		}
		opts.Reporter = tallystatsd.NewReporter(c, tallystatsd.Options{})
	default:
		log.Warn("No metrics backends configured, using the statsd.NoopClient")
		c, _ := statsd.NewNoopClient()
		opts.Reporter = tallystatsd.NewReporter(c, tallystatsd.Options{})
	}
	opts.Prefix = rootMetricScope

	mux.HandleFunc(HealthPath, func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if health != nil {
			if err := health(); err != nil {
				w.WriteHeader(nethttp.StatusInternalServerError)
				fmt.Fprintln(w, err.Error())
				return
			}
		}
		w.WriteHeader(nethttp.StatusOK)
		fmt.Fprintln(w, "OK")
	})

	scope, closer := tally.NewRootScope(opts, metricFlushInterval)
	return scope, closer, mux, nil
}
