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

// Package scheduler binds a compute host, deployment, service description
// and provider to an execution context.
package scheduler

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/model"
)

// HostProperty pins a relaunched task to the host it already ran on.
const HostProperty = "scheduler.host"

// NoEligibleHostError is returned when no host can run an application.
type NoEligibleHostError struct {
	ApplicationID string
	cause         error
}

func (e *NoEligibleHostError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("no eligible host for application %s: %v", e.ApplicationID, e.cause)
	}
	return fmt.Sprintf("no eligible host for application %s", e.ApplicationID)
}

// Unwrap returns the underlying error.
func (e *NoEligibleHostError) Unwrap() error { return e.cause }

// ProviderSource creates the provider configured for a host type.
type ProviderSource interface {
	NewProvider(hostType model.HostType) (string, core.Provider, error)
}

// Scheduler picks where a task runs.
type Scheduler struct {
	catalog   AppCatalog
	policy    HostSelectionPolicy
	providers ProviderSource
	metrics   *Metrics
}

// New returns a Scheduler.
func New(
	catalog AppCatalog,
	policy HostSelectionPolicy,
	providers ProviderSource,
	scope tally.Scope) *Scheduler {
	return &Scheduler{
		catalog:   catalog,
		policy:    policy,
		providers: providers,
		metrics:   NewMetrics(scope.SubScope("scheduler")),
	}
}

// Schedule binds the host, deployment, service description and provider
// of jec. The output parameters default to the ones of the service.
func (s *Scheduler) Schedule(ctx context.Context, jec *core.ExecutionContext) error {
	candidates, err := s.catalog.Candidates(ctx, jec.ApplicationID)
	if err != nil {
		s.metrics.ScheduleFail.Inc(1)
		return errors.Wrapf(err, "failed to read deployments of %s", jec.ApplicationID)
	}
	if len(candidates) == 0 {
		s.metrics.NoEligibleHost.Inc(1)
		return &NoEligibleHostError{ApplicationID: jec.ApplicationID}
	}
	var chosen Candidate
	if pinned := jec.StringProperty(HostProperty); pinned != "" {
		chosen, err = onHost(candidates, pinned)
	} else {
		chosen, err = s.policy.Select(jec.ApplicationID, candidates)
	}
	if err != nil {
		s.metrics.NoEligibleHost.Inc(1)
		return &NoEligibleHostError{ApplicationID: jec.ApplicationID, cause: err}
	}

	service, err := s.catalog.Service(ctx, jec.ApplicationID)
	if err != nil {
		s.metrics.ScheduleFail.Inc(1)
		return errors.Wrapf(err, "failed to read service of %s", jec.ApplicationID)
	}
	name, provider, err := s.providers.NewProvider(chosen.Host.Type)
	if err != nil {
		s.metrics.ScheduleFail.Inc(1)
		return common.NewConfigurationError("scheduler", err)
	}

	jec.Host = chosen.Host
	jec.Deployment = chosen.Deployment
	jec.Service = service
	jec.ProviderName = name
	jec.Provider = provider
	if len(jec.Outputs()) == 0 {
		jec.SetOutputs(service.Outputs)
	}
	s.metrics.Scheduled.Inc(1)

	log.WithFields(log.Fields{
		common.ExperimentIDLogField: jec.ExperimentID,
		common.TaskIDLogField:       jec.TaskID,
		common.HostLogField:         chosen.Host.Name,
		"provider":                  name,
	}).Info("Task scheduled")
	return nil
}

func onHost(candidates []Candidate, name string) (Candidate, error) {
	for _, c := range candidates {
		if c.Host.Name == name {
			return c, nil
		}
	}
	return Candidate{}, errors.Errorf("application is no longer deployed on %s", name)
}
