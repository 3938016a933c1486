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

package scheduler

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"

	"github.com/apache/airavata-gfac/pkg/model"
)

// Candidate is a host an application is deployed on.
type Candidate struct {
	Host       *model.HostDescription
	Deployment *model.ApplicationDeployment
}

// AppCatalog knows where applications are deployed.
type AppCatalog interface {
	// Candidates returns the deployments of an application.
	Candidates(ctx context.Context, applicationID string) ([]Candidate, error)
	// Service returns the inputs and outputs of an application.
	Service(ctx context.Context, applicationID string) (*model.ServiceDescription, error)
}

// DeploymentConfig deploys an application on a named host.
type DeploymentConfig struct {
	Host                        string `yaml:"host" validate:"nonzero"`
	model.ApplicationDeployment `yaml:",inline"`
}

// ApplicationConfig is one application of the catalog file.
type ApplicationConfig struct {
	ID          string                   `yaml:"id" validate:"nonzero"`
	Service     model.ServiceDescription `yaml:"service"`
	Deployments []DeploymentConfig       `yaml:"deployments"`
}

// CatalogConfig is the layout of the catalog file.
type CatalogConfig struct {
	Hosts        []model.HostDescription `yaml:"hosts"`
	Applications []ApplicationConfig     `yaml:"applications"`
}

type application struct {
	service    *model.ServiceDescription
	candidates []Candidate
}

// StaticCatalog is an AppCatalog read from configuration.
type StaticCatalog struct {
	apps map[string]application
}

// NewStaticCatalog validates cfg and indexes it.
func NewStaticCatalog(cfg CatalogConfig) (*StaticCatalog, error) {
	if err := validator.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid application catalog")
	}

	hosts := make(map[string]*model.HostDescription, len(cfg.Hosts))
	for i := range cfg.Hosts {
		h := &cfg.Hosts[i]
		if err := h.Validate(); err != nil {
			return nil, err
		}
		if _, ok := hosts[h.Name]; ok {
			return nil, errors.Errorf("host %s defined twice", h.Name)
		}
		hosts[h.Name] = h
	}

	c := &StaticCatalog{apps: make(map[string]application, len(cfg.Applications))}
	for _, a := range cfg.Applications {
		if _, ok := c.apps[a.ID]; ok {
			return nil, errors.Errorf("application %s defined twice", a.ID)
		}
		service := a.Service
		if service.Name == "" {
			service.Name = a.ID
		}
		app := application{service: &service}
		for _, d := range a.Deployments {
			host, ok := hosts[d.Host]
			if !ok {
				return nil, errors.Errorf("application %s is deployed on unknown host %s", a.ID, d.Host)
			}
			dep := d.ApplicationDeployment
			dep.ApplicationID = a.ID
			app.candidates = append(app.candidates, Candidate{Host: host, Deployment: &dep})
		}
		c.apps[a.ID] = app
	}
	return c, nil
}

// LoadStaticCatalog reads a catalog file.
func LoadStaticCatalog(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %s", path)
	}
	var cfg CatalogConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse catalog %s", path)
	}
	return NewStaticCatalog(cfg)
}

// Candidates implements AppCatalog.
func (c *StaticCatalog) Candidates(ctx context.Context, applicationID string) ([]Candidate, error) {
	return append([]Candidate(nil), c.apps[applicationID].candidates...), nil
}

// Service implements AppCatalog.
func (c *StaticCatalog) Service(
	ctx context.Context,
	applicationID string) (*model.ServiceDescription, error) {
	app, ok := c.apps[applicationID]
	if !ok {
		return nil, errors.Errorf("unknown application %s", applicationID)
	}
	return app.service, nil
}
