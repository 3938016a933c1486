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

package main

import (
	"github.com/apache/airavata-gfac/pkg/common/health"
	"github.com/apache/airavata-gfac/pkg/common/leader"
	"github.com/apache/airavata-gfac/pkg/common/metrics"
	"github.com/apache/airavata-gfac/pkg/gfac/checkpoint"
	"github.com/apache/airavata-gfac/pkg/gfac/engine"
	"github.com/apache/airavata-gfac/pkg/gfac/monitor"
	"github.com/apache/airavata-gfac/pkg/gfac/pipeline"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/storage/mysql"
)

// Registry backends.
const (
	_registryMySQL  = "mysql"
	_registryMemory = "memory"
)

// RegistryConfig selects the registry backend.
type RegistryConfig struct {
	// Backend is mysql or memory. The memory registry loses every record on
	// restart and is meant for development.
	Backend string       `yaml:"backend"`
	MySQL   mysql.Config `yaml:"mysql"`
}

// GFacConfig is the configuration of the execution engine and its plugins.
type GFacConfig struct {
	HTTPPort int `yaml:"http_port" validate:"nonzero"`

	// CatalogFile lists hosts and application deployments.
	CatalogFile string `yaml:"catalog_file" validate:"nonzero"`

	// CredentialFile holds proxy and cloud credentials per gateway.
	CredentialFile string `yaml:"credential_file"`

	// HostSelectionPolicy is round-robin or first-available.
	HostSelectionPolicy string `yaml:"host_selection_policy"`

	Engine   engine.Config   `yaml:"engine"`
	Monitor  monitor.Config  `yaml:"monitor"`
	Pipeline pipeline.Config `yaml:"pipeline"`
	Security security.Config `yaml:"security"`
}

// Config holds all config to run a gfac server.
type Config struct {
	Metrics      metrics.Config        `yaml:"metrics"`
	Registry     RegistryConfig        `yaml:"registry"`
	Coordination checkpoint.Config     `yaml:"coordination"`
	Election     leader.ElectionConfig `yaml:"election"`
	Health       health.Config         `yaml:"health"`
	GFac         GFacConfig            `yaml:"gfac"`
}
