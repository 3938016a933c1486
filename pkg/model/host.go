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
	"fmt"
	"strings"
)

// HostType is the discriminator of HostDescription.
type HostType int

// Host types.
const (
	HostTypeGSI HostType = iota + 1
	HostTypeSSH
	HostTypeCloud
	HostTypeUnicore
)

func (t HostType) String() string {
	switch t {
	case HostTypeGSI:
		return "gsi"
	case HostTypeSSH:
		return "ssh"
	case HostTypeCloud:
		return "cloud"
	case HostTypeUnicore:
		return "unicore"
	}
	return fmt.Sprintf("HostType(%d)", int(t))
}

// ParseHostType parses the configuration name of a host type.
func ParseHostType(name string) (HostType, error) {
	for _, t := range []HostType{HostTypeGSI, HostTypeSSH, HostTypeCloud, HostTypeUnicore} {
		if strings.EqualFold(t.String(), name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("invalid host type %q", name)
}

// UnmarshalYAML lets host types be written by name in configuration.
func (t *HostType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseHostType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// JobManagerType names the batch system running on an HPC resource.
type JobManagerType string

// Supported batch systems.
const (
	JobManagerPBS   JobManagerType = "pbs"
	JobManagerSlurm JobManagerType = "slurm"
	JobManagerUGE   JobManagerType = "uge"
	JobManagerLSF   JobManagerType = "lsf"
)

// HostDescription describes a compute resource. Exactly one of the variant
// fields, the one selected by Type, is set.
type HostDescription struct {
	Name    string   `yaml:"name" json:"name"`
	Address string   `yaml:"address" json:"address"`
	Type    HostType `yaml:"type" json:"type"`

	GSI     *GSIHost     `yaml:"gsi,omitempty" json:"gsi,omitempty"`
	SSH     *SSHHost     `yaml:"ssh,omitempty" json:"ssh,omitempty"`
	Cloud   *CloudHost   `yaml:"cloud,omitempty" json:"cloud,omitempty"`
	Unicore *UnicoreHost `yaml:"unicore,omitempty" json:"unicore,omitempty"`
}

// Validate checks that the variant matching Type is present.
func (h *HostDescription) Validate() error {
	var ok bool
	switch h.Type {
	case HostTypeGSI:
		ok = h.GSI != nil
	case HostTypeSSH:
		ok = h.SSH != nil
	case HostTypeCloud:
		ok = h.Cloud != nil
	case HostTypeUnicore:
		ok = h.Unicore != nil
	default:
		return fmt.Errorf("host %s has no type", h.Name)
	}
	if !ok {
		return fmt.Errorf("host %s of type %s has no %s section", h.Name, h.Type, h.Type)
	}
	return nil
}

// HPC returns true if the host runs a batch system.
func (h *HostDescription) HPC() bool {
	switch h.Type {
	case HostTypeGSI:
		return h.GSI != nil && h.GSI.HPC
	case HostTypeSSH:
		return h.SSH != nil && h.SSH.HPC
	}
	return false
}

// JobManager returns the batch system of an HPC host.
func (h *HostDescription) JobManager() JobManagerType {
	switch h.Type {
	case HostTypeGSI:
		if h.GSI != nil {
			return h.GSI.JobManager
		}
	case HostTypeSSH:
		if h.SSH != nil {
			return h.SSH.JobManager
		}
	}
	return ""
}

// Port returns the login port of GSI and SSH hosts, 22 when unset.
func (h *HostDescription) Port() int {
	var port int
	switch h.Type {
	case HostTypeGSI:
		if h.GSI != nil {
			port = h.GSI.Port
		}
	case HostTypeSSH:
		if h.SSH != nil {
			port = h.SSH.Port
		}
	}
	if port == 0 {
		return 22
	}
	return port
}

// GSIHost is a grid resource reached with X.509 proxy credentials.
type GSIHost struct {
	Port             int            `yaml:"port" json:"port,omitempty"`
	HPC              bool           `yaml:"hpc" json:"hpc,omitempty"`
	JobManager       JobManagerType `yaml:"job_manager" json:"job_manager,omitempty"`
	InstalledPath    string         `yaml:"installed_path" json:"installed_path,omitempty"`
	GridFTPEndpoints []string       `yaml:"gridftp_endpoints" json:"gridftp_endpoints,omitempty"`
}

// SSHHost is a resource reached over plain SSH.
type SSHHost struct {
	Port          int            `yaml:"port" json:"port,omitempty"`
	HPC           bool           `yaml:"hpc" json:"hpc,omitempty"`
	JobManager    JobManagerType `yaml:"job_manager" json:"job_manager,omitempty"`
	InstalledPath string         `yaml:"installed_path" json:"installed_path,omitempty"`
}

// CloudHost is an object store or compute service of a cloud provider.
type CloudHost struct {
	Region   string `yaml:"region" json:"region"`
	Endpoint string `yaml:"endpoint" json:"endpoint,omitempty"`
	Bucket   string `yaml:"bucket" json:"bucket,omitempty"`
}

// UnicoreHost is a UNICORE BES endpoint.
type UnicoreHost struct {
	BESEndpoint string `yaml:"bes_endpoint" json:"bes_endpoint"`
}

// ApplicationDeployment describes how an application is installed on a host.
type ApplicationDeployment struct {
	ApplicationID  string            `yaml:"application_id" json:"application_id"`
	ExecutablePath string            `yaml:"executable_path" json:"executable_path"`
	ScratchDir     string            `yaml:"scratch_dir" json:"scratch_dir,omitempty"`
	WorkingDir     string            `yaml:"working_dir" json:"working_dir,omitempty"`
	InputDir       string            `yaml:"input_dir" json:"input_dir,omitempty"`
	OutputDir      string            `yaml:"output_dir" json:"output_dir,omitempty"`
	StdOut         string            `yaml:"stdout" json:"stdout,omitempty"`
	StdErr         string            `yaml:"stderr" json:"stderr,omitempty"`
	Queue          string            `yaml:"queue" json:"queue,omitempty"`
	Environment    map[string]string `yaml:"environment" json:"environment,omitempty"`
	PreJobCommands []string          `yaml:"pre_job_commands" json:"pre_job_commands,omitempty"`
}

// ServiceDescription describes the inputs and outputs of an application.
type ServiceDescription struct {
	Name    string      `yaml:"name" json:"name"`
	Inputs  []Parameter `yaml:"inputs" json:"inputs,omitempty"`
	Outputs []Parameter `yaml:"outputs" json:"outputs,omitempty"`
}
