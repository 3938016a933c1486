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

package handler

import (
	"bufio"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
)

const (
	_localDirProperty = "local_dir"
	_fileScheme       = "file://"

	// Output parameter names of the downloaded standard streams.
	StdOutParameter = "stdout"
	StdErrParameter = "stderr"
)

// inputStaging copies local input files to the input directory of the
// compute host and points the input parameters at the copies.
type inputStaging struct {
	recorder core.ErrorRecorder
	metrics  *Metrics
}

func (h *inputStaging) Initialize(props map[string]string) error { return nil }

func (h *inputStaging) Invoke(ctx context.Context, jec *core.ExecutionContext) error {
	dep, err := deploymentOf(jec)
	if err != nil {
		return err
	}
	cl, err := security.ClusterFrom(jec)
	if err != nil {
		return transportFailure(ctx, h.recorder, jec, "input staging",
			model.ErrorCategoryFileSystemFailure, model.CorrectiveActionContactSupport,
			err, "Security context is not set properly")
	}

	for _, p := range jec.Inputs() {
		if p.Type != model.ParameterTypeURI || p.Value == "" {
			continue
		}
		local := strings.TrimPrefix(p.Value, _fileScheme)
		remote := path.Join(dep.InputDir, filepath.Base(local))
		if local == remote {
			continue
		}
		if err := cl.CopyTo(ctx, local, remote); err != nil {
			h.metrics.TransferFail.Inc(1)
			return transportFailure(ctx, h.recorder, jec, "stage in "+local,
				model.ErrorCategoryFileSystemFailure, model.CorrectiveActionContactSupport,
				err, "Could not stage input "+p.Name)
		}
		h.metrics.FilesStagedIn.Inc(1)
		p.Value = remote
		jec.SetInput(p)
	}
	return nil
}

// Recover points the input parameters at the copies staged before a
// restart without copying again.
func (h *inputStaging) Recover(ctx context.Context, jec *core.ExecutionContext) error {
	dep, err := deploymentOf(jec)
	if err != nil {
		return err
	}
	for _, p := range jec.Inputs() {
		if p.Type != model.ParameterTypeURI || p.Value == "" {
			continue
		}
		p.Value = path.Join(dep.InputDir, filepath.Base(strings.TrimPrefix(p.Value, _fileScheme)))
		jec.SetInput(p)
	}
	return nil
}

// outputStaging downloads the standard streams and the URI outputs of a
// finished job into <local_dir>/<experiment>-<task>.
type outputStaging struct {
	recorder core.ErrorRecorder
	metrics  *Metrics
	localDir string
}

func (h *outputStaging) Initialize(props map[string]string) error {
	h.localDir = props[_localDirProperty]
	if h.localDir == "" {
		h.localDir = os.TempDir()
	}
	return nil
}

func (h *outputStaging) Invoke(ctx context.Context, jec *core.ExecutionContext) error {
	dep, err := deploymentOf(jec)
	if err != nil {
		return err
	}
	cl, err := security.ClusterFrom(jec)
	if err != nil {
		return transportFailure(ctx, h.recorder, jec, "output staging",
			model.ErrorCategoryFileSystemFailure, model.CorrectiveActionContactSupport,
			err, "Security context is not set properly")
	}

	dir := filepath.Join(h.localDir, jec.ExperimentID+"-"+jec.TaskID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return transportFailure(ctx, h.recorder, jec, "mkdir "+dir,
			model.ErrorCategoryFileSystemFailure, model.CorrectiveActionContactSupport,
			err, "Could not create the local output directory")
	}

	download := func(remote string) (string, error) {
		local := filepath.Join(dir, path.Base(remote))
		if err := cl.CopyFrom(ctx, remote, local); err != nil {
			h.metrics.TransferFail.Inc(1)
			return "", transportFailure(ctx, h.recorder, jec, "stage out "+remote,
				model.ErrorCategoryFileSystemFailure, model.CorrectiveActionContactSupport,
				err, "Could not download "+path.Base(remote))
		}
		h.metrics.FilesStagedOut.Inc(1)
		return local, nil
	}

	stdout, err := download(dep.StdOut)
	if err != nil {
		return err
	}
	stderr, err := download(dep.StdErr)
	if err != nil {
		return err
	}
	jec.SetOutput(model.Parameter{Name: StdOutParameter, Value: stdout, Type: model.ParameterTypeStdout})
	jec.SetOutput(model.Parameter{Name: StdErrParameter, Value: stderr, Type: model.ParameterTypeStderr})

	var listing []string
	for _, p := range jec.Outputs() {
		switch p.Type {
		case model.ParameterTypeURI:
			remote := p.Value
			if remote == "" {
				if listing == nil {
					if listing, err = cl.ListDirectory(ctx, dep.OutputDir); err != nil {
						return transportFailure(ctx, h.recorder, jec, "list "+dep.OutputDir,
							model.ErrorCategoryFileSystemFailure,
							model.CorrectiveActionContactSupport,
							err, "Could not list the output directory")
					}
				}
				if len(listing) != 1 {
					return transportFailure(ctx, h.recorder, jec, "stage out "+p.Name,
						model.ErrorCategoryApplicationFailure,
						model.CorrectiveActionCannotBeDetermined,
						errors.Errorf("found %d files in %s", len(listing), dep.OutputDir),
						"Could not determine the file of output "+p.Name)
				}
				remote = listing[0]
			}
			if !path.IsAbs(remote) {
				remote = path.Join(dep.OutputDir, remote)
			}
			local, err := download(remote)
			if err != nil {
				return err
			}
			p.Value = local
			jec.SetOutput(p)
		case model.ParameterTypeString:
			if p.Value != "" {
				continue
			}
			v, ok, err := valueFromStdout(stdout, p.Name)
			if err != nil {
				log.WithError(err).
					WithField(common.TaskIDLogField, jec.TaskID).
					Warn("Failed to read stdout")
				continue
			}
			if ok {
				p.Value = v
				jec.SetOutput(p)
			}
		}
	}
	return nil
}

// valueFromStdout returns the value of the last "name=value" line of the
// file.
func valueFromStdout(file, name string) (string, bool, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	var value string
	var found bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		k, v, ok := strings.Cut(scanner.Text(), "=")
		if ok && strings.TrimSpace(k) == name {
			value, found = strings.TrimSpace(v), true
		}
	}
	return value, found, scanner.Err()
}
