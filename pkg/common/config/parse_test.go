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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name     string `yaml:"name" validate:"nonzero"`
	Workers  int    `yaml:"workers" validate:"min=1"`
	Optional string `yaml:"optional"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestParseMergesFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", "name: gfac\nworkers: 2\noptional: a\n")
	override := writeFile(t, dir, "override.yaml", "workers: 8\n")

	var cfg testConfig
	require.NoError(t, Parse(&cfg, base, override))
	assert.Equal(t, "gfac", cfg.Name)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "a", cfg.Optional)
}

func TestParseValidation(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "bad.yaml", "workers: 0\n")

	var cfg testConfig
	err := Parse(&cfg, f)
	require.Error(t, err)

	verr, ok := err.(ValidationError)
	require.True(t, ok)
	assert.Error(t, verr.ErrForField("Name"))
	assert.Error(t, verr.ErrForField("Workers"))
	assert.Contains(t, verr.Error(), "validation failed")
}

func TestParseNoFiles(t *testing.T) {
	var cfg testConfig
	assert.Error(t, Parse(&cfg))
	assert.Error(t, Parse(&cfg, "/does/not/exist.yaml"))
}

func TestParseSecrets(t *testing.T) {
	dir := t.TempDir()
	f := writeFile(t, dir, "secrets.yaml",
		"gfac_registry_password: db\ngfac_ssh_password: ssh\n")

	secrets, err := ParseSecrets(f)
	require.NoError(t, err)
	assert.Equal(t, "db", secrets.RegistryPassword)
	assert.Equal(t, "ssh", secrets.SSHPassword)

	secrets, err = ParseSecrets(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, secrets.SSHPassword)
}
