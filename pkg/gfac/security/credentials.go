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

package security

import (
	"context"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ProxyCredential is a short-lived credential issued for a gateway user.
type ProxyCredential struct {
	UserName   string
	PrivateKey []byte
	Passphrase []byte
}

// CloudCredential is the access key of a gateway in a cloud provider.
type CloudCredential struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// CredentialReader reads proxy credentials by gateway and token.
type CredentialReader interface {
	ProxyCredential(ctx context.Context, gatewayID, tokenID string) (*ProxyCredential, error)
}

// CloudCredentialReader reads cloud credentials of a gateway.
type CloudCredentialReader interface {
	CloudCredential(ctx context.Context, gatewayID string) (*CloudCredential, error)
}

type fileProxyCredential struct {
	UserName       string `yaml:"user_name"`
	PrivateKeyFile string `yaml:"private_key_file"`
	Passphrase     string `yaml:"passphrase"`
}

type fileCloudCredential struct {
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

type credentialFile struct {
	// gateway id -> token id -> credential
	Proxies map[string]map[string]fileProxyCredential `yaml:"proxies"`
	// gateway id -> credential
	Cloud map[string]fileCloudCredential `yaml:"cloud"`
}

// FileCredentialStore serves credentials from a YAML file. Key files are
// read on every lookup so that rotated keys are picked up.
type FileCredentialStore struct {
	sync.RWMutex
	path string
	data credentialFile
}

// NewFileCredentialStore loads the credential file at path.
func NewFileCredentialStore(path string) (*FileCredentialStore, error) {
	s := &FileCredentialStore{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload reads the credential file again.
func (s *FileCredentialStore) Reload() error {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		return errors.Wrapf(err, "failed to read credential file %s", s.path)
	}
	var data credentialFile
	if err := yaml.Unmarshal(buf, &data); err != nil {
		return errors.Wrapf(err, "failed to parse credential file %s", s.path)
	}
	s.Lock()
	s.data = data
	s.Unlock()
	return nil
}

// ProxyCredential implements CredentialReader.
func (s *FileCredentialStore) ProxyCredential(
	ctx context.Context,
	gatewayID, tokenID string) (*ProxyCredential, error) {
	s.RLock()
	c, ok := s.data.Proxies[gatewayID][tokenID]
	s.RUnlock()
	if !ok {
		return nil, errors.Errorf("no credential for gateway %s and token %s", gatewayID, tokenID)
	}
	key, err := os.ReadFile(c.PrivateKeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read proxy key")
	}
	cred := &ProxyCredential{UserName: c.UserName, PrivateKey: key}
	if c.Passphrase != "" {
		cred.Passphrase = []byte(c.Passphrase)
	}
	return cred, nil
}

// CloudCredential implements CloudCredentialReader.
func (s *FileCredentialStore) CloudCredential(
	ctx context.Context,
	gatewayID string) (*CloudCredential, error) {
	s.RLock()
	defer s.RUnlock()
	c, ok := s.data.Cloud[gatewayID]
	if !ok {
		return nil, errors.Errorf("no cloud credential for gateway %s", gatewayID)
	}
	return &CloudCredential{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
	}, nil
}
