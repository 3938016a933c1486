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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCredentialStore(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "proxy.key")
	require.NoError(t, os.WriteFile(keyFile, []byte("-----BEGIN"), 0600))

	content := "proxies:\n" +
		"  gw:\n" +
		"    token-1:\n" +
		"      user_name: gwuser\n" +
		"      private_key_file: " + keyFile + "\n" +
		"      passphrase: pass\n" +
		"cloud:\n" +
		"  gw:\n" +
		"    access_key_id: AK\n" +
		"    secret_access_key: SK\n"
	credFile := filepath.Join(dir, "credentials.yaml")
	require.NoError(t, os.WriteFile(credFile, []byte(content), 0600))

	s, err := NewFileCredentialStore(credFile)
	require.NoError(t, err)

	ctx := context.Background()
	proxy, err := s.ProxyCredential(ctx, "gw", "token-1")
	require.NoError(t, err)
	assert.Equal(t, "gwuser", proxy.UserName)
	assert.Equal(t, []byte("-----BEGIN"), proxy.PrivateKey)
	assert.Equal(t, []byte("pass"), proxy.Passphrase)

	_, err = s.ProxyCredential(ctx, "gw", "token-2")
	assert.Error(t, err)

	cloud, err := s.CloudCredential(ctx, "gw")
	require.NoError(t, err)
	assert.Equal(t, "AK", cloud.AccessKeyID)
	assert.Equal(t, "SK", cloud.SecretAccessKey)

	_, err = s.CloudCredential(ctx, "other")
	assert.Error(t, err)

	_, err = NewFileCredentialStore(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
