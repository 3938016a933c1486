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
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/gfac/security"
	"github.com/apache/airavata-gfac/pkg/model"
)

type fakeObjectStore struct {
	sync.Mutex
	objects map[string]string
}

func (f *fakeObjectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.Lock()
	f.objects[r.URL.Path] = string(body)
	f.Unlock()
	w.WriteHeader(http.StatusOK)
}

type staticClouds struct {
	cc      *security.CloudContext
	gateway string
}

func (c *staticClouds) CloudContext(
	ctx context.Context,
	gatewayID string,
	host *model.CloudHost) (*security.CloudContext, error) {
	c.gateway = gatewayID
	return c.cc, nil
}

func testCloudContext(endpoint string) *security.CloudContext {
	return &security.CloudContext{
		Config: aws.Config{
			Region:      "us-east-1",
			Credentials: credentials.NewStaticCredentialsProvider("key", "secret", ""),
			EndpointResolverWithOptions: aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: endpoint, HostnameImmutable: true}, nil
				}),
		},
		Region:   "us-east-1",
		Endpoint: endpoint,
	}
}

func TestS3UploadFromNonCloudHost(t *testing.T) {
	store := &fakeObjectStore{objects: map[string]string{}}
	srv := httptest.NewServer(store)
	defer srv.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "result.h5")
	require.NoError(t, os.WriteFile(out, []byte("data"), 0644))

	clouds := &staticClouds{cc: testCloudContext(srv.URL)}
	h := &s3Upload{clouds: clouds, recorder: &fakeRecorder{}, metrics: NewMetrics(tally.NoopScope)}
	require.NoError(t, h.Initialize(map[string]string{
		_bucketProperty: "outputs",
		_prefixProperty: "gfac",
	}))

	jec := core.NewExecutionContext("exp-1", "task-1")
	jec.GatewayID = "seagrid"
	jec.SetOutputs([]model.Parameter{
		{Name: "result", Value: out, Type: model.ParameterTypeURI},
		{Name: "energy", Value: "-42.5", Type: model.ParameterTypeString},
	})
	require.NoError(t, h.Invoke(context.Background(), jec))

	assert.Equal(t, "seagrid", clouds.gateway)
	assert.Contains(t, store.objects["/outputs/gfac/exp-1/task-1/result.h5"], "data")
	assert.Equal(t, "s3://outputs/gfac/exp-1/task-1/result.h5", jec.Outputs()[0].Value)
	assert.Equal(t, "-42.5", jec.Outputs()[1].Value)
}

func TestS3UploadUsesCloudContextOfHost(t *testing.T) {
	store := &fakeObjectStore{objects: map[string]string{}}
	srv := httptest.NewServer(store)
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "echo.stdout")
	require.NoError(t, os.WriteFile(out, []byte("hello"), 0644))

	cc := testCloudContext(srv.URL)
	cc.Bucket = "host-bucket"
	h := &s3Upload{recorder: &fakeRecorder{}, metrics: NewMetrics(tally.NoopScope)}
	require.NoError(t, h.Initialize(nil))

	jec := core.NewExecutionContext("exp-1", "task-1")
	jec.SetSecurityContext(cc)
	jec.SetOutputs([]model.Parameter{
		{Name: StdOutParameter, Value: out, Type: model.ParameterTypeStdout},
	})
	require.NoError(t, h.Invoke(context.Background(), jec))
	assert.Contains(t, store.objects["/host-bucket/exp-1/task-1/echo.stdout"], "hello")
}

func TestS3UploadWithoutCloudContext(t *testing.T) {
	recorder := &fakeRecorder{}
	h := &s3Upload{recorder: recorder, metrics: NewMetrics(tally.NoopScope)}
	require.NoError(t, h.Initialize(nil))

	err := h.Invoke(context.Background(), core.NewExecutionContext("exp-1", "task-1"))
	assert.Error(t, err)
	assert.Len(t, recorder.errors, 1)
}
