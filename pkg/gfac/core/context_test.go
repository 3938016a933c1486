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

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/apache/airavata-gfac/pkg/model"
)

type fakeSecurityContext struct{ key string }

func (f fakeSecurityContext) Key() string { return f.key }

func TestSecurityContexts(t *testing.T) {
	jec := NewExecutionContext("e1", "t1")
	jec.SetSecurityContext(fakeSecurityContext{key: SSHSecurityContextKey})
	jec.SetSecurityContext(fakeSecurityContext{key: CloudSecurityContextKey})

	_, ok := jec.SecurityContext(SSHSecurityContextKey)
	assert.True(t, ok)
	_, ok = jec.SecurityContext(CloudSecurityContextKey)
	assert.True(t, ok)
	_, ok = jec.SecurityContext(GSISecurityContextKey)
	assert.False(t, ok)
}

func TestParameters(t *testing.T) {
	jec := NewExecutionContext("e1", "t1")
	jec.SetInputs([]model.Parameter{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}})
	jec.SetInput(model.Parameter{Name: "b", Value: "3"})
	jec.SetInput(model.Parameter{Name: "c", Value: "4"})

	inputs := jec.Inputs()
	assert.Len(t, inputs, 3)
	assert.Equal(t, "3", inputs[1].Value)

	// returned slices are copies
	inputs[0].Value = "changed"
	assert.Equal(t, "1", jec.Inputs()[0].Value)

	jec.SetOutput(model.Parameter{Name: "stdout", Type: model.ParameterTypeStdout})
	assert.Len(t, jec.Outputs(), 1)
}

func TestJobIdentity(t *testing.T) {
	jec := NewExecutionContext("e1", "t1")
	jec.WorkflowNodeID = "n1"
	assert.Empty(t, jec.JobIdentity().JobID)

	jec.SetJob(&model.JobDetails{JobID: "j1"})
	id := jec.JobIdentity()
	assert.Equal(t, "j1", id.JobID)
	assert.Equal(t, "n1", id.WorkflowNodeID)
	assert.Equal(t, "t1,j1", id.Key())
}

func TestProperties(t *testing.T) {
	jec := NewExecutionContext("e1", "t1")
	jec.SetProperty("local_output_dir", "/data/out")
	jec.SetProperty("count", 3)

	assert.Equal(t, "/data/out", jec.StringProperty("local_output_dir"))
	assert.Equal(t, "", jec.StringProperty("count"))
	assert.Equal(t, "", jec.StringProperty("missing"))
}
