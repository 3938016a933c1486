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
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/apache/airavata-gfac/pkg/gfac/cluster"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
)

// RequestData identifies whose credentials a submission uses.
type RequestData struct {
	GatewayID string
	TokenID   string
	UserName  string
}

// lazyCluster resolves a RemoteCluster on first use.
type lazyCluster struct {
	once    sync.Once
	connect func() (cluster.RemoteCluster, error)
	rc      cluster.RemoteCluster
	err     error
}

func (l *lazyCluster) get() (cluster.RemoteCluster, error) {
	l.once.Do(func() {
		if l.connect == nil {
			return
		}
		l.rc, l.err = l.connect()
	})
	return l.rc, l.err
}

// GSIContext holds the proxy credential of a grid host.
type GSIContext struct {
	Request    RequestData
	Credential *ProxyCredential
	ServerInfo cluster.ServerInfo

	cluster lazyCluster
}

// Key implements core.SecurityContext.
func (c *GSIContext) Key() string { return core.GSISecurityContextKey }

// Cluster returns the batch cluster of an HPC grid host, or nil.
func (c *GSIContext) Cluster() (cluster.RemoteCluster, error) {
	return c.cluster.get()
}

// SSHContext holds the connection parameters of an ssh host.
type SSHContext struct {
	ServerInfo  cluster.ServerInfo
	Credentials cluster.Credentials

	cluster lazyCluster
}

// Key implements core.SecurityContext.
func (c *SSHContext) Key() string { return core.SSHSecurityContextKey }

// Cluster returns the cluster of the host. Nothing connects before the
// first call.
func (c *SSHContext) Cluster() (cluster.RemoteCluster, error) {
	return c.cluster.get()
}

// CloudContext holds the AWS configuration of a cloud host.
type CloudContext struct {
	Config   aws.Config
	Region   string
	Endpoint string
	Bucket   string
}

// Key implements core.SecurityContext.
func (c *CloudContext) Key() string { return core.CloudSecurityContextKey }

// Contexts is the result of building the security of one host. At most one
// field is set.
type Contexts struct {
	GSI   *GSIContext
	SSH   *SSHContext
	Cloud *CloudContext
}

// GSIContextFrom returns the GSI context stored in jec.
func GSIContextFrom(jec *core.ExecutionContext) (*GSIContext, bool) {
	sc, ok := jec.SecurityContext(core.GSISecurityContextKey)
	if !ok {
		return nil, false
	}
	c, ok := sc.(*GSIContext)
	return c, ok
}

// SSHContextFrom returns the SSH context stored in jec.
func SSHContextFrom(jec *core.ExecutionContext) (*SSHContext, bool) {
	sc, ok := jec.SecurityContext(core.SSHSecurityContextKey)
	if !ok {
		return nil, false
	}
	c, ok := sc.(*SSHContext)
	return c, ok
}

// CloudContextFrom returns the cloud context stored in jec.
func CloudContextFrom(jec *core.ExecutionContext) (*CloudContext, bool) {
	sc, ok := jec.SecurityContext(core.CloudSecurityContextKey)
	if !ok {
		return nil, false
	}
	c, ok := sc.(*CloudContext)
	return c, ok
}

// ClusterFrom returns the remote cluster of whichever ssh based context
// jec carries.
func ClusterFrom(jec *core.ExecutionContext) (cluster.RemoteCluster, error) {
	var rc cluster.RemoteCluster
	var err error
	if c, ok := GSIContextFrom(jec); ok {
		rc, err = c.Cluster()
	} else if c, ok := SSHContextFrom(jec); ok {
		rc, err = c.Cluster()
	}
	if err != nil {
		return nil, err
	}
	if rc == nil {
		return nil, errNoCluster
	}
	return rc, nil
}

// NewGSIContext returns a GSI context. connect is nil for hosts without a
// batch system.
func NewGSIContext(
	req RequestData,
	cred *ProxyCredential,
	info cluster.ServerInfo,
	connect func() (cluster.RemoteCluster, error)) *GSIContext {
	return &GSIContext{
		Request:    req,
		Credential: cred,
		ServerInfo: info,
		cluster:    lazyCluster{connect: connect},
	}
}

// NewSSHContext returns an SSH context whose cluster is created by connect
// on first use.
func NewSSHContext(
	info cluster.ServerInfo,
	creds cluster.Credentials,
	connect func() (cluster.RemoteCluster, error)) *SSHContext {
	return &SSHContext{
		ServerInfo:  info,
		Credentials: creds,
		cluster:     lazyCluster{connect: connect},
	}
}
