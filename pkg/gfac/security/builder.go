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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/gfac/cluster"
	"github.com/apache/airavata-gfac/pkg/gfac/core"
	"github.com/apache/airavata-gfac/pkg/model"
)

var errNoCluster = errors.New("execution context has no remote cluster")

// SSHConfig is the account used on plain ssh hosts.
type SSHConfig struct {
	UserName       string `yaml:"user_name"`
	Password       string `yaml:"password"`
	PrivateKeyFile string `yaml:"private_key_file"`
	Passphrase     string `yaml:"passphrase"`
}

// Config holds the effective connection properties.
type Config struct {
	SSH     SSHConfig       `yaml:"ssh"`
	Cluster cluster.Options `yaml:"cluster"`
}

// ClusterFactory creates the RemoteCluster of a login node.
type ClusterFactory func(
	info cluster.ServerInfo,
	creds cluster.Credentials,
	jm *cluster.JobManager) (cluster.RemoteCluster, error)

// Builder builds the security contexts of a host. Clusters are shared
// through the cache.
type Builder struct {
	cfg        Config
	creds      CredentialReader
	cloud      CloudCredentialReader
	cache      *cluster.Cache
	newCluster ClusterFactory
	metrics    *Metrics
}

// NewBuilder returns a Builder connecting over ssh.
func NewBuilder(
	cfg Config,
	creds CredentialReader,
	cloud CloudCredentialReader,
	cache *cluster.Cache,
	scope tally.Scope) *Builder {
	factory := func(
		info cluster.ServerInfo,
		c cluster.Credentials,
		jm *cluster.JobManager) (cluster.RemoteCluster, error) {
		return cluster.NewSSHCluster(info, c, jm, cfg.Cluster, scope)
	}
	return NewBuilderWithFactory(cfg, creds, cloud, cache, factory, scope)
}

// NewBuilderWithFactory returns a Builder creating clusters with factory.
func NewBuilderWithFactory(
	cfg Config,
	creds CredentialReader,
	cloud CloudCredentialReader,
	cache *cluster.Cache,
	factory ClusterFactory,
	scope tally.Scope) *Builder {
	return &Builder{
		cfg:        cfg,
		creds:      creds,
		cloud:      cloud,
		cache:      cache,
		newCluster: factory,
		metrics:    NewMetrics(scope.SubScope("security")),
	}
}

// Build returns the security contexts of host. Connections are not opened
// here.
func (b *Builder) Build(
	ctx context.Context,
	host *model.HostDescription,
	req RequestData) (*Contexts, error) {
	if host == nil {
		return nil, common.NewSecurityContextError("", errors.New("no host"))
	}
	if err := host.Validate(); err != nil {
		return nil, common.NewSecurityContextError(host.Name, err)
	}

	var result *Contexts
	var err error
	switch host.Type {
	case model.HostTypeGSI:
		result, err = b.buildGSI(ctx, host, req)
	case model.HostTypeSSH:
		result, err = b.buildSSH(host)
	case model.HostTypeCloud:
		result, err = b.buildCloud(ctx, host, req)
	case model.HostTypeUnicore:
		// BES endpoints authenticate on their own
		result = &Contexts{}
	}
	if err != nil {
		b.metrics.BuildFail.Inc(1)
		return nil, common.NewSecurityContextError(host.Name, err)
	}
	b.metrics.Build.Inc(1)
	return result, nil
}

// Attach builds the contexts of the host bound to jec and stores them in it.
func (b *Builder) Attach(ctx context.Context, jec *core.ExecutionContext) error {
	contexts, err := b.Build(ctx, jec.Host, RequestData{
		GatewayID: jec.GatewayID,
		TokenID:   jec.CredentialToken,
		UserName:  jec.UserName,
	})
	if err != nil {
		return err
	}
	if contexts.GSI != nil {
		jec.SetSecurityContext(contexts.GSI)
	}
	if contexts.SSH != nil {
		jec.SetSecurityContext(contexts.SSH)
	}
	if contexts.Cloud != nil {
		jec.SetSecurityContext(contexts.Cloud)
	}
	return nil
}

func (b *Builder) connector(
	host *model.HostDescription,
	info cluster.ServerInfo,
	creds cluster.Credentials,
	hpc bool,
	installedPath string) (func() (cluster.RemoteCluster, error), error) {
	var jm *cluster.JobManager
	if hpc {
		var err error
		jm, err = cluster.NewJobManager(host.JobManager(), installedPath)
		if err != nil {
			return nil, err
		}
	}
	return func() (cluster.RemoteCluster, error) {
		return b.cache.Get(info, func() (cluster.RemoteCluster, error) {
			return b.newCluster(info, creds, jm)
		})
	}, nil
}

func (b *Builder) buildGSI(
	ctx context.Context,
	host *model.HostDescription,
	req RequestData) (*Contexts, error) {
	if b.creds == nil {
		return nil, errors.New("no credential reader configured")
	}
	cred, err := b.creds.ProxyCredential(ctx, req.GatewayID, req.TokenID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read proxy credential")
	}
	user := cred.UserName
	if user == "" {
		user = req.UserName
	}
	info := cluster.ServerInfo{UserName: user, Host: host.Address, Port: host.Port()}

	var connect func() (cluster.RemoteCluster, error)
	if host.HPC() {
		// the proxy key authenticates the ssh session of the gateway user
		connect, err = b.connector(host, info, cluster.Credentials{
			PrivateKey: cred.PrivateKey,
			Passphrase: cred.Passphrase,
		}, true, host.GSI.InstalledPath)
		if err != nil {
			return nil, err
		}
	}
	log.WithFields(log.Fields{
		common.HostLogField: host.Name,
		"gateway_id":        req.GatewayID,
	}).Debug("GSI security context built")
	return &Contexts{GSI: NewGSIContext(req, cred, info, connect)}, nil
}

// sshCredentials prefers password authentication when both a password and a
// key file are configured.
func (b *Builder) sshCredentials() (cluster.Credentials, error) {
	if b.cfg.SSH.Password != "" {
		return cluster.Credentials{Password: b.cfg.SSH.Password}, nil
	}
	if b.cfg.SSH.PrivateKeyFile == "" {
		return cluster.Credentials{}, errors.New("neither ssh password nor key file configured")
	}
	key, err := os.ReadFile(b.cfg.SSH.PrivateKeyFile)
	if err != nil {
		return cluster.Credentials{}, errors.Wrap(err, "failed to read ssh key")
	}
	creds := cluster.Credentials{PrivateKey: key}
	if b.cfg.SSH.Passphrase != "" {
		creds.Passphrase = []byte(b.cfg.SSH.Passphrase)
	}
	return creds, nil
}

func (b *Builder) buildSSH(host *model.HostDescription) (*Contexts, error) {
	creds, err := b.sshCredentials()
	if err != nil {
		return nil, err
	}
	info := cluster.ServerInfo{UserName: b.cfg.SSH.UserName, Host: host.Address, Port: host.Port()}
	connect, err := b.connector(host, info, creds, host.HPC(), host.SSH.InstalledPath)
	if err != nil {
		return nil, err
	}
	return &Contexts{SSH: NewSSHContext(info, creds, connect)}, nil
}

func (b *Builder) buildCloud(
	ctx context.Context,
	host *model.HostDescription,
	req RequestData) (*Contexts, error) {
	cc, err := b.CloudContext(ctx, req.GatewayID, host.Cloud)
	if err != nil {
		return nil, err
	}
	return &Contexts{Cloud: cc}, nil
}

// CloudContext returns the cloud context of a gateway for the given
// account. It also serves handlers uploading to an object store from
// non-cloud hosts.
func (b *Builder) CloudContext(
	ctx context.Context,
	gatewayID string,
	host *model.CloudHost) (*CloudContext, error) {
	if b.cloud == nil {
		return nil, errors.New("no cloud credential reader configured")
	}
	cred, err := b.cloud.CloudCredential(ctx, gatewayID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cloud credential")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(host.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cred.AccessKeyID, cred.SecretAccessKey, cred.SessionToken)),
	}
	if endpoint := host.Endpoint; endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: endpoint, HostnameImmutable: true}, nil
				},
			),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aws config")
	}
	return &CloudContext{
		Config:   awsCfg,
		Region:   host.Region,
		Endpoint: host.Endpoint,
		Bucket:   host.Bucket,
	}, nil
}
