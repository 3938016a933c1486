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

package cluster

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/apache/airavata-gfac/pkg/common"
	"github.com/apache/airavata-gfac/pkg/model"
)

const _defaultDialTimeout = 30 * time.Second

// Options tune how login nodes are reached.
type Options struct {
	// KnownHostsFile verifies host keys. It is required unless
	// InsecureIgnoreHostKey is set.
	KnownHostsFile string `yaml:"known_hosts_file"`

	// InsecureIgnoreHostKey accepts any host key. Meant for development
	// clusters only.
	InsecureIgnoreHostKey bool `yaml:"insecure_ignore_host_key"`

	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type dialFunc func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)

// sshCluster is a RemoteCluster over ssh and sftp. It connects on first
// use and reconnects after the connection broke.
type sshCluster struct {
	info    ServerInfo
	config  *ssh.ClientConfig
	jm      *JobManager
	dial    dialFunc
	metrics *Metrics

	sync.Mutex
	client *ssh.Client
	sftp   *sftp.Client
	broken bool
}

// NewSSHCluster returns a RemoteCluster for info. jm may be nil for hosts
// without a batch system; batch operations then fail.
func NewSSHCluster(
	info ServerInfo,
	creds Credentials,
	jm *JobManager,
	opts Options,
	scope tally.Scope) (RemoteCluster, error) {
	auth, err := creds.AuthMethods()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid credentials for %s", info.Key())
	}

	hostKey, err := hostKeyCallback(opts, info)
	if err != nil {
		return nil, err
	}
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = _defaultDialTimeout
	}

	return &sshCluster{
		info: info,
		config: &ssh.ClientConfig{
			User:            info.UserName,
			Auth:            auth,
			HostKeyCallback: hostKey,
			Timeout:         timeout,
		},
		jm:      jm,
		dial:    ssh.Dial,
		metrics: NewMetrics(scope.SubScope("cluster")),
	}, nil
}

func hostKeyCallback(opts Options, info ServerInfo) (ssh.HostKeyCallback, error) {
	if opts.KnownHostsFile != "" {
		cb, err := knownhosts.New(opts.KnownHostsFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load known hosts")
		}
		return cb, nil
	}
	if !opts.InsecureIgnoreHostKey {
		return nil, errors.Errorf(
			"no known_hosts_file configured to verify the host key of %s", info.Key())
	}
	log.WithField(common.HostLogField, info.Key()).
		Warn("Host key of login node is not verified")
	return ssh.InsecureIgnoreHostKey(), nil
}

func (c *sshCluster) ServerInfo() ServerInfo {
	return c.info
}

func (c *sshCluster) connectLocked() (*ssh.Client, error) {
	if c.client != nil && !c.broken {
		return c.client, nil
	}
	c.closeLocked()

	client, err := c.dial("tcp", c.info.Address(), c.config)
	if err != nil {
		c.metrics.ConnectFail.Inc(1)
		return nil, errors.Wrapf(err, "failed to connect to %s", c.info.Key())
	}
	c.metrics.Connect.Inc(1)
	c.client = client
	c.broken = false
	log.WithField(common.HostLogField, c.info.Key()).Debug("Connected to login node")
	return client, nil
}

func (c *sshCluster) session() (*ssh.Session, error) {
	c.Lock()
	defer c.Unlock()
	client, err := c.connectLocked()
	if err != nil {
		return nil, err
	}
	s, err := client.NewSession()
	if err != nil {
		c.broken = true
		return nil, errors.Wrap(err, "failed to open ssh session")
	}
	return s, nil
}

func (c *sshCluster) sftpClient() (*sftp.Client, error) {
	c.Lock()
	defer c.Unlock()
	if c.sftp != nil && !c.broken {
		return c.sftp, nil
	}
	client, err := c.connectLocked()
	if err != nil {
		return nil, err
	}
	s, err := sftp.NewClient(client)
	if err != nil {
		c.broken = true
		return nil, errors.Wrap(err, "failed to open sftp session")
	}
	c.sftp = s
	return s, nil
}

// Execute runs command in a new session. Canceling ctx closes the session.
func (c *sshCluster) Execute(ctx context.Context, command string) (*CommandOutput, error) {
	s, err := c.session()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var stdout, stderr bytes.Buffer
	s.Stdout = &stdout
	s.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- s.Run(command) }()

	c.metrics.Commands.Inc(1)
	select {
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	case err = <-done:
	}

	out := &CommandOutput{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) {
			c.metrics.CommandFail.Inc(1)
			return nil, errors.Wrapf(err, "failed to run %q", command)
		}
		out.ExitCode = exitErr.ExitStatus()
	}
	return out, nil
}

// run executes command and fails on a non-zero exit code.
func (c *sshCluster) run(ctx context.Context, command string) (*CommandOutput, error) {
	out, err := c.Execute(ctx, command)
	if err != nil {
		return nil, err
	}
	if out.ExitCode != 0 {
		c.metrics.CommandFail.Inc(1)
		return out, errors.Errorf("command %q exited with %d: %s",
			command, out.ExitCode, strings.TrimSpace(out.Stderr))
	}
	return out, nil
}

func (c *sshCluster) jobManager() (*JobManager, error) {
	if c.jm == nil {
		return nil, errors.Errorf("%s has no batch system", c.info.Host)
	}
	return c.jm, nil
}

func (c *sshCluster) SubmitBatchJob(ctx context.Context, jd *JobDescriptor) (string, error) {
	jm, err := c.jobManager()
	if err != nil {
		return "", err
	}
	script, err := jm.GenerateScript(jd)
	if err != nil {
		return "", err
	}
	if err := c.MakeDirectory(ctx, jd.WorkingDir); err != nil {
		return "", err
	}

	scriptPath := jm.ScriptPath(jd)
	if err := c.writeFile(scriptPath, []byte(script)); err != nil {
		return "", err
	}

	out, err := c.run(ctx, jm.SubmitCommand(scriptPath))
	if err != nil {
		return "", errors.Wrap(err, "batch submission failed")
	}
	jobID, err := jm.ParseJobID(out.Stdout)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		common.HostLogField:  c.info.Key(),
		common.JobIDLogField: jobID,
	}).Info("Batch job submitted")
	return jobID, nil
}

func (c *sshCluster) JobStatus(ctx context.Context, jobID string) (model.JobState, error) {
	jm, err := c.jobManager()
	if err != nil {
		return model.JobStateUnknown, err
	}
	out, err := c.Execute(ctx, jm.StatusCommand(jobID))
	if err != nil {
		return model.JobStateUnknown, err
	}
	// a job the batch system forgot about is reported as UNKNOWN
	return jm.ParseJobStatus(jobID, out.Stdout), nil
}

func (c *sshCluster) CancelJob(ctx context.Context, jobID string) error {
	jm, err := c.jobManager()
	if err != nil {
		return err
	}
	_, err = c.run(ctx, jm.CancelCommand(jobID))
	return err
}

func (c *sshCluster) MakeDirectory(ctx context.Context, dir string) error {
	s, err := c.sftpClient()
	if err != nil {
		return err
	}
	if err := s.MkdirAll(dir); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	return nil
}

func (c *sshCluster) writeFile(remotePath string, data []byte) error {
	s, err := c.sftpClient()
	if err != nil {
		return err
	}
	f, err := s.Create(remotePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", remotePath)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return errors.Wrapf(err, "failed to write %s", remotePath)
	}
	return nil
}

func (c *sshCluster) CopyTo(ctx context.Context, localPath, remotePath string) error {
	s, err := c.sftpClient()
	if err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", localPath)
	}
	defer src.Close()

	dst, err := s.Create(remotePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", remotePath)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return errors.Wrapf(err, "failed to copy %s to %s", localPath, remotePath)
	}
	c.metrics.BytesUploaded.Inc(n)
	return nil
}

func (c *sshCluster) CopyFrom(ctx context.Context, remotePath, localPath string) error {
	s, err := c.sftpClient()
	if err != nil {
		return err
	}
	src, err := s.Open(remotePath)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", remotePath)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(localPath))
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", localPath)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return errors.Wrapf(err, "failed to copy %s to %s", remotePath, localPath)
	}
	c.metrics.BytesDownloaded.Inc(n)
	return nil
}

func (c *sshCluster) ListDirectory(ctx context.Context, dir string) ([]string, error) {
	s, err := c.sftpClient()
	if err != nil {
		return nil, err
	}
	infos, err := s.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", dir)
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	return names, nil
}

func (c *sshCluster) Healthy() bool {
	c.Lock()
	defer c.Unlock()
	if c.broken {
		return false
	}
	if c.client == nil {
		return true
	}
	_, _, err := c.client.SendRequest("keepalive@openssh.com", true, nil)
	if err != nil {
		c.broken = true
		return false
	}
	return true
}

func (c *sshCluster) closeLocked() error {
	var err error
	if c.sftp != nil {
		err = c.sftp.Close()
		c.sftp = nil
	}
	if c.client != nil {
		if cerr := c.client.Close(); err == nil {
			err = cerr
		}
		c.client = nil
	}
	return err
}

func (c *sshCluster) Close() error {
	c.Lock()
	defer c.Unlock()
	return c.closeLocked()
}
