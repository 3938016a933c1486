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
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/apache/airavata-gfac/pkg/model"
)

// ServerInfo identifies a login node and the account used on it.
type ServerInfo struct {
	UserName string
	Host     string
	Port     int
}

// Address returns host:port.
func (s ServerInfo) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Key identifies the connection in the cluster cache.
func (s ServerInfo) Key() string {
	return fmt.Sprintf("%s@%s", s.UserName, s.Address())
}

// Credentials authenticate against a login node. When both are set the
// password is tried first.
type Credentials struct {
	Password   string
	PrivateKey []byte
	Passphrase []byte
}

// AuthMethods converts the credentials into ssh auth methods.
func (c Credentials) AuthMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if c.Password != "" {
		methods = append(methods, ssh.Password(c.Password))
	}
	if len(c.PrivateKey) > 0 {
		var signer ssh.Signer
		var err error
		if len(c.Passphrase) > 0 {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(c.PrivateKey, c.Passphrase)
		} else {
			signer, err = ssh.ParsePrivateKey(c.PrivateKey)
		}
		if err != nil {
			return nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no ssh credentials configured")
	}
	return methods, nil
}

// CommandOutput is the result of a remote command.
type CommandOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// JobDescriptor is everything needed to write a batch script.
type JobDescriptor struct {
	JobName        string
	Executable     string
	Arguments      []string
	WorkingDir     string
	InputDir       string
	OutputDir      string
	StdOut         string
	StdErr         string
	Queue          string
	Account        string
	NodeCount      int
	CPUCount       int
	WallTime       time.Duration
	Environment    map[string]string
	PreJobCommands []string
}

// CommandLine returns the shell command that runs the executable of jd in
// its working directory with the standard streams redirected.
func (jd *JobDescriptor) CommandLine() string {
	cmd := strings.Join(append([]string{jd.Executable}, jd.Arguments...), " ")
	if jd.StdOut != "" {
		cmd += " 1>" + jd.StdOut
	}
	if jd.StdErr != "" {
		cmd += " 2>" + jd.StdErr
	}
	if jd.WorkingDir != "" {
		cmd = "cd " + jd.WorkingDir + " && " + cmd
	}
	return cmd
}

// RemoteCluster runs commands, batch jobs and file transfers on one login
// node.
type RemoteCluster interface {
	// ServerInfo returns the login node this cluster talks to.
	ServerInfo() ServerInfo

	// SubmitBatchJob writes the batch script of jd into its working
	// directory, submits it and returns the job id.
	SubmitBatchJob(ctx context.Context, jd *JobDescriptor) (string, error)

	// JobStatus queries the batch system for the state of a job.
	JobStatus(ctx context.Context, jobID string) (model.JobState, error)

	// CancelJob asks the batch system to cancel a job.
	CancelJob(ctx context.Context, jobID string) error

	// Execute runs a shell command and waits for it.
	Execute(ctx context.Context, command string) (*CommandOutput, error)

	MakeDirectory(ctx context.Context, dir string) error
	CopyTo(ctx context.Context, localPath, remotePath string) error
	CopyFrom(ctx context.Context, remotePath, localPath string) error
	ListDirectory(ctx context.Context, dir string) ([]string, error)

	// Healthy returns false once the underlying connection is broken.
	Healthy() bool

	Close() error
}
