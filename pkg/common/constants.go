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

package common

const (
	// GFacServer is the service name of the job execution daemon.
	GFacServer = "gfac"

	// GFacRole is the role used for leader election between replicas that
	// share one server name.
	GFacRole = "gfac"

	// AppLogField is the static log field carrying the application name.
	AppLogField = "app"

	// ExperimentIDLogField is the log field name of the experiment id.
	ExperimentIDLogField = "experiment_id"
	// TaskIDLogField is the log field name of the task id.
	TaskIDLogField = "task_id"
	// JobIDLogField is the log field name of the remote job id.
	JobIDLogField = "job_id"
	// HostLogField is the log field name of the compute host.
	HostLogField = "host"

	// SSHPasswordLogField carries an SSH password and is always redacted.
	SSHPasswordLogField = "ssh_password"
	// PrivateKeyLogField carries key material and is always redacted.
	PrivateKeyLogField = "private_key"
	// SecretKeyLogField carries cloud secret keys and is always redacted.
	SecretKeyLogField = "secret_key"
	// DBStmtLogField is the log field name of a registry SQL statement.
	DBStmtLogField = "db_stmt"
	// DBArgsLogField is the log field name of the arguments of a statement.
	DBArgsLogField = "db_args"
)
