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
	"github.com/uber-go/tally"
)

// Metrics tracks data movement of the staging handlers.
type Metrics struct {
	DirectoriesCreated tally.Counter
	FilesStagedIn      tally.Counter
	FilesStagedOut     tally.Counter
	ObjectsUploaded    tally.Counter
	TransferFail       tally.Counter
}

// NewMetrics returns a new Metrics struct rooted at scope.
func NewMetrics(scope tally.Scope) *Metrics {
	return &Metrics{
		DirectoriesCreated: scope.Counter("directories_created"),
		FilesStagedIn:      scope.Counter("files_staged_in"),
		FilesStagedOut:     scope.Counter("files_staged_out"),
		ObjectsUploaded:    scope.Counter("objects_uploaded"),
		TransferFail:       scope.Counter("transfer_fail"),
	}
}
