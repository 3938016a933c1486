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

package logging

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/apache/airavata-gfac/pkg/common"
)

const redactedStr = "REDACTED"

// fields that are never written out
var _secretFields = map[string]struct{}{
	common.SSHPasswordLogField: {},
	common.PrivateKeyLogField:  {},
	common.SecretKeyLogField:   {},
	"password":                 {},
	"passphrase":               {},
	"token":                    {},
}

// SecretsFormatter scrubs credentials from log entries and formats them as
// parsable json.
type SecretsFormatter struct {
	*log.JSONFormatter
}

// Format is called by logrus and returns the formatted entry.
func (f *SecretsFormatter) Format(entry *log.Entry) ([]byte, error) {
	for k, v := range entry.Data {
		if _, ok := _secretFields[strings.ToLower(k)]; ok {
			entry.Data[k] = redactedStr
			continue
		}

		s, ok := v.(string)
		if !ok {
			continue
		}
		// registry statements touching the credential columns take their
		// arguments with them
		if k == common.DBStmtLogField && strings.Contains(strings.ToLower(s), "credential") {
			entry.Data[k] = redactedStr
			if _, ok := entry.Data[common.DBArgsLogField]; ok {
				entry.Data[common.DBArgsLogField] = redactedStr
			}
			continue
		}
		if strings.Contains(s, "PRIVATE KEY-----") {
			entry.Data[k] = redactedStr
		}
	}
	return f.JSONFormatter.Format(entry)
}
