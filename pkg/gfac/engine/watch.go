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

package engine

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/apache/airavata-gfac/pkg/gfac/checkpoint"
)

const _rewatchDelay = 5 * time.Second

// watch launches the submissions appearing under the server node until
// stopCh is closed. The watch is set up again when the coordination store
// drops it.
func (e *Engine) watch(stopCh chan struct{}, updates <-chan []checkpoint.ExperimentKey) {
	defer e.watchWg.Done()
	for {
		if updates != nil {
			for keys := range updates {
				e.enqueueAll(keys)
			}
		}

		select {
		case <-stopCh:
			return
		case <-time.After(_rewatchDelay):
		}

		var err error
		updates, err = e.deps.Checkpoints.WatchExperiments(context.Background(), stopCh)
		if err != nil {
			log.WithError(err).Warn("Failed to watch launch requests, retrying")
			updates = nil
		}
	}
}
