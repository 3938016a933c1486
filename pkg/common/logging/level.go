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
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const (
	// LevelOverwrite is the default endpoint for overwrite level handler.
	LevelOverwrite = "/logging-level"

	_level    = "level"
	_duration = "duration"
	_usage    = "usage: GET `/logging-level?level=[warn|info|debug|trace]&duration=<duration>`"

	// _maxOverwrite bounds how long a temporary level may stay in effect.
	_maxOverwrite = 24 * time.Hour
)

// levelOverwrite temporarily changes the process log level and restores the
// initial level once the latest requested duration elapsed.
type levelOverwrite struct {
	sync.Mutex
	initial atomic.Int32
	timer   *time.Timer
}

func getParams(names []string, r *http.Request) (map[string]string, error) {
	result := make(map[string]string)
	values := r.URL.Query()
	var missing []string
	for _, name := range names {
		v, ok := values[name]
		if !ok || len(v) == 0 || v[0] == "" {
			missing = append(missing, name)
			continue
		}
		result[name] = v[0]
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("Required params not set: %s", strings.Join(missing, ","))
	}
	return result, nil
}

func writeError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintln(w, err.Error())
	fmt.Fprintln(w, _usage)
}

func (o *levelOverwrite) reset() {
	level := log.Level(o.initial.Load())
	log.WithField("initial_level", level).Info("Resetting log level after timer")
	log.SetLevel(level)
}

func (o *levelOverwrite) serve(w http.ResponseWriter, r *http.Request) {
	params, err := getParams([]string{_level, _duration}, r)
	if err != nil {
		writeError(w, err)
		return
	}

	newLevel, err := log.ParseLevel(params[_level])
	if err != nil {
		writeError(w, err)
		return
	}
	if newLevel < log.WarnLevel {
		writeError(w, fmt.Errorf("New Level %s is below warn", params[_level]))
		return
	}

	duration, err := time.ParseDuration(params[_duration])
	if err != nil {
		writeError(w, err)
		return
	}
	if duration <= 0 || duration > _maxOverwrite {
		writeError(w, fmt.Errorf("duration must be in (0, %v]", _maxOverwrite))
		return
	}

	log.WithFields(log.Fields{
		"new_level": newLevel,
		"duration":  duration,
	}).Info("Setting log level to new level")

	o.Lock()
	if o.timer != nil {
		o.timer.Stop()
	}
	log.SetLevel(newLevel)
	o.timer = time.AfterFunc(duration, o.reset)
	o.Unlock()

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Level changed to %s for the next %v.\n", params[_level], duration)
}

// LevelOverwriteHandler sets the process log level to initialLevel and
// returns a handler that overwrites it for a duration. A new request
// replaces any pending reset.
func LevelOverwriteHandler(initialLevel log.Level) func(http.ResponseWriter, *http.Request) {
	o := &levelOverwrite{}
	o.initial.Store(int32(initialLevel))
	log.SetLevel(initialLevel)
	return o.serve
}
