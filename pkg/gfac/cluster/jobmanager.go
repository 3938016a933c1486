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
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/apache/airavata-gfac/pkg/model"
)

// JobManager knows the commands and output formats of one batch system.
type JobManager struct {
	Type          model.JobManagerType
	InstalledPath string

	submit    string
	status    string
	cancel    string
	extension string
	directive string

	jobIDPattern *regexp.Regexp
	parseStatus  func(jobID, out string) model.JobState
	directives   func(jd *JobDescriptor) []string
}

var (
	_pbsJobID   = regexp.MustCompile(`^\s*(\S+)\s*$`)
	_slurmJobID = regexp.MustCompile(`Submitted batch job (\d+)`)
	_ugeJobID   = regexp.MustCompile(`Your job (\d+)`)
	_lsfJobID   = regexp.MustCompile(`Job <(\d+)>`)
	_pbsState   = regexp.MustCompile(`job_state\s*=\s*(\S+)`)
)

// NewJobManager returns the job manager of type t whose binaries live in
// installedPath. An empty path relies on the login shell PATH.
func NewJobManager(t model.JobManagerType, installedPath string) (*JobManager, error) {
	if installedPath != "" && !strings.HasSuffix(installedPath, "/") {
		installedPath += "/"
	}
	jm := &JobManager{Type: t, InstalledPath: installedPath}
	switch t {
	case model.JobManagerPBS:
		jm.submit, jm.status, jm.cancel = "qsub %s", "qstat -f %s", "qdel %s"
		jm.extension, jm.directive = ".pbs", "#PBS"
		jm.jobIDPattern = _pbsJobID
		jm.parseStatus = parsePBSStatus
		jm.directives = pbsDirectives
	case model.JobManagerSlurm:
		jm.submit, jm.status, jm.cancel = "sbatch %s", "squeue -h -o %%T -j %s", "scancel %s"
		jm.extension, jm.directive = ".slurm", "#SBATCH"
		jm.jobIDPattern = _slurmJobID
		jm.parseStatus = parseSlurmStatus
		jm.directives = slurmDirectives
	case model.JobManagerUGE:
		jm.submit, jm.status, jm.cancel = "qsub %s", "qstat", "qdel %s"
		jm.extension, jm.directive = ".pbs", "#$"
		jm.jobIDPattern = _ugeJobID
		jm.parseStatus = parseUGEStatus
		jm.directives = ugeDirectives
	case model.JobManagerLSF:
		jm.submit, jm.status, jm.cancel = "bsub < %s", "bjobs -noheader -o stat %s", "bkill %s"
		jm.extension, jm.directive = ".lsf", "#BSUB"
		jm.jobIDPattern = _lsfJobID
		jm.parseStatus = parseLSFStatus
		jm.directives = lsfDirectives
	default:
		return nil, fmt.Errorf("unsupported job manager %q", t)
	}
	return jm, nil
}

// SubmitCommand returns the command submitting the script at scriptPath.
func (m *JobManager) SubmitCommand(scriptPath string) string {
	return m.InstalledPath + fmt.Sprintf(m.submit, scriptPath)
}

// StatusCommand returns the command querying the state of jobID.
func (m *JobManager) StatusCommand(jobID string) string {
	if strings.Contains(m.status, "%s") {
		return m.InstalledPath + fmt.Sprintf(m.status, jobID)
	}
	return m.InstalledPath + m.status
}

// CancelCommand returns the command canceling jobID.
func (m *JobManager) CancelCommand(jobID string) string {
	return m.InstalledPath + fmt.Sprintf(m.cancel, jobID)
}

// ScriptPath returns where the batch script of jd is written.
func (m *JobManager) ScriptPath(jd *JobDescriptor) string {
	return path.Join(jd.WorkingDir, jd.JobName+m.extension)
}

// ParseJobID extracts the job id from the output of the submit command.
func (m *JobManager) ParseJobID(out string) (string, error) {
	match := m.jobIDPattern.FindStringSubmatch(out)
	if len(match) < 2 || match[1] == "" {
		return "", errors.Errorf("no job id in submit output %q", strings.TrimSpace(out))
	}
	return match[1], nil
}

// ParseJobStatus maps the output of the status command to a job state.
// Jobs the batch system does not report are UNKNOWN.
func (m *JobManager) ParseJobStatus(jobID, out string) model.JobState {
	return m.parseStatus(jobID, out)
}

const _scriptTemplate = `#!/bin/bash
{{- range .Directives}}
{{$.Prefix}} {{.}}
{{- end}}
{{range .Environment}}
export {{.}}
{{- end}}
{{range .PreJobCommands}}
{{.}}
{{- end}}
cd {{.WorkingDir}}
{{.Command}}
`

var _script = template.Must(template.New("batch").Parse(_scriptTemplate))

// GenerateScript renders the batch script of jd.
func (m *JobManager) GenerateScript(jd *JobDescriptor) (string, error) {
	if jd.Executable == "" {
		return "", errors.New("job descriptor has no executable")
	}
	env := make([]string, 0, len(jd.Environment))
	for k, v := range jd.Environment {
		env = append(env, fmt.Sprintf("%s=%q", k, v))
	}
	sort.Strings(env)

	cmd := append([]string{jd.Executable}, jd.Arguments...)
	var buf bytes.Buffer
	err := _script.Execute(&buf, struct {
		Prefix         string
		Directives     []string
		Environment    []string
		PreJobCommands []string
		WorkingDir     string
		Command        string
	}{
		Prefix:         m.directive,
		Directives:     m.directives(jd),
		Environment:    env,
		PreJobCommands: jd.PreJobCommands,
		WorkingDir:     jd.WorkingDir,
		Command:        strings.Join(cmd, " "),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to render batch script")
	}
	return buf.String(), nil
}

// wallTime formats d as hh:mm:ss.
func wallTime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, mins, d/time.Second)
}

func pbsDirectives(jd *JobDescriptor) []string {
	d := []string{"-N " + jd.JobName}
	if jd.Queue != "" {
		d = append(d, "-q "+jd.Queue)
	}
	if jd.Account != "" {
		d = append(d, "-A "+jd.Account)
	}
	if jd.WallTime > 0 {
		d = append(d, "-l walltime="+wallTime(jd.WallTime))
	}
	if jd.NodeCount > 0 {
		ppn := 1
		if jd.CPUCount > jd.NodeCount {
			ppn = jd.CPUCount / jd.NodeCount
		}
		d = append(d, fmt.Sprintf("-l nodes=%d:ppn=%d", jd.NodeCount, ppn))
	}
	return append(d, "-o "+jd.StdOut, "-e "+jd.StdErr)
}

func slurmDirectives(jd *JobDescriptor) []string {
	d := []string{"--job-name=" + jd.JobName}
	if jd.Queue != "" {
		d = append(d, "--partition="+jd.Queue)
	}
	if jd.Account != "" {
		d = append(d, "--account="+jd.Account)
	}
	if jd.WallTime > 0 {
		d = append(d, "--time="+wallTime(jd.WallTime))
	}
	if jd.NodeCount > 0 {
		d = append(d, fmt.Sprintf("--nodes=%d", jd.NodeCount))
	}
	if jd.CPUCount > 0 {
		d = append(d, fmt.Sprintf("--ntasks=%d", jd.CPUCount))
	}
	return append(d, "--output="+jd.StdOut, "--error="+jd.StdErr)
}

func ugeDirectives(jd *JobDescriptor) []string {
	d := []string{"-N " + jd.JobName, "-S /bin/bash"}
	if jd.Queue != "" {
		d = append(d, "-q "+jd.Queue)
	}
	if jd.Account != "" {
		d = append(d, "-A "+jd.Account)
	}
	if jd.WallTime > 0 {
		d = append(d, "-l h_rt="+wallTime(jd.WallTime))
	}
	if jd.CPUCount > 0 {
		d = append(d, fmt.Sprintf("-pe mpi %d", jd.CPUCount))
	}
	return append(d, "-o "+jd.StdOut, "-e "+jd.StdErr)
}

func lsfDirectives(jd *JobDescriptor) []string {
	d := []string{"-J " + jd.JobName}
	if jd.Queue != "" {
		d = append(d, "-q "+jd.Queue)
	}
	if jd.Account != "" {
		d = append(d, "-P "+jd.Account)
	}
	if jd.WallTime > 0 {
		mins := int(jd.WallTime / time.Minute)
		d = append(d, fmt.Sprintf("-W %d:%02d", mins/60, mins%60))
	}
	if jd.CPUCount > 0 {
		d = append(d, fmt.Sprintf("-n %d", jd.CPUCount))
	}
	return append(d, "-o "+jd.StdOut, "-e "+jd.StdErr)
}

func parsePBSStatus(jobID, out string) model.JobState {
	match := _pbsState.FindStringSubmatch(out)
	if len(match) < 2 {
		return model.JobStateUnknown
	}
	switch match[1] {
	case "Q", "W":
		return model.JobStateQueued
	case "R", "E", "B":
		return model.JobStateActive
	case "T":
		return model.JobStateSetup
	case "H":
		return model.JobStateHeld
	case "S":
		return model.JobStateSuspended
	case "C", "F":
		return model.JobStateComplete
	}
	return model.JobStateUnknown
}

func parseSlurmStatus(jobID, out string) model.JobState {
	switch strings.TrimSpace(out) {
	case "PENDING":
		return model.JobStateQueued
	case "CONFIGURING":
		return model.JobStateSetup
	case "RUNNING", "COMPLETING":
		return model.JobStateActive
	case "SUSPENDED", "STOPPED":
		return model.JobStateSuspended
	case "COMPLETED":
		return model.JobStateComplete
	case "CANCELLED":
		return model.JobStateCanceled
	case "FAILED", "TIMEOUT", "NODE_FAIL", "OUT_OF_MEMORY", "BOOT_FAIL", "DEADLINE":
		return model.JobStateFailed
	}
	return model.JobStateUnknown
}

// parseUGEStatus reads the state column of the qstat table row of jobID.
func parseUGEStatus(jobID, out string) model.JobState {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || fields[0] != jobID {
			continue
		}
		state := fields[4]
		switch {
		case strings.Contains(state, "E"):
			return model.JobStateFailed
		case strings.HasPrefix(state, "d"):
			return model.JobStateCanceling
		case strings.Contains(state, "h"):
			return model.JobStateHeld
		case strings.Contains(state, "s") || strings.Contains(state, "S"):
			return model.JobStateSuspended
		case strings.Contains(state, "qw"):
			return model.JobStateQueued
		case state == "t":
			return model.JobStateSetup
		case strings.Contains(state, "r"):
			return model.JobStateActive
		}
		return model.JobStateUnknown
	}
	return model.JobStateUnknown
}

func parseLSFStatus(jobID, out string) model.JobState {
	switch strings.TrimSpace(out) {
	case "PEND", "WAIT":
		return model.JobStateQueued
	case "RUN":
		return model.JobStateActive
	case "PSUSP", "USUSP", "SSUSP":
		return model.JobStateSuspended
	case "DONE":
		return model.JobStateComplete
	case "EXIT":
		return model.JobStateFailed
	}
	return model.JobStateUnknown
}
