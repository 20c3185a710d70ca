/**
 * Copyright 2025 Advanced Micro Devices, Inc.  All rights reserved.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
**/

package callback

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/silogen/playbook-stats/pkg/fsops"
	log "github.com/sirupsen/logrus"
)

// Recorder accumulates run state between notifications and writes the stats file
// when the run completes. It is not safe for concurrent use; the runtime dispatches
// notifications from a single goroutine.
type Recorder struct {
	path             string
	noHostsRemaining bool
}

// NewRecorder returns a Recorder writing to path.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Path returns the stats file location.
func (r *Recorder) Path() string {
	return r.path
}

// MarkNoHostsRemaining records that a play ended early with no hosts left.
//
// The runtime does not reliably emit this notification in every case where a play
// runs out of hosts (ansible/ansible#81549), so a false flag in the output does not
// prove the run went to completion.
func (r *Recorder) MarkNoHostsRemaining() {
	if !r.noHostsRemaining {
		log.Debug("No hosts remaining in play")
	}
	r.noHostsRemaining = true
}

// NoHostsRemaining reports whether MarkNoHostsRemaining has been called.
func (r *Recorder) NoHostsRemaining() bool {
	return r.noHostsRemaining
}

// Finalize classifies the final per-host results and writes the stats file.
func (r *Recorder) Finalize(results HostResults) error {
	s := Collect(results, r.noHostsRemaining)

	buf, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	log.WithFields(log.Fields{
		"failures":           s.NumFailures,
		"unreachable":        s.NumUnreachable,
		"no_hosts_remaining": s.NoHostsRemaining,
	}).Info("Writing playbook stats")

	return r.write(buf)
}

// write creates the parent directory if needed and replaces the file's contents with buf.
// Nothing is retried; a failed write after truncation can leave an empty or short file.
func (r *Recorder) write(buf []byte) error {
	dir := filepath.Dir(r.path)
	if err := fsops.MkdirAll(dir, 0o755); err != nil {
		log.WithField("path", dir).WithError(err).Error("Unable to access or create the configured directory")
		return &DirectoryCreationError{Dir: dir, Err: err}
	}

	if err := fsops.WriteFile(r.path, buf, 0o644); err != nil {
		log.WithField("path", r.path).WithError(err).Error("Unable to write to stats file")
		return &WriteError{Path: r.path, Err: err}
	}

	log.Infof("Stats written to %s", r.path)
	return nil
}
