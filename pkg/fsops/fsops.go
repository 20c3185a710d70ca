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

package fsops

import (
	"io/fs"
	"os"

	"github.com/silogen/playbook-stats/pkg/dryrun"
	log "github.com/sirupsen/logrus"
)

// MkdirAll creates a directory named path, along with any necessary parents.
// If dry-run mode is enabled, it logs the operation instead.
func MkdirAll(path string, perm fs.FileMode) error {
	if dryrun.IsDryRun() {
		log.Infof("[DRY-RUN] MKDIR_ALL: %s (perm: %o)", path, perm)
		return nil
	}
	return os.MkdirAll(path, perm)
}

// WriteFile truncates (or creates) name and writes data to it in a single call.
// If dry-run mode is enabled, it logs the operation instead.
func WriteFile(name string, data []byte, perm fs.FileMode) error {
	if dryrun.IsDryRun() {
		log.Infof("[DRY-RUN] WRITE: %s (%d bytes, perm: %o)", name, len(data), perm)
		return nil
	}

	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
