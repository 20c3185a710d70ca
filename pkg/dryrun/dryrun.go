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

package dryrun

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	enabled bool
	mu      sync.RWMutex
)

// SetDryRun sets the dry-run mode
func SetDryRun(dryRun bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = dryRun
	if dryRun {
		log.Info("Dry-run enabled: the stats file will not be written")
	}
}

// IsDryRun returns true if dry-run mode is enabled
func IsDryRun() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}
