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

import "fmt"

// DirectoryCreationError is returned when the stats file's directory cannot be created.
type DirectoryCreationError struct {
	Dir string
	Err error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("unable to access or create the configured directory (%s): %v", e.Dir, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }

// WriteError is returned when the stats file cannot be opened or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("unable to write to stats file %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
