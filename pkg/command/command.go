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

package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Stream runs a command, handing its stdout to handle while stderr is copied to errOut
// and logged at debug level. A non-zero exit is reported through the exit code, not
// the error; the error covers failures to start, read or handle the output.
// A nil env inherits the current environment.
func Stream(ctx context.Context, env []string, handle func(io.Reader) error, errOut io.Writer, command string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 1, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	log.Debugf("Running %s %s", command, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("failed to start command: %w", err)
	}

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			log.Debug(fmt.Sprintf("[%s] stderr: %s", command, line))
			if errOut != nil {
				fmt.Fprintln(errOut, line)
			}
		}
	}()

	handleErr := handle(stdout)
	if handleErr != nil {
		// Drain so the child does not block on a full pipe.
		io.Copy(io.Discard, stdout)
	}
	<-stderrDone

	waitErr := cmd.Wait()
	if handleErr != nil {
		return 1, fmt.Errorf("failed to process output: %w", handleErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0 {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("command failed: %w", waitErr)
	}

	return 0, nil
}
