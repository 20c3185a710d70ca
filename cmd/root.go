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

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/silogen/playbook-stats/pkg/config"
	"github.com/silogen/playbook-stats/pkg/dryrun"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	Version   string // Set via ldflags during build
	cfgFile   string
	statsPath string
	dryRun    bool
	logLevel  string
	logPath   string
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func Execute() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "playbook-stats",
		Short: "Record Ansible playbook host statistics to a JSON file",
		Long: `
playbook-stats records which hosts failed or were unreachable during an Ansible
playbook run, and whether the run ended early because no hosts were left, in a
JSON statistics file.

The file location is taken from, in order:
  - the --stats-path flag
  - the ANSIBLE_KOLLA_STATS_PATH environment variable
  - kolla_stats_path in the [callback_kolla_stats] section of the Ansible config file
  - ~/.ansible/kolla_stats/kolla_stats.json
`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initLogging,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Ansible config file (default: Ansible's own search order)")
	rootCmd.PersistentFlags().StringVar(&statsPath, "stats-path", "", "stats file to write, overriding environment and config")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log the stats file write instead of performing it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "", "write logs to this file instead of stderr")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			if Version != "" {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "dev")
			}
		},
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

func initLogging(cmd *cobra.Command, args []string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Warnf("Could not open log file: %v", err)
		} else {
			log.SetOutput(logFile)
		}
	}

	dryrun.SetDryRun(dryRun)
	return nil
}

// resolveStatsPath applies the --stats-path override on top of config resolution
func resolveStatsPath() (string, error) {
	if statsPath != "" {
		return config.ExpandPath(statsPath)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	log.Debugf("Stats file: %s", cfg.StatsPath)
	return cfg.StatsPath, nil
}
