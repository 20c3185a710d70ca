package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/silogen/playbook-stats/pkg/command"
	log "github.com/sirupsen/logrus"
)

// DefaultPlaybookBinary is the executable RunPlaybook starts unless told otherwise.
const DefaultPlaybookBinary = "ansible-playbook"

// PlaybookOptions describes one ansible-playbook invocation.
type PlaybookOptions struct {
	Binary  string   // defaults to DefaultPlaybookBinary
	Args    []string // passed through unchanged
	Mode    OutputMode
	LogPath string // optional copy of the raw output
	Stdout  io.Writer
	Stderr  io.Writer
}

// backupLogFile moves an existing log aside so every run starts a fresh one
func backupLogFile(logPath string) error {
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		return nil
	}

	timestamp := time.Now().Format("20060102-150405")
	ext := filepath.Ext(logPath)
	backupPath := fmt.Sprintf("%s-%s%s", logPath[:len(logPath)-len(ext)], timestamp, ext)

	if err := os.Rename(logPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup %s: %w", filepath.Base(logPath), err)
	}

	log.Infof("Backed up %s to %s", filepath.Base(logPath), filepath.Base(backupPath))
	return nil
}

// playbookEnv returns the environment for ansible-playbook in the given mode
func playbookEnv(mode OutputMode) []string {
	env := os.Environ()
	if mode == OutputJSON {
		env = append(env, "ANSIBLE_STDOUT_CALLBACK=json")
	}
	return env
}

// RunPlaybook runs ansible-playbook, feeding its output to cb, and returns the
// playbook's exit code. The stats are finalized even when the playbook fails, as long
// as it got as far as printing its PLAY RECAP; an error finalizing them is returned
// alongside the exit code.
func RunPlaybook(ctx context.Context, opts PlaybookOptions, cb Callback) (int, error) {
	binary := opts.Binary
	if binary == "" {
		binary = DefaultPlaybookBinary
	}
	if opts.Mode == "" {
		opts.Mode = OutputVerbose
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	var logFile io.Writer
	if opts.LogPath != "" {
		if err := backupLogFile(opts.LogPath); err != nil {
			log.Warn(err)
		}
		f, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return 1, fmt.Errorf("open playbook log: %w", err)
		}
		defer f.Close()
		logFile = f
	}

	processor := NewOutputProcessor(opts.Mode, logFile, cb)

	exitCode, err := command.Stream(ctx, playbookEnv(opts.Mode), func(r io.Reader) error {
		return processor.ProcessStream(r, opts.Stdout)
	}, opts.Stderr, binary, opts.Args...)
	if err != nil {
		return exitCode, fmt.Errorf("run %s: %w", binary, err)
	}

	log.Infof("%s exited with code %d", binary, exitCode)

	if opts.Mode != OutputJSON && !processor.RecapSeen() {
		log.Warnf("%s printed no PLAY RECAP, the run did not complete; stats file left unchanged", binary)
		return exitCode, nil
	}

	if err := processor.Finish(); err != nil {
		return exitCode, fmt.Errorf("record playbook stats: %w", err)
	}
	processor.PrintSummary(opts.Stdout)

	return exitCode, nil
}

// ReplayOutput processes previously captured ansible-playbook output as if it were
// streamed live, without displaying it.
func ReplayOutput(r io.Reader, mode OutputMode, cb Callback) (*PlaybookStats, error) {
	processor := NewOutputProcessor(mode, nil, cb)
	if err := processor.ProcessStream(r, io.Discard); err != nil {
		return nil, fmt.Errorf("read playbook output: %w", err)
	}
	if err := processor.Finish(); err != nil {
		return nil, err
	}
	return processor.Stats(), nil
}
