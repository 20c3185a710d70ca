// Package report reads a stats file back and renders it for people and scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/silogen/playbook-stats/pkg/callback"
	"gopkg.in/yaml.v3"
)

// Format selects how a stats record is rendered
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name from the command line
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
	}
}

// Load reads a stats file written by callback.Recorder.
func Load(path string) (callback.Stats, error) {
	var s callback.Stats

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read stats file: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse stats file %s: %w", path, err)
	}

	if s.Failures == nil {
		s.Failures = []string{}
	}
	if s.Unreachable == nil {
		s.Unreachable = []string{}
	}
	return s, nil
}

// Healthy reports whether the run had no failed or unreachable hosts and did not
// end early.
func Healthy(s callback.Stats) bool {
	return s.NumFailures == 0 && s.NumUnreachable == 0 && !s.NoHostsRemaining
}

// Render writes s to w in the given format.
func Render(w io.Writer, s callback.Stats, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(s)
	case FormatText, "":
		return renderText(w, s)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderText(w io.Writer, s callback.Stats) error {
	hostList := func(hosts []string) string {
		if len(hosts) == 0 {
			return ""
		}
		return " (" + strings.Join(hosts, ", ") + ")"
	}

	failures := color.Green
	if s.NumFailures > 0 {
		failures = color.Red
	}
	unreachable := color.Green
	if s.NumUnreachable > 0 {
		unreachable = color.Yellow
	}

	fmt.Fprintf(w, "Failed hosts:      %s%s\n", failures.Sprint(s.NumFailures), hostList(s.Failures))
	fmt.Fprintf(w, "Unreachable hosts: %s%s\n", unreachable.Sprint(s.NumUnreachable), hostList(s.Unreachable))

	if s.NoHostsRemaining {
		fmt.Fprintf(w, "%s\n", color.Red.Sprint("Run ended early: no hosts remaining"))
	}

	if Healthy(s) {
		_, err := fmt.Fprintf(w, "%s\n", color.Green.Sprint("All hosts succeeded"))
		return err
	}
	return nil
}
