package runtime

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/silogen/playbook-stats/pkg/callback"
	log "github.com/sirupsen/logrus"
)

// OutputMode defines how Ansible output should be displayed
type OutputMode string

const (
	OutputVerbose OutputMode = "verbose" // Full Ansible output
	OutputClean   OutputMode = "clean"   // Emoji-based summary per task

	// OutputJSON switches ansible-playbook to its json stdout callback. That callback
	// never reports plays running out of hosts, so no_hosts_remaining is always false.
	OutputJSON OutputMode = "json"
)

// ParseOutputMode validates a mode name from the command line
func ParseOutputMode(s string) (OutputMode, error) {
	switch m := OutputMode(strings.ToLower(s)); m {
	case OutputVerbose, OutputClean, OutputJSON:
		return m, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want verbose, clean or json)", s)
	}
}

// Callback receives the playbook lifecycle notifications derived from the output.
// *callback.Recorder satisfies it.
type Callback interface {
	MarkNoHostsRemaining()
	Finalize(results callback.HostResults) error
}

// ErrAlreadyFinished is returned by Finish after the first call.
var ErrAlreadyFinished = errors.New("playbook output already finalized")

const maxLineSize = 16 * 1024 * 1024

// OutputProcessor handles Ansible output processing and formatting, and turns the
// output into lifecycle notifications for a Callback
type OutputProcessor struct {
	mode        OutputMode
	logFile     io.Writer
	stats       *PlaybookStats
	cb          Callback
	currentTask string
	lastResult  *TaskInfo
	inRecap     bool
	recapSeen   bool
	jsonBuf     bytes.Buffer
	startTime   time.Time
	finished    bool
}

// NewOutputProcessor creates a new output processor. logFile and cb may be nil.
func NewOutputProcessor(mode OutputMode, logFile io.Writer, cb Callback) *OutputProcessor {
	return &OutputProcessor{
		mode:      mode,
		logFile:   logFile,
		stats:     NewPlaybookStats(),
		cb:        cb,
		startTime: time.Now(),
	}
}

// Stats returns the statistics gathered so far
func (p *OutputProcessor) Stats() *PlaybookStats {
	return p.stats
}

// RecapSeen reports whether a PLAY RECAP section has been processed. Ansible prints
// the recap only once the run has produced its final stats.
func (p *OutputProcessor) RecapSeen() bool {
	return p.recapSeen
}

// ProcessStream reads from input and writes processed output to output
func (p *OutputProcessor) ProcessStream(input io.Reader, output io.Writer) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		if p.logFile != nil {
			io.WriteString(p.logFile, line+"\n")
		}

		if processedLine := p.processLine(line); processedLine != "" {
			fmt.Fprintln(output, processedLine)
		}
	}

	return scanner.Err()
}

// processLine records a single line of Ansible output and returns what to display
func (p *OutputProcessor) processLine(line string) string {
	if p.mode == OutputJSON {
		p.jsonBuf.WriteString(line)
		p.jsonBuf.WriteByte('\n')
		return line
	}

	p.observe(StripANSI(line))

	if p.mode == OutputClean {
		return p.formatClean(StripANSI(line))
	}
	return line
}

// observe updates stats and dispatches notifications for a colour-free line
func (p *OutputProcessor) observe(line string) {
	if IsNoHostsRemaining(line) {
		if p.cb != nil {
			p.cb.MarkNoHostsRemaining()
		}
		return
	}

	if IsRecapHeader(line) {
		p.inRecap = true
		p.recapSeen = true
		return
	}

	if p.inRecap {
		if strings.TrimSpace(line) == "" {
			p.inRecap = false
			return
		}
		if host, hs, ok := ParseRecapLine(line); ok {
			p.stats.SetRecap(host, hs)
		}
		return
	}

	if taskName, ok := ParseTaskHeader(line); ok {
		p.currentTask = taskName
		p.lastResult = nil
		return
	}

	if strings.TrimSpace(line) == "...ignoring" && p.lastResult != nil && p.lastResult.Status == TaskStatusFailed {
		p.stats.Reclassify(p.lastResult.Host, TaskStatusFailed, TaskStatusIgnored)
		p.lastResult.Status = TaskStatusIgnored
		return
	}

	if info, ok := ParseTaskResult(line); ok {
		if info.Status == TaskStatusFailed && IsIgnoredError(line) {
			info.Status = TaskStatusIgnored
		}
		p.stats.RecordHost(info.Host, info.Status)
		p.lastResult = info
	}
}

// formatClean renders a line in clean mode; most output is suppressed
func (p *OutputProcessor) formatClean(line string) string {
	info, ok := ParseTaskResult(line)
	if !ok || p.currentTask == "" {
		return ""
	}
	if p.lastResult != nil && p.lastResult.Status == TaskStatusIgnored {
		info.Status = TaskStatusIgnored
	}

	output := fmt.Sprintf("%s %s [%s]", getEmoji(info.Status), p.currentTask, info.Host)
	if info.Message != "" && !strings.Contains(info.Message, "{") {
		output += fmt.Sprintf(" (%s)", info.Message)
	}
	return output
}

// Finish hands the final per-host results to the callback. It must be called once,
// after the stream has been fully processed.
func (p *OutputProcessor) Finish() error {
	if p.finished {
		return ErrAlreadyFinished
	}
	p.finished = true

	if p.mode == OutputJSON {
		stats, err := ParseJSONResults(&p.jsonBuf)
		if err != nil {
			return err
		}
		p.stats = stats
	} else if !p.recapSeen {
		log.Warn("No PLAY RECAP in playbook output, host results are inferred from task lines")
	}

	if p.cb == nil {
		return nil
	}
	return p.cb.Finalize(p.stats)
}

// getEmoji returns the emoji for a given task status
func getEmoji(status TaskStatus) string {
	switch status {
	case TaskStatusOK:
		return "✅"
	case TaskStatusChanged:
		return "🔄"
	case TaskStatusFailed:
		return "❌"
	case TaskStatusSkipped:
		return "⏭️"
	case TaskStatusUnreachable:
		return "⛔"
	case TaskStatusIgnored:
		return "🙈"
	case TaskStatusRescued:
		return "🛟"
	default:
		return "•"
	}
}

// PrintSummary prints the final playbook summary in clean mode
func (p *OutputProcessor) PrintSummary(w io.Writer) {
	if p.mode != OutputClean {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Playbook complete: %s\n", p.stats.Summary())
	fmt.Fprintf(w, "Total time: %s\n", formatDuration(time.Since(p.startTime)))
}

// formatDuration formats a duration into a human-readable string
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60

	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
