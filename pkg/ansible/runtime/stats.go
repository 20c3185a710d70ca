package runtime

import (
	"fmt"
	"sort"

	"github.com/silogen/playbook-stats/pkg/callback"
)

// TaskStatus represents the outcome of an Ansible task
type TaskStatus string

const (
	TaskStatusOK          TaskStatus = "ok"
	TaskStatusChanged     TaskStatus = "changed"
	TaskStatusFailed      TaskStatus = "failed"
	TaskStatusSkipped     TaskStatus = "skipped"
	TaskStatusUnreachable TaskStatus = "unreachable"
	TaskStatusIgnored     TaskStatus = "ignored"
	TaskStatusRescued     TaskStatus = "rescued"
)

// HostStats holds the per-host counters shown in the PLAY RECAP.
type HostStats struct {
	OK          int `json:"ok"`
	Changed     int `json:"changed"`
	Unreachable int `json:"unreachable"`
	Failures    int `json:"failures"`
	Skipped     int `json:"skipped"`
	Rescued     int `json:"rescued"`
	Ignored     int `json:"ignored"`
}

func (h *HostStats) FailuresOccurred() bool { return h.Failures > 0 }
func (h *HostStats) IsUnreachable() bool { return h.Unreachable > 0 }

func (h *HostStats) counter(status TaskStatus) *int {
	switch status {
	case TaskStatusOK:
		return &h.OK
	case TaskStatusChanged:
		return &h.Changed
	case TaskStatusFailed:
		return &h.Failures
	case TaskStatusSkipped:
		return &h.Skipped
	case TaskStatusUnreachable:
		return &h.Unreachable
	case TaskStatusIgnored:
		return &h.Ignored
	case TaskStatusRescued:
		return &h.Rescued
	}
	return nil
}

// PlaybookStats tracks the outcome statistics for an Ansible playbook run.
// The task counters are run-wide; hosts holds the per-host breakdown and recapped
// the hosts listed in PLAY RECAP.
type PlaybookStats struct {
	OK          int
	Changed     int
	Failed      int
	Skipped     int
	Unreachable int
	Ignored     int

	hosts    map[string]*HostStats
	recapped map[string]bool
}

// NewPlaybookStats returns empty stats.
func NewPlaybookStats() *PlaybookStats {
	return &PlaybookStats{hosts: make(map[string]*HostStats)}
}

func (s *PlaybookStats) host(name string) *HostStats {
	if s.hosts == nil {
		s.hosts = make(map[string]*HostStats)
	}
	h, ok := s.hosts[name]
	if !ok {
		h = &HostStats{}
		s.hosts[name] = h
	}
	return h
}

// Record increments the run-wide counter for the given status
func (s *PlaybookStats) Record(status TaskStatus) {
	if c := s.counter(status); c != nil {
		*c++
	}
}

// RecordHost counts a task result against a host as well as the run totals.
func (s *PlaybookStats) RecordHost(host string, status TaskStatus) {
	s.Record(status)
	if host != "" {
		if c := s.host(host).counter(status); c != nil {
			*c++
		}
	}
}

// Reclassify moves one task result for host from one status to another, used when
// Ansible reports "...ignoring" after a failure.
func (s *PlaybookStats) Reclassify(host string, from, to TaskStatus) {
	s.Record(to)
	if c := s.counter(from); c != nil && *c > 0 {
		*c--
	}

	h, ok := s.hosts[host]
	if !ok {
		return
	}
	if c := h.counter(from); c != nil && *c > 0 {
		*c--
	}
	if c := h.counter(to); c != nil {
		*c++
	}
}

func (s *PlaybookStats) counter(status TaskStatus) *int {
	switch status {
	case TaskStatusOK:
		return &s.OK
	case TaskStatusChanged:
		return &s.Changed
	case TaskStatusFailed:
		return &s.Failed
	case TaskStatusSkipped:
		return &s.Skipped
	case TaskStatusUnreachable:
		return &s.Unreachable
	case TaskStatusIgnored:
		return &s.Ignored
	}
	return nil
}

// SetRecap replaces a host's counters with the values Ansible reported in its recap.
// The recap is authoritative: counts inferred from task lines are approximations
// (loops print one line per item).
func (s *PlaybookStats) SetRecap(host string, stats HostStats) {
	*s.host(host) = stats
	if s.recapped == nil {
		s.recapped = make(map[string]bool)
	}
	s.recapped[host] = true
}

// Host returns a copy of the counters for host.
func (s *PlaybookStats) Host(name string) (HostStats, bool) {
	h, ok := s.hosts[name]
	if !ok {
		return HostStats{}, false
	}
	return *h, true
}

// processed reports whether host counts as a processed host. Once a recap has been
// seen only the hosts it lists do; before that every host with a task result does.
func (s *PlaybookStats) processed(host string) bool {
	if len(s.recapped) > 0 {
		return s.recapped[host]
	}
	_, ok := s.hosts[host]
	return ok
}

// Hosts returns the processed host names in ascending order.
func (s *PlaybookStats) Hosts() []string {
	names := make([]string, 0, len(s.hosts))
	for name := range s.hosts {
		if s.processed(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Summarize implements callback.HostResults.
func (s *PlaybookStats) Summarize(host string) callback.HostSummary {
	if !s.processed(host) {
		return nil
	}
	return s.hosts[host]
}

// Total returns the total number of tasks
func (s *PlaybookStats) Total() int {
	return s.OK + s.Changed + s.Failed + s.Skipped + s.Unreachable + s.Ignored
}

// Summary returns a formatted summary string
func (s *PlaybookStats) Summary() string {
	return fmt.Sprintf("%d ok, %d changed, %d failed, %d skipped, %d unreachable, %d ignored",
		s.OK, s.Changed, s.Failed, s.Skipped, s.Unreachable, s.Ignored)
}
