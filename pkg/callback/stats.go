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

// Package callback records the outcome of a playbook run as a JSON stats file.
//
// The recorder is driven by two lifecycle notifications from the playbook runtime:
// MarkNoHostsRemaining, which may fire any number of times when a play runs out of
// hosts, and Finalize, which fires once at the end of the run with the per-host results.
package callback

import "sort"

// Stats is the record written to the stats file. Field order is the JSON field order.
type Stats struct {
	NumFailures      int      `json:"num_failures" yaml:"num_failures"`
	NumUnreachable   int      `json:"num_unreachable" yaml:"num_unreachable"`
	Failures         []string `json:"failures" yaml:"failures"`
	Unreachable      []string `json:"unreachable" yaml:"unreachable"`
	NoHostsRemaining bool     `json:"no_hosts_remaining" yaml:"no_hosts_remaining"`
}

// HostSummary is the part of a host's run summary the recorder looks at.
type HostSummary interface {
	FailuresOccurred() bool
	IsUnreachable() bool
}

// HostResults exposes the hosts processed during a run and a summary for each.
type HostResults interface {
	Hosts() []string
	Summarize(host string) HostSummary
}

// Summaries is a plain host name to summary mapping.
type Summaries map[string]HostSummary

// Hosts returns the mapped host names in no particular order.
func (s Summaries) Hosts() []string {
	hosts := make([]string, 0, len(s))
	for h := range s {
		hosts = append(hosts, h)
	}
	return hosts
}

// Summarize returns the summary for host, or nil if it is not mapped.
func (s Summaries) Summarize(host string) HostSummary {
	return s[host]
}

// Status is a fixed HostSummary value.
type Status struct {
	Failed    bool
	Unreached bool
}

// FailuresOccurred reports whether any task failed on the host.
func (s Status) FailuresOccurred() bool { return s.Failed }

// IsUnreachable reports whether the host could not be reached.
func (s Status) IsUnreachable() bool { return s.Unreached }

// Collect classifies every host in results. Hosts are visited in ascending name order so
// the record is the same whatever order the runtime reported them in.
func Collect(results HostResults, noHostsRemaining bool) Stats {
	s := Stats{
		Failures:         []string{},
		Unreachable:      []string{},
		NoHostsRemaining: noHostsRemaining,
	}
	if results == nil {
		return s
	}

	hosts := append([]string(nil), results.Hosts()...)
	sort.Strings(hosts)

	for _, h := range hosts {
		t := results.Summarize(h)
		if t == nil {
			continue
		}
		if t.FailuresOccurred() {
			s.NumFailures++
			s.Failures = append(s.Failures, h)
		}
		if t.IsUnreachable() {
			s.NumUnreachable++
			s.Unreachable = append(s.Unreachable, h)
		}
	}
	return s
}
