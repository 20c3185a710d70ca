package runtime

import (
	"regexp"
	"strconv"
	"strings"
)

// TaskInfo represents parsed information from an Ansible task result line
type TaskInfo struct {
	Host    string
	Status  TaskStatus
	Message string
}

var (
	// Match "TASK [task name] ****"
	taskHeaderRegex = regexp.MustCompile(`^TASK \[(.*?)\]`)

	// Match result lines like "ok: [127.0.0.1]", "changed: [host]", etc.
	// Delegated results print as "[host -> delegate]"; only the inventory host is captured.
	resultRegex = regexp.MustCompile(`^(ok|changed|failed|skipping|unreachable|ignoring|rescued):\s*\[([^\]]*?)(?: -> [^\]]*)?\](.*)`)

	// Match fatal errors, "fatal: [host]: FAILED! => {...}" or "fatal: [host]: UNREACHABLE! => {...}"
	fatalRegex = regexp.MustCompile(`^fatal:\s*\[([^\]]*?)(?: -> [^\]]*)?\]:(.*)`)

	// Match "PLAY RECAP ****"
	recapHeaderRegex = regexp.MustCompile(`^PLAY RECAP\b`)

	// Match recap lines like "host1   : ok=3    changed=1    unreachable=0    failed=0 ..."
	recapLineRegex = regexp.MustCompile(`^(\S+)\s+:\s+((?:[a-z]+=\d+\s*)+)$`)

	// Match "NO MORE HOSTS LEFT ****"
	noHostsRegex = regexp.MustCompile(`^NO MORE HOSTS LEFT\b`)

	ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

	msgRegex    = regexp.MustCompile(`"msg":\s*"([^"]+)"`)
	stderrRegex = regexp.MustCompile(`"stderr":\s*"([^"]+)"`)
)

// StripANSI removes terminal colour sequences from a line
func StripANSI(line string) string {
	return ansiRegex.ReplaceAllString(line, "")
}

// ParseTaskHeader checks if a line is a task header and extracts the task name
func ParseTaskHeader(line string) (string, bool) {
	matches := taskHeaderRegex.FindStringSubmatch(line)
	if len(matches) > 1 {
		return matches[1], true
	}
	return "", false
}

// ParseTaskResult checks if a line is a task result and extracts status info
func ParseTaskResult(line string) (*TaskInfo, bool) {
	matches := resultRegex.FindStringSubmatch(line)
	if len(matches) > 1 {
		message := strings.TrimSpace(matches[3])
		if strings.Contains(message, "=>") {
			parts := strings.SplitN(message, "=>", 2)
			if len(parts) == 2 {
				message = extractBriefMessage(parts[1])
			}
		}

		return &TaskInfo{
			Host:    matches[2],
			Status:  normalizeStatus(matches[1]),
			Message: message,
		}, true
	}

	matches = fatalRegex.FindStringSubmatch(line)
	if len(matches) > 1 {
		rest := strings.TrimSpace(matches[2])
		status := TaskStatusFailed
		if strings.HasPrefix(rest, "UNREACHABLE!") {
			status = TaskStatusUnreachable
		}

		return &TaskInfo{
			Host:    matches[1],
			Status:  status,
			Message: extractBriefMessage(rest),
		}, true
	}

	return nil, false
}

// IsRecapHeader reports whether line opens the PLAY RECAP section
func IsRecapHeader(line string) bool {
	return recapHeaderRegex.MatchString(line)
}

// IsNoHostsRemaining reports whether line is the banner Ansible prints when a play
// has no hosts left to run against
func IsNoHostsRemaining(line string) bool {
	return noHostsRegex.MatchString(line)
}

// ParseRecapLine extracts a host's counters from a PLAY RECAP line.
// Unknown counters are ignored so newer Ansible releases still parse.
func ParseRecapLine(line string) (string, HostStats, bool) {
	matches := recapLineRegex.FindStringSubmatch(strings.TrimSpace(line))
	if len(matches) < 3 {
		return "", HostStats{}, false
	}

	var stats HostStats
	for _, field := range strings.Fields(matches[2]) {
		key, value, found := strings.Cut(field, "=")
		if !found {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", HostStats{}, false
		}
		switch key {
		case "ok":
			stats.OK = n
		case "changed":
			stats.Changed = n
		case "unreachable":
			stats.Unreachable = n
		case "failed":
			stats.Failures = n
		case "skipped":
			stats.Skipped = n
		case "rescued":
			stats.Rescued = n
		case "ignored":
			stats.Ignored = n
		}
	}

	return matches[1], stats, true
}

// normalizeStatus converts Ansible status strings to TaskStatus
func normalizeStatus(status string) TaskStatus {
	switch strings.ToLower(status) {
	case "ok":
		return TaskStatusOK
	case "changed":
		return TaskStatusChanged
	case "failed":
		return TaskStatusFailed
	case "skipping":
		return TaskStatusSkipped
	case "unreachable":
		return TaskStatusUnreachable
	case "ignoring":
		return TaskStatusIgnored
	case "rescued":
		return TaskStatusRescued
	default:
		return TaskStatusOK
	}
}

// extractBriefMessage extracts a brief human-readable message from Ansible output
func extractBriefMessage(fullMsg string) string {
	if matches := msgRegex.FindStringSubmatch(fullMsg); len(matches) > 1 {
		return matches[1]
	}

	if matches := stderrRegex.FindStringSubmatch(fullMsg); len(matches) > 1 {
		return truncate(matches[1])
	}

	if strings.Contains(fullMsg, "changed=true") || strings.Contains(fullMsg, `"changed": true`) {
		return "configuration updated"
	}

	return truncate(strings.TrimSpace(fullMsg))
}

func truncate(msg string) string {
	if len(msg) > 100 {
		return msg[:97] + "..."
	}
	return msg
}

// IsIgnoredError checks if a task failure should be treated as ignored
func IsIgnoredError(line string) bool {
	return strings.Contains(line, "...ignoring") ||
		strings.Contains(line, "ignore_errors=True")
}
