package runtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// jsonResults mirrors the document printed by Ansible's json stdout callback.
type jsonResults struct {
	Plays []jsonPlay           `json:"plays"`
	Stats map[string]HostStats `json:"stats"`
}

type jsonPlay struct {
	Tasks []jsonTask `json:"tasks"`
}

type jsonTask struct {
	Hosts map[string]jsonHostResult `json:"hosts"`
}

type jsonHostResult struct {
	Changed     bool `json:"changed"`
	Failed      bool `json:"failed"`
	Skipped     bool `json:"skipped"`
	Unreachable bool `json:"unreachable"`
}

func (r jsonHostResult) status() TaskStatus {
	switch {
	case r.Unreachable:
		return TaskStatusUnreachable
	case r.Failed:
		return TaskStatusFailed
	case r.Skipped:
		return TaskStatusSkipped
	case r.Changed:
		return TaskStatusChanged
	default:
		return TaskStatusOK
	}
}

// ParseJSONResults reads json callback output. Anything printed before the document
// itself (deprecation warnings and the like) is skipped.
func ParseJSONResults(r io.Reader) (*PlaybookStats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json results: %w", err)
	}

	start := bytes.IndexByte(data, '{')
	if start < 0 {
		return nil, fmt.Errorf("no json document in playbook output")
	}
	if start > 0 {
		if nl := bytes.Index(data, []byte("\n{")); nl >= 0 {
			start = nl + 1
		}
	}

	var results jsonResults
	if err := json.NewDecoder(bytes.NewReader(data[start:])).Decode(&results); err != nil {
		return nil, fmt.Errorf("parse json results: %w", err)
	}

	stats := NewPlaybookStats()
	for _, play := range results.Plays {
		for _, task := range play.Tasks {
			for _, res := range task.Hosts {
				stats.Record(res.status())
			}
		}
	}
	for host, hs := range results.Stats {
		stats.SetRecap(host, hs)
	}

	return stats, nil
}
