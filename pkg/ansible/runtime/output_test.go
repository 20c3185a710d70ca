package runtime

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/silogen/playbook-stats/pkg/callback"
)

type fakeCallback struct {
	noHosts   int
	finalized int
	results   callback.HostResults
	err       error
}

func (f *fakeCallback) MarkNoHostsRemaining() { f.noHosts++ }

func (f *fakeCallback) Finalize(results callback.HostResults) error {
	f.finalized++
	f.results = results
	return f.err
}

func replayFile(t *testing.T, name string, mode OutputMode, cb Callback) *PlaybookStats {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	stats, err := ReplayOutput(f, mode, cb)
	if err != nil {
		t.Fatalf("ReplayOutput(%s) error = %v", name, err)
	}
	return stats
}

func TestOutputProcessor_Recap(t *testing.T) {
	cb := &fakeCallback{}
	replayFile(t, "failed_run.txt", OutputVerbose, cb)

	if cb.finalized != 1 {
		t.Fatalf("Finalize called %d times, want 1", cb.finalized)
	}
	if cb.noHosts != 0 {
		t.Errorf("MarkNoHostsRemaining called %d times, want 0", cb.noHosts)
	}

	got := callback.Collect(cb.results, false)
	if !reflect.DeepEqual(got.Failures, []string{"compute-01"}) {
		t.Errorf("Failures = %v", got.Failures)
	}
	if !reflect.DeepEqual(got.Unreachable, []string{"storage-01"}) {
		t.Errorf("Unreachable = %v", got.Unreachable)
	}
}

func TestOutputProcessor_IgnoringBeforeRecap(t *testing.T) {
	// Cut the recap off so only task lines count.
	data, err := os.ReadFile(filepath.Join("testdata", "failed_run.txt"))
	if err != nil {
		t.Fatal(err)
	}
	partial := string(data)[:strings.Index(string(data), "PLAY RECAP")]

	stats, err := ReplayOutput(strings.NewReader(partial), OutputVerbose, nil)
	if err != nil {
		t.Fatal(err)
	}

	control, _ := stats.Host("control-01")
	if control.Failures != 0 || control.Ignored != 1 {
		t.Errorf("control-01 = %+v, ignored failure should not count", control)
	}
	if !stats.Summarize("compute-01").FailuresOccurred() {
		t.Error("compute-01 should have failures")
	}
	if !stats.Summarize("storage-01").IsUnreachable() {
		t.Error("storage-01 should be unreachable")
	}
}

func TestOutputProcessor_NoHostsRemaining(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	rec := callback.NewRecorder(path)
	replayFile(t, "no_hosts_left.txt", OutputClean, rec)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"num_failures":2,"num_unreachable":0,"failures":["control-01","control-02"],"unreachable":[],"no_hosts_remaining":true}`
	if string(data) != want {
		t.Errorf("stats file = %s, want %s", data, want)
	}
}

func TestOutputProcessor_DelegatedHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	replayFile(t, "delegated_run.txt", OutputVerbose, callback.NewRecorder(path))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"num_failures":1,"num_unreachable":0,"failures":["web2"],"unreachable":[],"no_hosts_remaining":false}`
	if string(data) != want {
		t.Errorf("stats file = %s, want %s", data, want)
	}
}

func TestOutputProcessor_DelegatedHostsWithoutRecap(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "delegated_run.txt"))
	if err != nil {
		t.Fatal(err)
	}
	partial := string(data)[:strings.Index(string(data), "PLAY RECAP")]

	stats, err := ReplayOutput(strings.NewReader(partial), OutputVerbose, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := stats.Hosts(), []string{"web1", "web2", "web3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Hosts() = %v, want %v", got, want)
	}
}

func TestOutputProcessor_JSONMode(t *testing.T) {
	cb := &fakeCallback{}
	replayFile(t, "json_run.json", OutputJSON, cb)

	got := callback.Collect(cb.results, false)
	if got.NumFailures != 1 || got.NumUnreachable != 1 {
		t.Errorf("stats = %+v", got)
	}
}

func TestOutputProcessor_CleanOutput(t *testing.T) {
	var logBuf, out bytes.Buffer
	p := NewOutputProcessor(OutputClean, &logBuf, nil)

	input := "TASK [Install packages] ****\n\x1b[0;33mchanged: [web-1]\x1b[0m\nok: [web-2]\nPLAY RECAP ****\n"
	if err := p.ProcessStream(strings.NewReader(input), &out); err != nil {
		t.Fatal(err)
	}

	want := "🔄 Install packages [web-1]\n✅ Install packages [web-2]\n"
	if out.String() != want {
		t.Errorf("clean output = %q, want %q", out.String(), want)
	}
	if logBuf.String() != input {
		t.Errorf("log copy = %q, want raw input", logBuf.String())
	}
}

func TestOutputProcessor_FinishOnce(t *testing.T) {
	cb := &fakeCallback{}
	p := NewOutputProcessor(OutputVerbose, nil, cb)

	if err := p.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := p.Finish(); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("second Finish() = %v, want ErrAlreadyFinished", err)
	}
	if cb.finalized != 1 {
		t.Errorf("Finalize called %d times", cb.finalized)
	}
}

func TestOutputProcessor_FinalizeError(t *testing.T) {
	boom := errors.New("disk full")
	p := NewOutputProcessor(OutputVerbose, nil, &fakeCallback{err: boom})
	if err := p.Finish(); !errors.Is(err, boom) {
		t.Errorf("Finish() = %v, want %v", err, boom)
	}
}

func TestParseOutputMode(t *testing.T) {
	for _, s := range []string{"clean", "VERBOSE", "json"} {
		if _, err := ParseOutputMode(s); err != nil {
			t.Errorf("ParseOutputMode(%q) error = %v", s, err)
		}
	}
	if _, err := ParseOutputMode("fancy"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{5, "5s"},
		{65, "1m 5s"},
		{3725, "1h 2m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(time.Duration(tt.seconds) * time.Second); got != tt.want {
			t.Errorf("formatDuration(%ds) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
