package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recapOutput = `
PLAY [all] *********************************************************************

TASK [Gathering Facts] *********************************************************
ok: [a]
fatal: [b]: FAILED! => {"msg": "boom"}
fatal: [c]: UNREACHABLE! => {"msg": "No route to host", "unreachable": true}

PLAY RECAP *********************************************************************
a                          : ok=1    changed=0    unreachable=0    failed=0    skipped=0    rescued=0    ignored=0
b                          : ok=0    changed=0    unreachable=0    failed=1    skipped=0    rescued=0    ignored=0
c                          : ok=0    changed=0    unreachable=1    failed=0    skipped=0    rescued=0    ignored=0

`

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ANSIBLE_KOLLA_STATS_PATH", "")
	os.Unsetenv("ANSIBLE_KOLLA_STATS_PATH")
	empty := filepath.Join(home, "ansible.cfg")
	require.NoError(t, os.WriteFile(empty, []byte("[defaults]\n"), 0o644))
	t.Setenv("ANSIBLE_CONFIG", empty)
	return home
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestParse_Stdin(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "stats", "kolla_stats.json")

	out, err := execute(t, recapOutput, "parse", "--stats-path", path, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded 3 hosts")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"num_failures":1,"num_unreachable":1,"failures":["b"],"unreachable":["c"],"no_hosts_remaining":false}`, string(data))
}

func TestParse_UsesEnvPath(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "env.json")
	t.Setenv("ANSIBLE_KOLLA_STATS_PATH", path)

	_, err := execute(t, recapOutput, "parse", "-")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestParse_DryRun(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "dry.json")

	_, err := execute(t, recapOutput, "--dry-run", "parse", "--stats-path", path, "-")
	require.NoError(t, err)
	assert.NoFileExists(t, path)

	// Without the flag the same command writes the file.
	_, err = execute(t, recapOutput, "parse", "--stats-path", path, "-")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestParse_BadInput(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, "", "parse", "--input", "xml", "-")
	assert.Error(t, err)
}

func TestShow_Check(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	clean := filepath.Join(dir, "clean.json")
	require.NoError(t, os.WriteFile(clean, []byte(`{"num_failures":0,"num_unreachable":0,"failures":[],"unreachable":[],"no_hosts_remaining":false}`), 0o644))
	_, err := execute(t, "", "show", "--check", clean)
	require.NoError(t, err)

	early := filepath.Join(dir, "early.json")
	require.NoError(t, os.WriteFile(early, []byte(`{"num_failures":0,"num_unreachable":0,"failures":[],"unreachable":[],"no_hosts_remaining":true}`), 0o644))
	out, err := execute(t, "", "show", "--check", "--format", "yaml", early)
	var exitErr *exitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.code)
	assert.Contains(t, out, "no_hosts_remaining: true")
}

func TestRun_PropagatesExitCode(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	captured := filepath.Join(dir, "run.txt")
	require.NoError(t, os.WriteFile(captured, []byte(recapOutput), 0o644))
	fake := filepath.Join(dir, "ansible-playbook")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\ncat \""+captured+"\"\nexit 2\n"), 0o755))

	statsPath := filepath.Join(dir, "out", "stats.json")
	_, err := execute(t, "", "run", "--stats-path", statsPath, "--ansible-playbook", fake, "--", "site.yml")

	var exitErr *exitError
	require.True(t, errors.As(err, &exitErr), "got %v", err)
	assert.Equal(t, 2, exitErr.code)
	assert.FileExists(t, statsPath)
}

func TestRun_RequiresArgs(t *testing.T) {
	_, err := execute(t, "", "run")
	assert.Error(t, err)
}
