// Package config resolves where the playbook stats file is written.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// EnvStatsPath overrides the ini setting.
	EnvStatsPath = "ANSIBLE_KOLLA_STATS_PATH"
	// EnvAnsibleConfig points at the Ansible config file, as it does for ansible-playbook.
	EnvAnsibleConfig = "ANSIBLE_CONFIG"

	IniSection   = "callback_kolla_stats"
	StatsPathKey = IniSection + ".kolla_stats_path"

	DefaultStatsPath = "~/.ansible/kolla_stats/kolla_stats.json"
)

// Config holds the resolved settings.
type Config struct {
	// StatsPath is the absolute location of the stats file.
	StatsPath string
	// ConfigFile is the Ansible config file that was read, empty if none.
	ConfigFile string
}

// ansibleConfigCandidates lists config locations in Ansible's search order.
func ansibleConfigCandidates() []string {
	candidates := []string{}
	if env := os.Getenv(EnvAnsibleConfig); env != "" {
		candidates = append(candidates, env)
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, "ansible.cfg"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".ansible.cfg"))
	}
	return append(candidates, "/etc/ansible/ansible.cfg")
}

// FindAnsibleConfig returns the first Ansible config file that exists, or "".
func FindAnsibleConfig() string {
	for _, c := range ansibleConfigCandidates() {
		path, err := ExpandPath(c)
		if err != nil {
			continue
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load resolves the stats path from the environment, the Ansible config file and the
// default, in that order of precedence. cfgFile, when set, replaces the config file search.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault(StatsPathKey, DefaultStatsPath)
	if err := v.BindEnv(StatsPathKey, EnvStatsPath); err != nil {
		return nil, fmt.Errorf("bind %s: %w", EnvStatsPath, err)
	}

	cfg := &Config{}

	if cfgFile == "" {
		cfgFile = FindAnsibleConfig()
	} else if _, err := os.Stat(cfgFile); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("ini")
		if err := v.ReadInConfig(); err != nil {
			log.Warnf("Could not read Ansible config %s: %v", cfgFile, err)
		} else {
			cfg.ConfigFile = cfgFile
			log.Debugf("Using Ansible config file: %s", cfgFile)
		}
	}

	path, err := ExpandPath(v.GetString(StatsPathKey))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", StatsPathKey, err)
	}
	cfg.StatsPath = path

	return cfg, nil
}

// ExpandPath expands a leading ~ and environment variables and makes the result absolute.
func ExpandPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty path")
	}

	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	return filepath.Abs(path)
}
