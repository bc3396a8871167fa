package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default settings.
const (
	DefaultLogRoot        = "logs/rsl_rl"
	DefaultRemoteTokenEnv = "MJLAUNCH_REMOTE_TOKEN"
)

// Settings models the optional launcher settings file.
type Settings struct {
	LogRoot  string          `yaml:"log_root"`
	CacheDir string          `yaml:"cache_dir,omitempty"`
	Remote   RemoteSettings  `yaml:"remote"`
	Trainer  TrainerSettings `yaml:"trainer"`
	CopyEnv  []string        `yaml:"copy_env,omitempty"`
}

// RemoteSettings configures the remote checkpoint store.
type RemoteSettings struct {
	BaseURL     string `yaml:"base_url,omitempty"`
	TokenEnv    string `yaml:"token_env"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// TrainerSettings configures the external training program.
type TrainerSettings struct {
	Command []string `yaml:"command,omitempty"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() *Settings {
	return &Settings{
		LogRoot: DefaultLogRoot,
		Remote: RemoteSettings{
			TokenEnv:    DefaultRemoteTokenEnv,
			MaxAttempts: 3,
		},
	}
}

// LoadSettings reads a settings file on top of the defaults. Unknown keys
// are rejected.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	s := DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if s.LogRoot == "" {
		return nil, fmt.Errorf("settings %s: log_root cannot be empty", path)
	}
	if s.Remote.MaxAttempts < 1 {
		return nil, fmt.Errorf("settings %s: remote.max_attempts must be at least 1", path)
	}
	return s, nil
}
