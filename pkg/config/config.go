package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/sipeed/picoshell/pkg/logger"
)

type Config struct {
	Shell  ShellConfig  `json:"shell" yaml:"shell" toml:"shell"`
	Log    LogConfig    `json:"log" yaml:"log" toml:"log"`
	Remote RemoteConfig `json:"remote" yaml:"remote" toml:"remote"`
}

// ShellConfig holds the per-session options every shell is built from.
// ArgumentDelimiter is embedded verbatim in the tokenizer pattern, so
// regex metacharacters must be escaped by whoever writes the config.
type ShellConfig struct {
	Prompt            string `json:"prompt" yaml:"prompt" toml:"prompt" env:"PICOSHELL_SHELL_PROMPT"`
	ArgumentDelimiter string `json:"argument_delimiter" yaml:"argument_delimiter" toml:"argument_delimiter" env:"PICOSHELL_SHELL_ARGUMENT_DELIMITER"`
	TimestampEnabled  bool   `json:"timestamp_enabled" yaml:"timestamp_enabled" toml:"timestamp_enabled" env:"PICOSHELL_SHELL_TIMESTAMP_ENABLED"`
	TimestampFormat   string `json:"timestamp_format" yaml:"timestamp_format" toml:"timestamp_format" env:"PICOSHELL_SHELL_TIMESTAMP_FORMAT"`
	RequireLogin      bool   `json:"require_login" yaml:"require_login" toml:"require_login" env:"PICOSHELL_SHELL_REQUIRE_LOGIN"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level" env:"PICOSHELL_LOG_LEVEL"`
	File  string `json:"file" yaml:"file" toml:"file" env:"PICOSHELL_LOG_FILE"`
}

type RemoteConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled" toml:"enabled" env:"PICOSHELL_REMOTE_ENABLED"`
	Host           string `json:"host" yaml:"host" toml:"host" env:"PICOSHELL_REMOTE_HOST"`
	Port           int    `json:"port" yaml:"port" toml:"port" env:"PICOSHELL_REMOTE_PORT"`
	Path           string `json:"path" yaml:"path" toml:"path" env:"PICOSHELL_REMOTE_PATH"`
	LinesPerMinute int    `json:"lines_per_minute" yaml:"lines_per_minute" toml:"lines_per_minute" env:"PICOSHELL_REMOTE_LINES_PER_MINUTE"`
	Burst          int    `json:"burst" yaml:"burst" toml:"burst" env:"PICOSHELL_REMOTE_BURST"`

	// AllowedOrigins restricts browser clients by Origin header. Empty
	// accepts every origin.
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty" toml:"allowed_origins,omitempty" env:"PICOSHELL_REMOTE_ALLOWED_ORIGINS" envSeparator:","`
}

func (r RemoteConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatTOML
)

func formatFor(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	default:
		return formatJSON
	}
}

// LoadConfig reads path on top of DefaultConfig, applies PICOSHELL_*
// environment overrides and validates the result. A missing file is not an
// error: defaults plus environment are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(formatFor(path), data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		logger.DebugCF("config", "Config file not found, using defaults", map[string]any{"path": path})
	default:
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decode(f format, data []byte, cfg *Config) error {
	switch f {
	case formatYAML:
		return yaml.Unmarshal(data, cfg)
	case formatTOML:
		return toml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func encode(f format, cfg *Config) ([]byte, error) {
	switch f {
	case formatYAML:
		return yaml.Marshal(cfg)
	case formatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return json.MarshalIndent(cfg, "", "  ")
	}
}

func SaveConfig(path string, cfg *Config) error {
	data, err := encode(formatFor(path), cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func (c *Config) Validate() error {
	if c.Shell.ArgumentDelimiter == "" {
		return errors.New("shell.argument_delimiter must not be empty")
	}
	if c.Shell.TimestampEnabled && c.Shell.TimestampFormat == "" {
		return errors.New("shell.timestamp_format must be set when timestamps are enabled")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Remote.Enabled {
		if c.Remote.Port <= 0 || c.Remote.Port > 65535 {
			return fmt.Errorf("remote.port %d out of range", c.Remote.Port)
		}
		if !strings.HasPrefix(c.Remote.Path, "/") {
			return fmt.Errorf("remote.path %q must start with /", c.Remote.Path)
		}
	}
	return nil
}
