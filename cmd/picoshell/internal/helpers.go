package internal

import (
	"fmt"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/sipeed/picoshell/pkg/config"
	"github.com/sipeed/picoshell/pkg/logger"
)

const Logo = "🐚"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// GlobalFlags are shared by every subcommand through the root's
// persistent flag set.
type GlobalFlags struct {
	ConfigPath string
	Debug      bool
}

func AddGlobalFlags(fs *pflag.FlagSet, f *GlobalFlags) {
	fs.StringVarP(&f.ConfigPath, "config", "c", "", "Config file (.json, .yaml or .toml)")
	fs.BoolVarP(&f.Debug, "debug", "d", false, "Enable debug logging")
}

// GetConfigPath returns the explicit path when set, otherwise the path
// resolved from PICOSHELL_CONFIG, PICOSHELL_HOME or the home directory.
func GetConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return config.ResolveRuntimePaths().ConfigPath
}

// LoadConfig loads the effective configuration and applies its logging
// settings.
func LoadConfig(f *GlobalFlags) (*config.Config, error) {
	var explicit string
	if f != nil {
		explicit = f.ConfigPath
	}

	cfg, err := config.LoadConfig(GetConfigPath(explicit))
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if f != nil && f.Debug {
		level = logger.DEBUG
	}
	logger.SetLevel(level)

	if cfg.Log.File != "" {
		if err := logger.EnableFileLogging(cfg.Log.File); err != nil {
			return nil, fmt.Errorf("enabling file logging: %w", err)
		}
	}

	return cfg, nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

func GetVersion() string {
	return version
}
