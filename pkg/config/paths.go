package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvPicoShellConfig = "PICOSHELL_CONFIG"
	EnvPicoShellHome   = "PICOSHELL_HOME"
)

type RuntimePaths struct {
	HomeDir    string
	ConfigPath string
	LogPath    string
}

func ResolveRuntimePaths() RuntimePaths {
	if configPath := expandHome(strings.TrimSpace(os.Getenv(EnvPicoShellConfig))); configPath != "" {
		return buildRuntimePaths(filepath.Dir(configPath), configPath)
	}

	homeDir := expandHome(strings.TrimSpace(os.Getenv(EnvPicoShellHome)))
	if homeDir == "" {
		homeDir = defaultPicoShellHome()
	}

	return buildRuntimePaths(homeDir, filepath.Join(homeDir, "config.json"))
}

func defaultPicoShellHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".picoshell"
	}
	return filepath.Join(home, ".picoshell")
}

func buildRuntimePaths(homeDir, configPath string) RuntimePaths {
	return RuntimePaths{
		HomeDir:    homeDir,
		ConfigPath: configPath,
		LogPath:    filepath.Join(homeDir, "picoshell.log"),
	}
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
