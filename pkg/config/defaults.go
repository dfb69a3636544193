package config

const (
	DefaultPrompt          = ">"
	DefaultDelimiter       = " "
	DefaultTimestampFormat = "2006-01-02T15:04:05.000"
)

func DefaultConfig() *Config {
	return &Config{
		Shell: ShellConfig{
			Prompt:            DefaultPrompt,
			ArgumentDelimiter: DefaultDelimiter,
			TimestampEnabled:  false,
			TimestampFormat:   DefaultTimestampFormat,
			RequireLogin:      false,
		},
		Log: LogConfig{
			Level: "info",
		},
		Remote: RemoteConfig{
			Enabled:        false,
			Host:           "127.0.0.1",
			Port:           18795,
			Path:           "/console",
			LinesPerMinute: 120,
			Burst:          10,
		},
	}
}
