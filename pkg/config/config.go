package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment overrides.
const EnvPrefix = "CLAUDE_PTY"

// Notification sinks understood by the wrapper.
const (
	SinkAuto    = "auto"
	SinkDesktop = "desktop"
	SinkNtfy    = "ntfy"
	SinkLog     = "log"
)

// Config holds all configuration for claude-pty-notify
type Config struct {
	// Notification settings
	Notify   bool          `yaml:"notify" envconfig:"NOTIFY"`
	Cooldown time.Duration `yaml:"cooldown" envconfig:"COOLDOWN"`
	Sink     string        `yaml:"sink" envconfig:"SINK"`
	Title    string        `yaml:"title" envconfig:"NOTIFY_TITLE"`
	Message  string        `yaml:"message" envconfig:"NOTIFY_MESSAGE"`

	NtfyServer string `yaml:"ntfy_server" envconfig:"NTFY_SERVER"`
	NtfyTopic  string `yaml:"ntfy_topic" envconfig:"NTFY_TOPIC"`

	// Relay tuning
	PollInterval     time.Duration `yaml:"poll_interval" envconfig:"POLL_INTERVAL"`
	TerminateTimeout time.Duration `yaml:"terminate_timeout" envconfig:"TERMINATE_TIMEOUT"`
	ForceKill        bool          `yaml:"force_kill" envconfig:"FORCE_KILL"`
	DefaultTerm      string        `yaml:"default_term" envconfig:"DEFAULT_TERM"`

	// Child command
	ClaudePath  string   `yaml:"claude_path" envconfig:"CLAUDE_PATH"`
	DefaultArgs []string `yaml:"default_args" ignored:"true"`

	// Logging
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFile  string `yaml:"log_file" envconfig:"LOG_FILE"`

	// Demo runs the scripted choreography instead of an interactive session.
	Demo bool `yaml:"-" ignored:"true"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Notify:           false,
		Cooldown:         2 * time.Second,
		Sink:             SinkAuto,
		Title:            "Claude",
		Message:          "Claude response arrived.",
		NtfyServer:       "https://ntfy.sh",
		PollInterval:     200 * time.Millisecond,
		TerminateTimeout: 2 * time.Second,
		ForceKill:        true,
		DefaultTerm:      "xterm-256color",
		LogLevel:         "error",
	}
}

// Load loads configuration from file and environment. An explicit path
// takes precedence over CLAUDE_PTY_CONFIG and the XDG location.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = getConfigPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "claude-pty-notify", "config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "claude-pty-notify", "config.yaml")
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (flag, env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv overrides cfg with CLAUDE_PTY_* variables. Unset variables
// leave the file and default values untouched.
func loadFromEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return err
	}

	if raw := os.Getenv(EnvPrefix + "_DEFAULT_ARGS"); raw != "" {
		args, err := shellquote.Split(raw)
		if err != nil {
			return fmt.Errorf("invalid %s_DEFAULT_ARGS: %w", EnvPrefix, err)
		}
		cfg.DefaultArgs = args
	}

	switch os.Getenv(EnvPrefix + "_DEBUG") {
	case "1", "true", "yes":
		cfg.LogLevel = "debug"
	}

	return nil
}

// Validate checks the configuration for values the wrapper cannot use.
func (c *Config) Validate() error {
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must be non-negative")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	if c.TerminateTimeout < 0 {
		return fmt.Errorf("terminate_timeout must be non-negative")
	}

	switch c.Sink {
	case SinkAuto, SinkDesktop, SinkLog:
	case SinkNtfy:
		if c.Notify && c.NtfyTopic == "" {
			return fmt.Errorf("ntfy_topic is required for the ntfy sink")
		}
	default:
		return fmt.Errorf("unknown sink %q (use auto, desktop, ntfy or log)", c.Sink)
	}

	return nil
}
