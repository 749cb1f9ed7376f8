// Package config loads vigil's YAML configuration file and the API token
// from the environment. Flags layer on top in cmd; nothing here reads them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vigil-run/vigil/pkg/remote"
)

const (
	// DefaultPath is probed when no --config flag is given.
	DefaultPath = "vigil.yaml"

	// EnvToken names the environment variable the API token is read from.
	// The token never appears in the config file.
	EnvToken = "VIGIL_API_TOKEN"
)

// Config is the on-disk configuration. Zero values fall back to Default().
type Config struct {
	// RegistryPath is the jobs file the monitor polls and register_job
	// appends to.
	RegistryPath string `yaml:"registry_path"`
	// EventsPath is the append-only event sink.
	EventsPath string `yaml:"events_path"`
	// StatePath is the monitor's per-job state file.
	StatePath string `yaml:"state_path"`
	// WatcherStatePath is the tailer's offset file.
	WatcherStatePath string `yaml:"watcher_state_path"`
	// PollSeconds is the monitor's polling interval.
	PollSeconds int `yaml:"poll_seconds"`
	// StuckMinutes is how long a job may sit without activity before a
	// stuck event fires.
	StuckMinutes int `yaml:"stuck_minutes"`
	// APIBase is the remote API base URL.
	APIBase string `yaml:"api_base"`
	// HandlerCommand is the shell command the watcher runs per event.
	HandlerCommand string `yaml:"handler_command"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		RegistryPath:     "vigil_jobs.jsonl",
		EventsPath:       "vigil_events.jsonl",
		StatePath:        "vigil_state.json",
		WatcherStatePath: "vigil_watcher_state.json",
		PollSeconds:      45,
		StuckMinutes:     20,
		APIBase:          remote.DefaultBaseURL,
		LogLevel:         "info",
	}
}

// Load reads the config at path, or probes DefaultPath when path is empty.
// A missing file is only an error when the path was named explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds must be positive, got %d", c.PollSeconds)
	}
	if c.StuckMinutes <= 0 {
		return fmt.Errorf("stuck_minutes must be positive, got %d", c.StuckMinutes)
	}
	if strings.TrimSpace(c.RegistryPath) == "" {
		return errors.New("registry_path is required")
	}
	if strings.TrimSpace(c.EventsPath) == "" {
		return errors.New("events_path is required")
	}
	return nil
}

// PollInterval returns the monitor polling interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// StuckThreshold returns the inactivity threshold as a duration.
func (c Config) StuckThreshold() time.Duration {
	return time.Duration(c.StuckMinutes) * time.Minute
}

// LoadEnv loads variables from a .env file into the process environment.
// A missing file is not an error; existing variables are never overridden.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Token returns the API token from the environment, or empty when unset.
func Token() string {
	return strings.TrimSpace(os.Getenv(EnvToken))
}
