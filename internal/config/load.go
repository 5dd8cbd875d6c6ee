package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "TERMREPL_"

// Load builds the effective configuration: defaults, then the TOML file at
// path (a missing file is not an error), then environment overrides. The
// result is validated before being returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides individual settings from TERMREPL_* variables. An unset
// variable leaves the current value in place.
func applyEnv(cfg *Config) error {
	envString(&cfg.Prompt, "PROMPT")
	envString(&cfg.History.File, "HISTORY_FILE")
	envString(&cfg.Executor.Policy, "EXECUTOR_POLICY")
	envString(&cfg.Logging.Level, "LOG_LEVEL")
	envString(&cfg.Logging.File, "LOG_FILE")

	if err := envInt(&cfg.History.Capacity, "HISTORY_CAPACITY"); err != nil {
		return err
	}
	if err := envInt(&cfg.UI.ScrollbackLines, "SCROLLBACK_LINES"); err != nil {
		return err
	}
	return envBool(&cfg.Input.OverlappedEditing, "OVERLAPPED_EDITING")
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = v
	}
}

func envInt(dst *int, name string) error {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %q is not an integer", EnvPrefix, name, v)
	}
	*dst = n
	return nil
}

func envBool(dst *bool, name string) error {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %q is not a boolean", EnvPrefix, name, v)
	}
	*dst = b
	return nil
}
