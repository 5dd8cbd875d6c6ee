// Package config defines the runtime configuration: defaults, TOML file
// loading, environment overrides, and live reload of the safe subset.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Executor policy names.
const (
	PolicyExclusive = "exclusive"
	PolicyQueued    = "queued"
)

// Config is the full runtime configuration.
type Config struct {
	// Prompt is the string drawn before the input line.
	Prompt string `toml:"prompt"`

	History  HistoryConfig  `toml:"history"`
	Executor ExecutorConfig `toml:"executor"`
	Input    InputConfig    `toml:"input"`
	UI       UIConfig       `toml:"ui"`
	Logging  LoggingConfig  `toml:"logging"`
}

// HistoryConfig controls the command history buffer.
type HistoryConfig struct {
	// Capacity is the maximum number of retained entries.
	Capacity int `toml:"capacity"`

	// File is where history persists between sessions. Empty disables
	// persistence.
	File string `toml:"file"`
}

// ExecutorConfig controls command submission while a command runs.
type ExecutorConfig struct {
	// Policy is "exclusive" (reject with a busy notice) or "queued"
	// (run submissions in order).
	Policy string `toml:"policy"`
}

// InputConfig controls line editing behavior.
type InputConfig struct {
	// OverlappedEditing keeps the input line editable while a command
	// runs. When false the line is read only until the command finishes.
	OverlappedEditing bool `toml:"overlapped_editing"`
}

// UIConfig controls display behavior.
type UIConfig struct {
	// ScrollbackLines bounds the display buffer.
	ScrollbackLines int `toml:"scrollback_lines"`
}

// LoggingConfig controls diagnostic logging. The terminal display belongs
// to the session, so logs go to a file, never to the screen.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Prompt: ">",
		History: HistoryConfig{
			Capacity: 500,
			File:     defaultHistoryFile(),
		},
		Executor: ExecutorConfig{
			Policy: PolicyExclusive,
		},
		UI: UIConfig{
			ScrollbackLines: 10000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values the session cannot run with.
func (c Config) Validate() error {
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history.capacity must be positive, got %d", c.History.Capacity)
	}
	if c.Executor.Policy != PolicyExclusive && c.Executor.Policy != PolicyQueued {
		return fmt.Errorf("executor.policy must be %q or %q, got %q",
			PolicyExclusive, PolicyQueued, c.Executor.Policy)
	}
	if c.UI.ScrollbackLines <= 0 {
		return fmt.Errorf("ui.scrollback_lines must be positive, got %d", c.UI.ScrollbackLines)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// Reloadable returns a copy of c with next's reload-safe fields applied.
// Structural settings (history file, executor policy, logging destination)
// stay fixed for the session lifetime.
func (c Config) Reloadable(next Config) Config {
	c.Prompt = next.Prompt
	c.History.Capacity = next.History.Capacity
	c.Input.OverlappedEditing = next.Input.OverlappedEditing
	c.UI.ScrollbackLines = next.UI.ScrollbackLines
	return c
}

func defaultHistoryFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "termrepl", "history.json")
}
