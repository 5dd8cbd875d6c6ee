// Package main is the entry point for the termrepl demonstration shell.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/termrepl/internal/app"
	"github.com/dshills/termrepl/internal/config"
	"github.com/dshills/termrepl/internal/input/history"
	"github.com/dshills/termrepl/internal/render/backend"
	"github.com/dshills/termrepl/internal/shell"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := parseFlags()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if flags.historyFile != "" {
		cfg.History.File = flags.historyFile
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	logger, closeLog, err := openLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	hist := history.New(cfg.History.Capacity)
	if cfg.History.File != "" {
		if err := history.Load(hist, cfg.History.File); err != nil {
			// A broken history file should not keep the shell from
			// starting.
			logger.Warn("history not loaded: %v", err)
		}
	}

	term, err := backend.NewTerminal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}

	application, err := app.New(app.Options{
		Config:     cfg,
		ConfigPath: flags.configPath,
		Handler:    shell.New(),
		Backend:    term,
		Logger:     logger,
		History:    hist.Entries(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		<-signals
		application.Shutdown()
	}()

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.History.File != "" {
		hist.SetEntries(application.HistoryEntries())
		if err := history.Save(hist, cfg.History.File); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: history not saved: %v\n", err)
		}
	}
	return 0
}

type cliFlags struct {
	configPath  string
	historyFile string
	logLevel    string
}

func parseFlags() cliFlags {
	var flags cliFlags
	var showVersion bool

	flag.StringVar(&flags.configPath, "config", defaultConfigPath(), "Path to configuration file")
	flag.StringVar(&flags.configPath, "c", defaultConfigPath(), "Path to configuration file (shorthand)")
	flag.StringVar(&flags.historyFile, "history-file", "", "Override the history file location")
	flag.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "termrepl - interactive full-screen shell\n\n")
		fmt.Fprintf(os.Stderr, "Usage: termrepl [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("termrepl %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flags.logLevel != "" {
		switch flags.logLevel {
		case "debug", "info", "warn", "error":
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", flags.logLevel)
			os.Exit(1)
		}
	}
	return flags
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return dir + "/termrepl/config.toml"
}

// openLogger builds the session logger. The terminal belongs to the
// session while it runs, so without a log file everything is discarded.
func openLogger(cfg config.LoggingConfig) (*app.Logger, func(), error) {
	if cfg.File == "" {
		return app.NullLogger, func() {}, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
	}
	var w io.Writer = f
	logger := app.NewLogger(w, app.ParseLogLevel(cfg.Level))
	return logger, func() { f.Close() }, nil
}
