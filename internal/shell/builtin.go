package shell

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dshills/termrepl/internal/exec"
)

// builtin is one shell command. rest is the raw argument text after the
// command name with surrounding space trimmed.
type builtin struct {
	name string
	help string
	run  func(ctx context.Context, rest string, out *exec.Emitter) error
}

func (s *Shell) registerBuiltins() {
	for _, b := range []builtin{
		{
			name: "echo",
			help: "echo <text>       print the arguments",
			run: func(ctx context.Context, rest string, out *exec.Emitter) error {
				return out.Emit(rest)
			},
		},
		{
			name: "help",
			help: "help              list available commands",
			run:  s.runHelp,
		},
		{
			name: "history",
			help: "history [n]       show the last n executed commands",
			run:  s.runHistory,
		},
		{
			name: "sleep",
			help: "sleep <seconds>   wait, reporting progress; cancel with Ctrl+C",
			run:  runSleep,
		},
		{
			name: "lua",
			help: "lua <code>        run a Lua snippet; print() goes to the screen",
			run:  runLua,
		},
		{
			name: "quit",
			help: "quit              exit the session",
			run: func(ctx context.Context, rest string, out *exec.Emitter) error {
				return exec.ErrQuit
			},
		},
	} {
		s.builtins[b.name] = b
	}
}

func (s *Shell) runHelp(ctx context.Context, rest string, out *exec.Emitter) error {
	names := make([]string, 0, len(s.builtins))
	for name := range s.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := out.Emit("  " + s.builtins[name].help); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) runHistory(ctx context.Context, rest string, out *exec.Emitter) error {
	n := 0
	if rest != "" {
		v, err := strconv.Atoi(rest)
		if err != nil || v <= 0 {
			return fmt.Errorf("history: %q is not a positive count", rest)
		}
		n = v
	}
	recent := s.recentCommands(n)
	start := len(s.log) - len(recent)
	for i, line := range recent {
		if err := out.Emitf("%4d  %s", start+i+1, line); err != nil {
			return err
		}
	}
	return nil
}

func runSleep(ctx context.Context, rest string, out *exec.Emitter) error {
	if rest == "" {
		return fmt.Errorf("sleep: missing duration")
	}
	secs, err := strconv.ParseFloat(rest, 64)
	if err != nil || secs < 0 {
		return fmt.Errorf("sleep: %q is not a duration in seconds", rest)
	}

	deadline := time.Now().Add(time.Duration(secs * float64(time.Second)))
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return out.Emit("done sleeping")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := out.Emitf("sleeping, %s left", remaining.Round(time.Second)); err != nil {
				return err
			}
		case <-time.After(remaining):
		}
	}
}
