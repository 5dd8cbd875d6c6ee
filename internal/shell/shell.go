// Package shell is the demonstration command handler: a small set of
// builtins plus inline Lua scripting. It exercises the executor contract
// end to end and doubles as the reference for writing real handlers.
package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/termrepl/internal/exec"
)

// Shell implements exec.Handler. The executor runs at most one command at a
// time, so Execute calls never overlap and the command log needs no lock.
type Shell struct {
	builtins map[string]builtin
	log      []string
}

// New creates a shell with the full builtin set.
func New() *Shell {
	s := &Shell{builtins: make(map[string]builtin)}
	s.registerBuiltins()
	return s
}

// Execute runs one command line.
func (s *Shell) Execute(ctx context.Context, line string, out *exec.Emitter) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	s.log = append(s.log, line)

	name, rest, _ := strings.Cut(line, " ")
	b, ok := s.builtins[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try \"help\")", name)
	}
	return b.run(ctx, strings.TrimSpace(rest), out)
}

func (s *Shell) recentCommands(n int) []string {
	if n <= 0 || n > len(s.log) {
		n = len(s.log)
	}
	return s.log[len(s.log)-n:]
}
