package shell

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/termrepl/internal/exec"
)

// runLua executes a Lua snippet in a fresh state. The state carries the task
// context so a cancelled command aborts mid-script, and print is rebound to
// the output stream.
func runLua(ctx context.Context, code string, out *exec.Emitter) error {
	if code == "" {
		return fmt.Errorf("lua: missing code")
	}

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		if err := out.Emit(strings.Join(parts, "\t")); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	}))

	if err := L.DoString(code); err != nil {
		// Interruption surfaces as a Lua runtime error; report it as the
		// cancellation it is.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("lua: %w", err)
	}
	return nil
}
