package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/dice"
)

// OutcomeHook is the name of the Lua global called after every resolution:
//
//	function on_wound(actor_name, passed, result_id) ... end
//
// result_id is the drawn item's ID, or "" when nothing was drawn.
const OutcomeHook = "on_wound"

// Hooks owns one sandboxed LState loaded from a script directory and
// dispatches wound-outcome hooks into it.
//
// The LState is single-threaded; a mutex serializes all dispatch. Safe for
// concurrent OnOutcome calls after Load completes.
type Hooks struct {
	mu     sync.Mutex
	state  *lua.LState
	cancel func()
	roller *dice.Roller
	logger *zap.Logger
}

// NewHooks creates an empty Hooks. Until Load succeeds, every dispatch is a
// no-op.
//
// Precondition: roller and logger must be non-nil.
func NewHooks(roller *dice.Roller, logger *zap.Logger) *Hooks {
	return &Hooks{roller: roller, logger: logger}
}

// Load creates a sandboxed VM, registers the engine.* module, then executes
// every *.lua file in scriptDir in lexicographic order. A previously loaded
// VM is replaced.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: The VM is ready for dispatch, or an error on load failure.
func (h *Hooks) Load(scriptDir string, instLimit int) error {
	L, cancel := NewSandboxedState(instLimit)
	h.registerEngine(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	h.mu.Lock()
	if h.state != nil {
		if h.cancel != nil {
			h.cancel()
		}
		h.state.Close()
	}
	h.state = L
	h.cancel = cancel
	h.mu.Unlock()
	return nil
}

// Close releases the VM. Subsequent dispatches are no-ops.
func (h *Hooks) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == nil {
		return
	}
	if h.cancel != nil {
		h.cancel()
	}
	h.state.Close()
	h.state = nil
	h.cancel = nil
}

// OnOutcome calls the on_wound Lua global, if defined. Returns (nil) when no
// VM is loaded or the hook is absent; returns the Lua runtime error otherwise.
func (h *Hooks) OnOutcome(_ context.Context, actorName string, passed bool, resultID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == nil {
		return nil
	}

	fn := h.state.GetGlobal(OutcomeHook)
	if fn == lua.LNil {
		return nil
	}
	if err := h.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LString(actorName), lua.LBool(passed), lua.LString(resultID)); err != nil {
		return fmt.Errorf("scripting: %s: %w", OutcomeHook, err)
	}
	return nil
}

// registerEngine registers the engine.* Lua table: engine.roll(expr) returns
// a roll total (or nil plus an error message), engine.log(msg) writes to the
// structured log.
func (h *Hooks) registerEngine(L *lua.LState) {
	engine := L.NewTable()
	L.SetGlobal("engine", engine)

	L.SetField(engine, "roll", L.NewFunction(func(L *lua.LState) int {
		expr := L.CheckString(1)
		result, err := h.roller.RollExpr(expr)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LNumber(result.Total()))
		return 1
	}))

	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		h.logger.Info("script log", zap.String("message", L.CheckString(1)))
		return 0
	}))
}
