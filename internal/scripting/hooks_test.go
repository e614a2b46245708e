package scripting_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/greatwound/internal/dice"
	"github.com/cory-johannsen/greatwound/internal/scripting"
)

func newTestHooks(t testing.TB) (*scripting.Hooks, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	hooks := scripting.NewHooks(roller, logger)
	t.Cleanup(hooks.Close)
	return hooks, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func TestHooks_OnOutcome_CallsHook(t *testing.T) {
	hooks, logs := newTestHooks(t)
	dir := writeTempLua(t, "hooks.lua", `
		function on_wound(actor_name, passed, result_id)
			engine.log(actor_name .. " " .. tostring(passed) .. " " .. result_id)
		end
	`)
	require.NoError(t, hooks.Load(dir, 0))

	require.NoError(t, hooks.OnOutcome(context.Background(), "Vex", false, "scar"))

	entries := logs.FilterMessage("script log").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Vex false scar", entries[0].ContextMap()["message"])
}

func TestHooks_OnOutcome_MissingHookNoOp(t *testing.T) {
	hooks, _ := newTestHooks(t)
	dir := writeTempLua(t, "empty.lua", `-- no functions`)
	require.NoError(t, hooks.Load(dir, 0))

	assert.NoError(t, hooks.OnOutcome(context.Background(), "Vex", true, ""))
}

func TestHooks_OnOutcome_UnloadedNoOp(t *testing.T) {
	hooks, _ := newTestHooks(t)
	assert.NoError(t, hooks.OnOutcome(context.Background(), "Vex", true, ""))
}

func TestHooks_OnOutcome_RuntimeErrorPropagates(t *testing.T) {
	hooks, _ := newTestHooks(t)
	dir := writeTempLua(t, "bad.lua", `
		function on_wound(actor_name, passed, result_id)
			error("intentional error")
		end
	`)
	require.NoError(t, hooks.Load(dir, 0))

	err := hooks.OnOutcome(context.Background(), "Vex", false, "scar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intentional error")
}

func TestHooks_EngineRollAvailable(t *testing.T) {
	hooks, logs := newTestHooks(t)
	dir := writeTempLua(t, "roll.lua", `
		function on_wound(actor_name, passed, result_id)
			local total = engine.roll("2d6+1")
			if total < 3 or total > 13 then
				error("total out of range: " .. total)
			end
			engine.log("rolled")
		end
	`)
	require.NoError(t, hooks.Load(dir, 0))

	require.NoError(t, hooks.OnOutcome(context.Background(), "Vex", false, "scar"))
	assert.Len(t, logs.FilterMessage("script log").All(), 1)
}

func TestHooks_LoadMissingDirFails(t *testing.T) {
	hooks, _ := newTestHooks(t)
	assert.Error(t, hooks.Load(filepath.Join(t.TempDir(), "nope"), 0))
}

func TestHooks_LoadBadScriptFails(t *testing.T) {
	hooks, _ := newTestHooks(t)
	dir := writeTempLua(t, "broken.lua", `function on_wound(`)
	assert.Error(t, hooks.Load(dir, 0))
}
