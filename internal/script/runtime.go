// Package script embeds a Lua VM for user-defined effects. Scripts get four
// modules: bulb (one-shot state changes), effects (the built-in sequences),
// log (structured logging) and util. The VM is single-threaded; the CLI runs
// one script per invocation.
package script

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"huebctl/internal/bulb"
	"huebctl/internal/effect"
)

// Light is the slice of the device session exposed to scripts. Satisfied by
// *bulb.Bulb.
type Light interface {
	TurnOn(ctx context.Context, brightness int) error
	TurnOff(ctx context.Context) error
	SetBrightness(ctx context.Context, v int) error
	SetColourTemp(ctx context.Context, mireds int) error
	SetColourXY(ctx context.Context, x, y float64) error
	Power(ctx context.Context) (bool, error)
}

// Effects is the sequencer surface exposed to scripts. Satisfied by
// *effect.Runner.
type Effects interface {
	Sunrise(ctx context.Context, duration time.Duration) error
	Sundown(ctx context.Context, duration time.Duration) error
	Flash(ctx context.Context, duration, interval time.Duration) error
	Alarm(ctx context.Context, colour bulb.XY, style effect.Style, duration time.Duration) error
}

// Runtime wraps the Lua state with the huebctl modules preloaded.
type Runtime struct {
	L *lua.LState
}

// New creates a runtime bound to a light and an effect runner.
func New(light Light, effects Effects) *Runtime {
	L := lua.NewState()

	L.PreloadModule("bulb", newBulbModule(light).loader)
	L.PreloadModule("effects", newEffectsModule(effects).loader)
	L.PreloadModule("log", newLogModule().loader)
	L.PreloadModule("util", newUtilModule().loader)

	return &Runtime{L: L}
}

// Close releases the Lua state.
func (r *Runtime) Close() {
	r.L.Close()
}

// RunFile executes a script file. The context is visible to every module
// call; cancellation interrupts between Lua calls.
func (r *Runtime) RunFile(ctx context.Context, path string) error {
	r.L.SetContext(ctx)
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// RunString executes inline script source. Used by tests.
func (r *Runtime) RunString(ctx context.Context, source string) error {
	r.L.SetContext(ctx)
	if err := r.L.DoString(source); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}
