package script

import (
	"time"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"huebctl/internal/bulb"
	"huebctl/internal/effect"
	"huebctl/internal/preset"
)

// bulbModule exposes one-shot state changes.
type bulbModule struct {
	light Light
}

func newBulbModule(light Light) *bulbModule {
	return &bulbModule{light: light}
}

func (m *bulbModule) loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "on", L.NewFunction(m.on))
	L.SetField(mod, "off", L.NewFunction(m.off))
	L.SetField(mod, "brightness", L.NewFunction(m.brightness))
	L.SetField(mod, "colour_temp", L.NewFunction(m.colourTemp))
	L.SetField(mod, "colour_xy", L.NewFunction(m.colourXY))
	L.SetField(mod, "preset", L.NewFunction(m.preset))
	L.SetField(mod, "power", L.NewFunction(m.power))

	L.Push(mod)
	return 1
}

// on(brightness?) - power on, optional brightness (default 254)
func (m *bulbModule) on(L *lua.LState) int {
	brightness := L.OptInt(1, bulb.BrightnessMax)
	if err := m.light.TurnOn(L.Context(), brightness); err != nil {
		L.RaiseError("bulb.on: %v", err)
	}
	return 0
}

func (m *bulbModule) off(L *lua.LState) int {
	if err := m.light.TurnOff(L.Context()); err != nil {
		L.RaiseError("bulb.off: %v", err)
	}
	return 0
}

func (m *bulbModule) brightness(L *lua.LState) int {
	if err := m.light.SetBrightness(L.Context(), L.CheckInt(1)); err != nil {
		L.RaiseError("bulb.brightness: %v", err)
	}
	return 0
}

func (m *bulbModule) colourTemp(L *lua.LState) int {
	if err := m.light.SetColourTemp(L.Context(), L.CheckInt(1)); err != nil {
		L.RaiseError("bulb.colour_temp: %v", err)
	}
	return 0
}

func (m *bulbModule) colourXY(L *lua.LState) int {
	x := float64(L.CheckNumber(1))
	y := float64(L.CheckNumber(2))
	if err := m.light.SetColourXY(L.Context(), x, y); err != nil {
		L.RaiseError("bulb.colour_xy: %v", err)
	}
	return 0
}

func (m *bulbModule) preset(L *lua.LState) int {
	name := L.CheckString(1)
	xy, err := preset.Resolve(name)
	if err != nil {
		L.RaiseError("bulb.preset: %v", err)
	}
	if err := m.light.SetColourXY(L.Context(), xy.X, xy.Y); err != nil {
		L.RaiseError("bulb.preset: %v", err)
	}
	return 0
}

// power() -> bool
func (m *bulbModule) power(L *lua.LState) int {
	on, err := m.light.Power(L.Context())
	if err != nil {
		L.RaiseError("bulb.power: %v", err)
	}
	L.Push(lua.LBool(on))
	return 1
}

// effectsModule exposes the built-in sequences. Durations are seconds.
type effectsModule struct {
	effects Effects
}

func newEffectsModule(effects Effects) *effectsModule {
	return &effectsModule{effects: effects}
}

func (m *effectsModule) loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "sunrise", L.NewFunction(m.sunrise))
	L.SetField(mod, "sundown", L.NewFunction(m.sundown))
	L.SetField(mod, "flash", L.NewFunction(m.flash))
	L.SetField(mod, "alarm", L.NewFunction(m.alarm))

	L.Push(mod)
	return 1
}

func seconds(n lua.LNumber) time.Duration {
	return time.Duration(float64(n) * float64(time.Second))
}

// sunrise(duration_seconds)
func (m *effectsModule) sunrise(L *lua.LState) int {
	if err := m.effects.Sunrise(L.Context(), seconds(L.CheckNumber(1))); err != nil {
		L.RaiseError("effects.sunrise: %v", err)
	}
	return 0
}

// sundown(duration_seconds)
func (m *effectsModule) sundown(L *lua.LState) int {
	if err := m.effects.Sundown(L.Context(), seconds(L.CheckNumber(1))); err != nil {
		L.RaiseError("effects.sundown: %v", err)
	}
	return 0
}

// flash(duration_seconds, interval_seconds?)
func (m *effectsModule) flash(L *lua.LState) int {
	duration := seconds(L.CheckNumber(1))
	interval := seconds(L.OptNumber(2, 0.5))
	if err := m.effects.Flash(L.Context(), duration, interval); err != nil {
		L.RaiseError("effects.flash: %v", err)
	}
	return 0
}

// alarm(colour_preset, style?, duration_seconds?)
func (m *effectsModule) alarm(L *lua.LState) int {
	xy, err := preset.Resolve(L.CheckString(1))
	if err != nil {
		L.RaiseError("effects.alarm: %v", err)
	}
	style, err := effect.ParseStyle(L.OptString(2, string(effect.StyleFlash)))
	if err != nil {
		L.RaiseError("effects.alarm: %v", err)
	}
	duration := seconds(L.OptNumber(3, 0))
	if err := m.effects.Alarm(L.Context(), xy, style, duration); err != nil {
		L.RaiseError("effects.alarm: %v", err)
	}
	return 0
}

// logModule mirrors the CLI's structured logging into scripts.
type logModule struct{}

func newLogModule() *logModule {
	return &logModule{}
}

func (m *logModule) loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "debug", L.NewFunction(m.debug))
	L.SetField(mod, "info", L.NewFunction(m.info))
	L.SetField(mod, "warn", L.NewFunction(m.warn))
	L.SetField(mod, "error", L.NewFunction(m.errorLog))

	L.Push(mod)
	return 1
}

func (m *logModule) debug(L *lua.LState) int {
	log.Debug().Str("source", "script").Msg(L.CheckString(1))
	return 0
}

func (m *logModule) info(L *lua.LState) int {
	log.Info().Str("source", "script").Msg(L.CheckString(1))
	return 0
}

func (m *logModule) warn(L *lua.LState) int {
	log.Warn().Str("source", "script").Msg(L.CheckString(1))
	return 0
}

func (m *logModule) errorLog(L *lua.LState) int {
	log.Error().Str("source", "script").Msg(L.CheckString(1))
	return 0
}

// utilModule holds the odds and ends scripts keep needing.
type utilModule struct{}

func newUtilModule() *utilModule {
	return &utilModule{}
}

func (m *utilModule) loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "sleep", L.NewFunction(m.sleep))

	L.Push(mod)
	return 1
}

// sleep(ms) - suspend the script; cancellation interrupts the sleep.
func (m *utilModule) sleep(L *lua.LState) int {
	ms := L.CheckInt(1)
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-L.Context().Done():
		L.RaiseError("util.sleep: %v", L.Context().Err())
	case <-t.C:
	}
	return 0
}
