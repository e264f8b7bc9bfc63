package script

import (
	"context"
	"testing"
	"time"

	"huebctl/internal/bulb"
	"huebctl/internal/effect"
)

type fakeLight struct {
	on         bool
	brightness int
	mireks     []int
	xys        []bulb.XY
}

func (f *fakeLight) TurnOn(ctx context.Context, brightness int) error {
	f.on = true
	f.brightness = brightness
	return nil
}

func (f *fakeLight) TurnOff(ctx context.Context) error {
	f.on = false
	return nil
}

func (f *fakeLight) SetBrightness(ctx context.Context, v int) error {
	f.brightness = v
	return nil
}

func (f *fakeLight) SetColourTemp(ctx context.Context, mireds int) error {
	f.mireks = append(f.mireks, mireds)
	return nil
}

func (f *fakeLight) SetColourXY(ctx context.Context, x, y float64) error {
	f.xys = append(f.xys, bulb.XY{X: x, Y: y})
	return nil
}

func (f *fakeLight) Power(ctx context.Context) (bool, error) {
	return f.on, nil
}

type fakeEffects struct {
	calls []string
}

func (f *fakeEffects) Sunrise(ctx context.Context, d time.Duration) error {
	f.calls = append(f.calls, "sunrise")
	return nil
}

func (f *fakeEffects) Sundown(ctx context.Context, d time.Duration) error {
	f.calls = append(f.calls, "sundown")
	return nil
}

func (f *fakeEffects) Flash(ctx context.Context, d, interval time.Duration) error {
	f.calls = append(f.calls, "flash")
	return nil
}

func (f *fakeEffects) Alarm(ctx context.Context, colour bulb.XY, style effect.Style, d time.Duration) error {
	f.calls = append(f.calls, "alarm:"+string(style))
	return nil
}

func newTestRuntime(t *testing.T) (*Runtime, *fakeLight, *fakeEffects) {
	t.Helper()
	light := &fakeLight{}
	effects := &fakeEffects{}
	rt := New(light, effects)
	t.Cleanup(rt.Close)
	return rt, light, effects
}

func TestBulbModule(t *testing.T) {
	rt, light, _ := newTestRuntime(t)

	err := rt.RunString(context.Background(), `
		local bulb = require("bulb")
		bulb.on(200)
		bulb.colour_temp(350)
		bulb.preset("purple")
		bulb.off()
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}

	if light.on {
		t.Error("bulb still on after bulb.off()")
	}
	if light.brightness != 200 {
		t.Errorf("brightness = %d, want 200", light.brightness)
	}
	if len(light.mireks) != 1 || light.mireks[0] != 350 {
		t.Errorf("mireks = %v", light.mireks)
	}
	if len(light.xys) != 1 || light.xys[0] != (bulb.XY{X: 0.27, Y: 0.12}) {
		t.Errorf("xys = %v, want purple", light.xys)
	}
}

func TestBulbOnDefaultBrightness(t *testing.T) {
	rt, light, _ := newTestRuntime(t)

	if err := rt.RunString(context.Background(), `require("bulb").on()`); err != nil {
		t.Fatalf("RunString: %v", err)
	}
	if light.brightness != 254 {
		t.Errorf("default brightness = %d, want 254", light.brightness)
	}
}

func TestBulbPowerReturn(t *testing.T) {
	rt, _, _ := newTestRuntime(t)

	err := rt.RunString(context.Background(), `
		local bulb = require("bulb")
		bulb.on()
		if not bulb.power() then
			error("expected power on")
		end
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
}

func TestEffectsModule(t *testing.T) {
	rt, _, effects := newTestRuntime(t)

	err := rt.RunString(context.Background(), `
		local effects = require("effects")
		effects.sunrise(60)
		effects.sundown(60)
		effects.flash(2, 0.5)
		effects.alarm("red", "fast", 1)
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}

	want := []string{"sunrise", "sundown", "flash", "alarm:fast"}
	if len(effects.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", effects.calls, want)
	}
	for i := range want {
		if effects.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", effects.calls, want)
		}
	}
}

func TestUnknownPresetRaises(t *testing.T) {
	rt, _, _ := newTestRuntime(t)

	err := rt.RunString(context.Background(), `require("bulb").preset("nonexistent")`)
	if err == nil {
		t.Error("unknown preset did not raise")
	}
}

func TestUnknownStyleRaises(t *testing.T) {
	rt, _, _ := newTestRuntime(t)

	err := rt.RunString(context.Background(), `require("effects").alarm("red", "strobe")`)
	if err == nil {
		t.Error("unknown alarm style did not raise")
	}
}
