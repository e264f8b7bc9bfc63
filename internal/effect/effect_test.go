package effect

import (
	"context"
	"testing"
	"time"

	"huebctl/internal/bulb"
)

// recorder captures every write in order.
type recorder struct {
	powers      []bool
	brightness  []int
	mireks      []int
	xys         []bulb.XY
	writeOrder  []string
	failOnWrite int // fail the nth write (1-based), 0 = never
	writes      int
	err         error
}

func (r *recorder) record(kind string) error {
	r.writes++
	r.writeOrder = append(r.writeOrder, kind)
	if r.failOnWrite > 0 && r.writes == r.failOnWrite {
		return r.err
	}
	return nil
}

func (r *recorder) SetPower(ctx context.Context, on bool) error {
	r.powers = append(r.powers, on)
	return r.record("power")
}

func (r *recorder) SetBrightness(ctx context.Context, v int) error {
	r.brightness = append(r.brightness, v)
	return r.record("brightness")
}

func (r *recorder) SetColourTemp(ctx context.Context, mireds int) error {
	r.mireks = append(r.mireks, mireds)
	return r.record("temperature")
}

func (r *recorder) SetColourXY(ctx context.Context, x, y float64) error {
	r.xys = append(r.xys, bulb.XY{X: x, Y: y})
	return r.record("color")
}

// newTestRunner wires a runner whose sleeps return immediately.
func newTestRunner(w Writer, stepInterval time.Duration) *Runner {
	r := New(w, stepInterval, nil)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}
	return r
}

func TestSunriseSequence(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(rec, 10*time.Second)

	if err := r.Sunrise(context.Background(), time.Minute); err != nil {
		t.Fatalf("Sunrise: %v", err)
	}

	if len(rec.powers) != 1 || !rec.powers[0] {
		t.Errorf("powers = %v, want single power-on", rec.powers)
	}
	if len(rec.brightness) != 7 {
		t.Fatalf("brightness writes = %d, want 7", len(rec.brightness))
	}
	if rec.brightness[0] != 1 || rec.brightness[6] != 254 {
		t.Errorf("brightness endpoints = %d..%d, want 1..254", rec.brightness[0], rec.brightness[6])
	}
	if rec.mireks[0] != 500 || rec.mireks[6] != 153 {
		t.Errorf("mirek endpoints = %d..%d, want 500..153", rec.mireks[0], rec.mireks[6])
	}
	for i := 1; i < len(rec.brightness); i++ {
		if rec.brightness[i] <= rec.brightness[i-1] {
			t.Errorf("brightness not increasing at %d", i)
		}
		if rec.mireks[i] >= rec.mireks[i-1] {
			t.Errorf("mireds not decreasing at %d", i)
		}
	}
}

func TestSundownEndsOff(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(rec, 10*time.Second)

	if err := r.Sundown(context.Background(), time.Minute); err != nil {
		t.Fatalf("Sundown: %v", err)
	}

	if len(rec.powers) != 2 || !rec.powers[0] || rec.powers[1] {
		t.Errorf("powers = %v, want [on off]", rec.powers)
	}
	last := len(rec.brightness) - 1
	if rec.brightness[0] != 254 || rec.brightness[last] != 1 {
		t.Errorf("brightness endpoints = %d..%d, want 254..1", rec.brightness[0], rec.brightness[last])
	}
}

func TestFlashToggleCount(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(rec, 0)

	if err := r.Flash(context.Background(), 2*time.Second, 500*time.Millisecond); err != nil {
		t.Fatalf("Flash: %v", err)
	}

	// 2s / 500ms = 4 toggles: off on off on. Even count ends on, no restore.
	want := []bool{false, true, false, true}
	if len(rec.powers) != len(want) {
		t.Fatalf("power writes = %v, want %v", rec.powers, want)
	}
	for i := range want {
		if rec.powers[i] != want[i] {
			t.Fatalf("power writes = %v, want %v", rec.powers, want)
		}
	}
}

func TestFlashOddTogglesRestoresOn(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(rec, 0)

	if err := r.Flash(context.Background(), 1500*time.Millisecond, 500*time.Millisecond); err != nil {
		t.Fatalf("Flash: %v", err)
	}

	// 3 toggles: off on off, plus one restoring on.
	if len(rec.powers) != 4 {
		t.Fatalf("power writes = %v, want 4 entries", rec.powers)
	}
	if !rec.powers[len(rec.powers)-1] {
		t.Error("flash did not end in the on state")
	}
}

func TestAlarmSetsColourThenRestores(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(rec, 0)

	// Simulate the alarm deadline firing on the sixth tick.
	ticks := 0
	r.sleep = func(ctx context.Context, d time.Duration) error {
		ticks++
		if ticks >= 6 {
			return context.DeadlineExceeded
		}
		return ctx.Err()
	}

	red := bulb.XY{X: 0.68, Y: 0.31}
	if err := r.Alarm(context.Background(), red, StyleFlash, time.Second); err != nil {
		t.Fatalf("Alarm: %v", err)
	}

	if len(rec.xys) != 1 || rec.xys[0] != red {
		t.Errorf("colour writes = %v, want single red", rec.xys)
	}
	// Restore: final power write on, final brightness write 254.
	if !rec.powers[len(rec.powers)-1] {
		t.Error("alarm did not restore power on")
	}
	if rec.brightness[len(rec.brightness)-1] != 254 {
		t.Errorf("alarm restored brightness %d, want 254", rec.brightness[len(rec.brightness)-1])
	}
}

func TestAlarmCancelledStillRestores(t *testing.T) {
	rec := &recorder{}
	r := newTestRunner(rec, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Alarm(ctx, bulb.XY{X: 0.68, Y: 0.31}, StyleBreathing, 0)
	if err == nil {
		t.Fatal("Alarm with cancelled context returned nil")
	}
	if len(rec.powers) == 0 || !rec.powers[len(rec.powers)-1] {
		t.Error("cancelled alarm did not restore power on")
	}
}

func TestParseStyle(t *testing.T) {
	for _, s := range []string{"flash", "fast", "breathing"} {
		if _, err := ParseStyle(s); err != nil {
			t.Errorf("ParseStyle(%q): %v", s, err)
		}
	}
	if _, err := ParseStyle("strobe"); err == nil {
		t.Error("ParseStyle(strobe) succeeded")
	}
}
