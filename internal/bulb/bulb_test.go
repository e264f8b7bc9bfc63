package bulb

import (
	"context"
	"errors"
	"testing"
)

// fakeTransport stores the last write per characteristic and serves reads
// from it, mimicking the bulb's read-back behaviour.
type fakeTransport struct {
	values map[Characteristic][]byte
	writes []Characteristic
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{values: make(map[Characteristic][]byte)}
}

func (f *fakeTransport) Write(c Characteristic, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	f.values[c] = buf
	f.writes = append(f.writes, c)
	return nil
}

func (f *fakeTransport) Read(c Characteristic) ([]byte, error) {
	if v, ok := f.values[c]; ok {
		return v, nil
	}
	return []byte{0x00, 0x00, 0x00, 0x00}, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestSettersRequireConnection(t *testing.T) {
	b := New(Options{Address: "00:11:22:33:44:55"})
	ctx := context.Background()

	if err := b.SetPower(ctx, true); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SetPower without connection: %v", err)
	}
	if err := b.SetBrightness(ctx, 100); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SetBrightness without connection: %v", err)
	}
}

func TestBrightnessValidation(t *testing.T) {
	tr := newFakeTransport()
	b := NewWithTransport(tr)
	ctx := context.Background()

	for _, v := range []int{-1, 255, 1000} {
		err := b.SetBrightness(ctx, v)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetBrightness(%d) = %v, want ErrOutOfRange", v, err)
		}
	}
	// Invalid values never reach the transport.
	if len(tr.writes) != 0 {
		t.Errorf("out-of-range brightness produced %d writes", len(tr.writes))
	}

	if err := b.SetBrightness(ctx, 0); err != nil {
		t.Fatalf("SetBrightness(0): %v", err)
	}
	if got := tr.values[CharBrightness]; got[0] != 0x01 {
		t.Errorf("brightness 0 transmitted as %#x, want wire floor 0x01", got[0])
	}
}

func TestColourTempValidation(t *testing.T) {
	tr := newFakeTransport()
	b := NewWithTransport(tr)
	ctx := context.Background()

	for _, m := range []int{0, 152, 501, 10000} {
		err := b.SetColourTemp(ctx, m)
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetColourTemp(%d) = %v, want ErrOutOfRange", m, err)
		}
	}
	if len(tr.writes) != 0 {
		t.Errorf("out-of-range mireds produced %d writes", len(tr.writes))
	}

	var oor *OutOfRangeError
	err := b.SetColourTemp(ctx, 501)
	if !errors.As(err, &oor) || oor.Param != "mireds" {
		t.Errorf("SetColourTemp(501) error detail = %v", err)
	}
}

func TestColourXYValidation(t *testing.T) {
	b := NewWithTransport(newFakeTransport())
	ctx := context.Background()

	for _, pair := range [][2]float64{{-0.1, 0.5}, {0.5, 1.1}, {2, 2}} {
		err := b.SetColourXY(ctx, pair[0], pair[1])
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("SetColourXY(%g, %g) = %v, want ErrOutOfRange", pair[0], pair[1], err)
		}
	}
}

func TestOnThenOffReportsOff(t *testing.T) {
	tr := newFakeTransport()
	b := NewWithTransport(tr)
	ctx := context.Background()

	if err := b.TurnOn(ctx, 254); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}
	if err := b.TurnOff(ctx); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}

	on, err := b.Power(ctx)
	if err != nil {
		t.Fatalf("Power: %v", err)
	}
	if on {
		t.Error("Power() = on after TurnOff")
	}
}

func TestApplyOrder(t *testing.T) {
	tr := newFakeTransport()
	b := NewWithTransport(tr)
	ctx := context.Background()

	err := b.Apply(ctx, State{
		Power:      Bool(true),
		Brightness: Int(120),
		Mirek:      Int(300),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	want := []Characteristic{CharPower, CharBrightness, CharTemperature}
	if len(tr.writes) != len(want) {
		t.Fatalf("Apply produced %d writes, want %d", len(tr.writes), len(want))
	}
	for i, c := range want {
		if tr.writes[i] != c {
			t.Errorf("write %d = %s, want %s", i, tr.writes[i], c)
		}
	}
}

func TestApplyRejectsBothColourModes(t *testing.T) {
	b := NewWithTransport(newFakeTransport())
	err := b.Apply(context.Background(), State{Mirek: Int(300), XY: &XY{X: 0.3, Y: 0.3}})
	if err == nil {
		t.Error("Apply with both mirek and xy succeeded")
	}
}

func TestReadState(t *testing.T) {
	tr := newFakeTransport()
	b := NewWithTransport(tr)
	ctx := context.Background()

	if err := b.TurnOn(ctx, 200); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}
	if err := b.SetColourTemp(ctx, 350); err != nil {
		t.Fatalf("SetColourTemp: %v", err)
	}

	st, err := b.ReadState(ctx)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if !st.Power || st.Brightness != 200 || st.Mirek != 350 {
		t.Errorf("ReadState = %+v", st)
	}
}
