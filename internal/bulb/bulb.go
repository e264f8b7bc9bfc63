// Package bulb implements the device session for a single Philips Hue
// Bluetooth bulb: connection handling plus validated write/read access to the
// light-control characteristics. GATT transport itself is delegated to
// tinygo.org/x/bluetooth.
package bulb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"tinygo.org/x/bluetooth"
)

// Options configures a bulb session.
type Options struct {
	// Address is the bulb's hardware (MAC) address.
	Address string
	// Adapter overrides the default Bluetooth adapter.
	Adapter *bluetooth.Adapter
	// ScanTimeout bounds the discovery scan (default 10s).
	ScanTimeout time.Duration
	// ConnectTimeout bounds the whole Connect call, scan included
	// (default 30s).
	ConnectTimeout time.Duration
	// WriteRPS limits GATT writes per second so effect loops cannot flood
	// the link (default 20).
	WriteRPS float64
}

// Bulb is a session with a single bulb. It is safe for concurrent use; writes
// are serialised, matching the one-connection-one-writer model of the bulb.
type Bulb struct {
	opts    Options
	limiter *rate.Limiter

	mu sync.Mutex
	tr Transport
}

// New creates an unconnected session.
func New(opts Options) *Bulb {
	if opts.ScanTimeout == 0 {
		opts.ScanTimeout = 10 * time.Second
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 30 * time.Second
	}
	if opts.WriteRPS == 0 {
		opts.WriteRPS = 20
	}
	return &Bulb{
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.WriteRPS), int(opts.WriteRPS)),
	}
}

// NewWithTransport creates a session bound to an already-open transport.
// Used by tests to substitute an in-memory fake.
func NewWithTransport(tr Transport) *Bulb {
	b := New(Options{Address: "test"})
	b.tr = tr
	return b
}

// Connect scans for the configured address and opens the light-control
// service. The scan window is Options.ScanTimeout unless ctx expires first.
func (b *Bulb) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tr != nil {
		return nil
	}

	adapter := b.opts.Adapter
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, b.opts.ConnectTimeout)
	defer cancelConnect()
	scanCtx, cancelScan := context.WithTimeout(connectCtx, b.opts.ScanTimeout)
	defer cancelScan()

	tr, err := openTransport(connectCtx, scanCtx, adapter, b.opts.Address)
	if err != nil {
		return err
	}

	b.tr = tr
	log.Info().Str("address", b.opts.Address).Msg("Connected to bulb")
	return nil
}

// Disconnect releases the connection handle. Safe to call when not connected.
func (b *Bulb) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tr == nil {
		return nil
	}
	err := b.tr.Close()
	b.tr = nil
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	log.Info().Str("address", b.opts.Address).Msg("Disconnected from bulb")
	return nil
}

// write validates nothing; callers validate first. One GATT write per call.
func (b *Bulb) write(ctx context.Context, c Characteristic, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tr == nil {
		return ErrNotConnected
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	return b.tr.Write(c, data)
}

func (b *Bulb) read(c Characteristic) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tr == nil {
		return nil, ErrNotConnected
	}
	return b.tr.Read(c)
}

// SetPower switches the bulb on or off.
func (b *Bulb) SetPower(ctx context.Context, on bool) error {
	return b.write(ctx, CharPower, encodePower(on))
}

// SetBrightness sets brightness in [0, 254]. A value of 0 is transmitted as
// the bulb's own floor of 1.
func (b *Bulb) SetBrightness(ctx context.Context, v int) error {
	if v < BrightnessMin || v > BrightnessMax {
		return rangeErr("brightness", float64(v), BrightnessMin, BrightnessMax)
	}
	return b.write(ctx, CharBrightness, encodeBrightness(v))
}

// SetColourTemp sets colour temperature in mireds, [153, 500].
func (b *Bulb) SetColourTemp(ctx context.Context, mireds int) error {
	if mireds < MirekMin || mireds > MirekMax {
		return rangeErr("mireds", float64(mireds), MirekMin, MirekMax)
	}
	return b.write(ctx, CharTemperature, encodeMirek(mireds))
}

// SetColourXY sets the CIE xy colour; both components must be in [0, 1].
func (b *Bulb) SetColourXY(ctx context.Context, x, y float64) error {
	if x < 0 || x > 1 {
		return rangeErr("x", x, 0, 1)
	}
	if y < 0 || y > 1 {
		return rangeErr("y", y, 0, 1)
	}
	return b.write(ctx, CharColor, encodeXY(x, y))
}

// TurnOn powers the bulb on at the given brightness.
func (b *Bulb) TurnOn(ctx context.Context, brightness int) error {
	if brightness < BrightnessMin || brightness > BrightnessMax {
		return rangeErr("brightness", float64(brightness), BrightnessMin, BrightnessMax)
	}
	if err := b.SetPower(ctx, true); err != nil {
		return err
	}
	return b.SetBrightness(ctx, brightness)
}

// TurnOff powers the bulb off.
func (b *Bulb) TurnOff(ctx context.Context) error {
	return b.SetPower(ctx, false)
}

// Power reads back the current power state.
func (b *Bulb) Power(ctx context.Context) (bool, error) {
	data, err := b.read(CharPower)
	if err != nil {
		return false, err
	}
	return decodePower(data), nil
}

// ReadState reads back all four light-control characteristics.
func (b *Bulb) ReadState(ctx context.Context) (BulbState, error) {
	var st BulbState

	data, err := b.read(CharPower)
	if err != nil {
		return st, err
	}
	st.Power = decodePower(data)

	if data, err = b.read(CharBrightness); err != nil {
		return st, err
	}
	st.Brightness = decodeBrightness(data)

	if data, err = b.read(CharTemperature); err != nil {
		return st, err
	}
	st.Mirek = decodeMirek(data)

	if data, err = b.read(CharColor); err != nil {
		return st, err
	}
	st.XY.X, st.XY.Y = decodeXY(data)

	return st, nil
}

// Apply writes the set fields of a partial state in a fixed order: power,
// brightness, then colour. At most one of Mirek and XY may be set.
func (b *Bulb) Apply(ctx context.Context, s State) error {
	if s.Mirek != nil && s.XY != nil {
		return fmt.Errorf("state sets both mirek and xy")
	}
	if s.Power != nil {
		if err := b.SetPower(ctx, *s.Power); err != nil {
			return err
		}
	}
	if s.Brightness != nil {
		if err := b.SetBrightness(ctx, *s.Brightness); err != nil {
			return err
		}
	}
	if s.Mirek != nil {
		if err := b.SetColourTemp(ctx, *s.Mirek); err != nil {
			return err
		}
	}
	if s.XY != nil {
		if err := b.SetColourXY(ctx, s.XY.X, s.XY.Y); err != nil {
			return err
		}
	}
	return nil
}

// Address returns the configured hardware address.
func (b *Bulb) Address() string {
	return b.opts.Address
}
