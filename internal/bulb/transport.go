package bulb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"tinygo.org/x/bluetooth"
)

// Transport abstracts GATT access to the four light-control characteristics.
// The production implementation sits on tinygo.org/x/bluetooth; tests use an
// in-memory fake.
type Transport interface {
	Write(c Characteristic, data []byte) error
	Read(c Characteristic) ([]byte, error)
	Close() error
}

// bleTransport is the tinygo-bluetooth backed Transport.
type bleTransport struct {
	device bluetooth.Device
	chars  map[Characteristic]bluetooth.DeviceCharacteristic
}

func (t *bleTransport) Write(c Characteristic, data []byte) error {
	ch, ok := t.chars[c]
	if !ok {
		return fmt.Errorf("%s: %w", c, ErrCharacteristicNotAvailable)
	}
	if _, err := ch.WriteWithoutResponse(data); err != nil {
		return fmt.Errorf("write %s: %w", c, err)
	}
	return nil
}

func (t *bleTransport) Read(c Characteristic) ([]byte, error) {
	ch, ok := t.chars[c]
	if !ok {
		return nil, fmt.Errorf("%s: %w", c, ErrCharacteristicNotAvailable)
	}
	buf := make([]byte, 4)
	n, err := ch.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c, err)
	}
	return buf[:n], nil
}

func (t *bleTransport) Close() error {
	return t.device.Disconnect()
}

// openTransport scans for the given address, connects and discovers the
// light-control service. The scan is bounded by scanCtx, the whole call by
// ctx.
func openTransport(ctx, scanCtx context.Context, adapter *bluetooth.Adapter, address string) (Transport, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}

	found := make(chan bluetooth.ScanResult, 1)

	// Scan blocks until StopScan; bound it with the scan context.
	stopCtx, stopWatch := context.WithCancel(scanCtx)
	defer stopWatch()
	go func() {
		<-stopCtx.Done()
		adapter.StopScan()
	}()

	log.Debug().Str("address", address).Msg("Scanning for bulb")
	err := adapter.Scan(func(a *bluetooth.Adapter, res bluetooth.ScanResult) {
		if strings.EqualFold(res.Address.String(), address) {
			select {
			case found <- res:
			default:
			}
			a.StopScan()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	var res bluetooth.ScanResult
	select {
	case res = <-found:
	default:
		return nil, fmt.Errorf("%s: %w", address, ErrDeviceNotFound)
	}

	// Connect and discovery block without accepting a context; race them
	// against the deadline. A session that completes after the deadline is
	// torn down again.
	type sessionResult struct {
		tr  Transport
		err error
	}
	done := make(chan sessionResult, 1)
	go func() {
		tr, err := openSession(adapter, res.Address, address)
		done <- sessionResult{tr: tr, err: err}
	}()

	select {
	case r := <-done:
		return r.tr, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.tr != nil {
				r.tr.Close()
			}
		}()
		return nil, fmt.Errorf("connect %s: %w", address, ctx.Err())
	}
}

// openSession connects to a scanned device and discovers the light-control
// characteristics.
func openSession(adapter *bluetooth.Adapter, addr bluetooth.Address, address string) (Transport, error) {
	device, err := adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	serviceUUID, _ := bluetooth.ParseUUID(ServiceUUID)
	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		device.Disconnect()
		return nil, fmt.Errorf("discover services: %w", err)
	}
	if len(services) == 0 {
		device.Disconnect()
		return nil, ErrServiceNotAvailable
	}

	discovered, err := services[0].DiscoverCharacteristics(nil)
	if err != nil {
		device.Disconnect()
		return nil, fmt.Errorf("discover characteristics: %w", err)
	}

	chars := make(map[Characteristic]bluetooth.DeviceCharacteristic)
	for _, dc := range discovered {
		uuid := dc.UUID().String()
		for _, c := range []Characteristic{CharPower, CharBrightness, CharTemperature, CharColor} {
			if strings.EqualFold(uuid, c.UUID()) {
				chars[c] = dc
			}
		}
	}
	for _, c := range []Characteristic{CharPower, CharBrightness, CharTemperature, CharColor} {
		if _, ok := chars[c]; !ok {
			device.Disconnect()
			return nil, fmt.Errorf("%s: %w", c, ErrCharacteristicNotAvailable)
		}
	}

	log.Debug().Str("address", address).Msg("Light-control service discovered")
	return &bleTransport{device: device, chars: chars}, nil
}

// ScanResult describes one advertising device seen during Scan.
type ScanResult struct {
	Address string
	Name    string
	RSSI    int16
}

// Scan lists advertising devices for the given window. When hueOnly is set,
// only devices whose advertised name starts with "Hue" are reported. Each
// address is reported once.
func Scan(ctx context.Context, adapter *bluetooth.Adapter, window time.Duration, hueOnly bool, cb func(ScanResult)) error {
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	go func() {
		<-scanCtx.Done()
		adapter.StopScan()
	}()

	seen := make(map[string]struct{})
	err := adapter.Scan(func(a *bluetooth.Adapter, res bluetooth.ScanResult) {
		addr := res.Address.String()
		if _, dup := seen[addr]; dup {
			return
		}
		name := res.LocalName()
		if hueOnly && !strings.HasPrefix(name, "Hue") {
			return
		}
		seen[addr] = struct{}{}
		cb(ScanResult{Address: addr, Name: name, RSSI: res.RSSI})
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}
