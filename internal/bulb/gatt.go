package bulb

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Hue BLE light-control service, as exposed by Bluetooth-capable Hue bulbs.
// The same characteristic table is used by the official app once the bulb is
// paired, no bridge involved.
const (
	// ServiceUUID is the Hue light-control GATT service.
	ServiceUUID = "932c32bd-0000-47a2-835a-a8d455b859dd"
	// PowerUUID holds one byte: 0x00 off, 0x01 on.
	PowerUUID = "932c32bd-0002-47a2-835a-a8d455b859dd"
	// BrightnessUUID holds one byte in 1..254.
	BrightnessUUID = "932c32bd-0003-47a2-835a-a8d455b859dd"
	// TemperatureUUID holds a little-endian uint16 in mireds.
	TemperatureUUID = "932c32bd-0004-47a2-835a-a8d455b859dd"
	// ColorUUID holds two little-endian uint16 CIE xy coordinates scaled
	// to 0xFFFF.
	ColorUUID = "932c32bd-0005-47a2-835a-a8d455b859dd"
)

// Valid parameter ranges for the light-control characteristics.
const (
	BrightnessMin = 0
	BrightnessMax = 254
	MirekMin      = 153
	MirekMax      = 500

	// The brightness characteristic itself rejects 0; an API value of 0 is
	// transmitted as the bulb's own minimum.
	brightnessWireFloor = 1
)

// Characteristic identifies one of the light-control characteristics. The
// transport maps it to the discovered GATT handle.
type Characteristic int

const (
	CharPower Characteristic = iota
	CharBrightness
	CharTemperature
	CharColor
)

func (c Characteristic) String() string {
	switch c {
	case CharPower:
		return "power"
	case CharBrightness:
		return "brightness"
	case CharTemperature:
		return "temperature"
	case CharColor:
		return "color"
	}
	return fmt.Sprintf("characteristic(%d)", int(c))
}

// UUID returns the GATT characteristic UUID string.
func (c Characteristic) UUID() string {
	switch c {
	case CharPower:
		return PowerUUID
	case CharBrightness:
		return BrightnessUUID
	case CharTemperature:
		return TemperatureUUID
	case CharColor:
		return ColorUUID
	}
	return ""
}

func encodePower(on bool) []byte {
	if on {
		return []byte{0x01}
	}
	return []byte{0x00}
}

func decodePower(data []byte) bool {
	return len(data) > 0 && data[0] != 0x00
}

func encodeBrightness(v int) []byte {
	if v < brightnessWireFloor {
		v = brightnessWireFloor
	}
	return []byte{byte(v)}
}

func decodeBrightness(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	return int(data[0])
}

func encodeMirek(mireds int) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(mireds))
	return buf
}

func decodeMirek(data []byte) int {
	if len(data) < 2 {
		return 0
	}
	return int(binary.LittleEndian.Uint16(data))
}

func encodeXY(x, y float64) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(math.Round(x*0xFFFF)))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(math.Round(y*0xFFFF)))
	return buf
}

func decodeXY(data []byte) (x, y float64) {
	if len(data) < 4 {
		return 0, 0
	}
	x = float64(binary.LittleEndian.Uint16(data[0:2])) / 0xFFFF
	y = float64(binary.LittleEndian.Uint16(data[2:4])) / 0xFFFF
	return x, y
}
