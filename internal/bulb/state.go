package bulb

// XY is a CIE 1931 chromaticity coordinate pair. Hue bulbs use it to
// represent colour independent of brightness.
type XY struct {
	X float64
	Y float64
}

// BulbState is a full snapshot of the light-control characteristics as read
// back from the bulb. Only one of Mirek/XY is the active colour mode, but the
// bulb reports last-written values for both.
type BulbState struct {
	Power      bool
	Brightness int
	Mirek      int
	XY         XY
}

// State is a partial desired state. Nil fields are left untouched; set fields
// are applied in a fixed order (power, brightness, colour). At most one of
// Mirek and XY may be set.
type State struct {
	Power      *bool
	Brightness *int
	Mirek      *int
	XY         *XY
}

// Bool returns a pointer to b, for building State literals.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to v, for building State literals.
func Int(v int) *int { return &v }
