// Package tui implements the interactive terminal dashboard: live bulb state
// with single-key bindings for power, brightness, warmth, presets and the
// built-in effects.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"huebctl/internal/bulb"
	"huebctl/internal/preset"
)

// Session is the slice of the device session the dashboard drives. Satisfied
// by *bulb.Bulb.
type Session interface {
	SetPower(ctx context.Context, on bool) error
	SetBrightness(ctx context.Context, v int) error
	SetColourTemp(ctx context.Context, mireds int) error
	SetColourXY(ctx context.Context, x, y float64) error
	ReadState(ctx context.Context) (bulb.BulbState, error)
}

// Effects is the sequencer surface the dashboard triggers. Satisfied by
// *effect.Runner.
type Effects interface {
	Sunrise(ctx context.Context, duration time.Duration) error
	Sundown(ctx context.Context, duration time.Duration) error
	Flash(ctx context.Context, duration, interval time.Duration) error
}

// Durations configures the effect lengths bound to the s/d/f keys.
type Durations struct {
	Sunrise       time.Duration
	Sundown       time.Duration
	Flash         time.Duration
	FlashInterval time.Duration
}

const (
	brightnessStep = 10
	warmthStep     = 25
)

type stateMsg bulb.BulbState

// opDoneMsg reports a one-shot write; err nil means it landed.
type opDoneMsg struct {
	err error
}

// effectDoneMsg reports a background effect finishing or being cancelled.
type effectDoneMsg struct {
	name string
	err  error
}

// EffectProgressMsg is sent via tea.Program.Send by the effect runner's
// progress callback.
type EffectProgressMsg struct {
	Step  int
	Total int
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	session   Session
	effects   Effects
	address   string
	durations Durations

	state  bulb.BulbState
	status string

	effectName   string
	effectCancel context.CancelFunc

	presets []string
}

// New creates the dashboard model.
func New(session Session, effects Effects, address string, durations Durations) Model {
	return Model{
		session:   session,
		effects:   effects,
		address:   address,
		durations: durations,
		presets:   preset.Names(),
	}
}

// Init reads the initial bulb state.
func (m Model) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		st, err := m.session.ReadState(context.Background())
		if err != nil {
			return opDoneMsg{err: err}
		}
		return stateMsg(st)
	}
}

func (m Model) writeCmd(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: fn(context.Background())}
	}
}

// startEffect cancels any running effect and launches the named one.
func (m *Model) startEffect(name string, run func(ctx context.Context) error) tea.Cmd {
	if m.effectCancel != nil {
		m.effectCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.effectCancel = cancel
	m.effectName = name
	m.status = ""

	return func() tea.Msg {
		return effectDoneMsg{name: name, err: run(ctx)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = bulb.BulbState(msg)
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		return m, m.refreshCmd()

	case effectDoneMsg:
		if msg.name != m.effectName {
			// A superseded effect finishing late; ignore.
			return m, nil
		}
		m.effectName = ""
		m.effectCancel = nil
		switch {
		case msg.err == nil:
			m.status = msg.name + " complete"
		case isCancelled(msg.err):
			m.status = msg.name + " cancelled"
		default:
			m.status = msg.err.Error()
		}
		return m, m.refreshCmd()

	case EffectProgressMsg:
		if m.effectName != "" {
			m.status = fmt.Sprintf("%s step %d/%d", m.effectName, msg.Step, msg.Total)
		}
		return m, m.refreshCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "q", "ctrl+c":
		if m.effectCancel != nil {
			m.effectCancel()
		}
		return m, tea.Quit

	case "esc":
		if m.effectCancel != nil {
			m.effectCancel()
			m.effectCancel = nil
			m.status = m.effectName + " cancelled"
			m.effectName = ""
		}
		return m, nil

	case " ", "p":
		target := !m.state.Power
		m.state.Power = target
		return m, m.writeCmd(func(ctx context.Context) error {
			return m.session.SetPower(ctx, target)
		})

	case "up", "down":
		v := m.state.Brightness
		if key == "up" {
			v += brightnessStep
		} else {
			v -= brightnessStep
		}
		v = clamp(v, bulb.BrightnessMin, bulb.BrightnessMax)
		if v == m.state.Brightness {
			return m, nil
		}
		m.state.Brightness = v
		return m, m.writeCmd(func(ctx context.Context) error {
			return m.session.SetBrightness(ctx, v)
		})

	case "left", "right":
		// Left is warmer (more mireds), right is cooler.
		mireds := m.state.Mirek
		if key == "left" {
			mireds += warmthStep
		} else {
			mireds -= warmthStep
		}
		mireds = clamp(mireds, bulb.MirekMin, bulb.MirekMax)
		if mireds == m.state.Mirek {
			return m, nil
		}
		m.state.Mirek = mireds
		return m, m.writeCmd(func(ctx context.Context) error {
			return m.session.SetColourTemp(ctx, mireds)
		})

	case "r":
		return m, m.refreshCmd()

	case "s":
		cmd := m.startEffect("sunrise", func(ctx context.Context) error {
			return m.effects.Sunrise(ctx, m.durations.Sunrise)
		})
		return m, cmd

	case "d":
		cmd := m.startEffect("sundown", func(ctx context.Context) error {
			return m.effects.Sundown(ctx, m.durations.Sundown)
		})
		return m, cmd

	case "f":
		cmd := m.startEffect("flash", func(ctx context.Context) error {
			return m.effects.Flash(ctx, m.durations.Flash, m.durations.FlashInterval)
		})
		return m, cmd
	}

	if idx, ok := presetIndex(key); ok && idx < len(m.presets) {
		name := m.presets[idx]
		xy, err := preset.Resolve(name)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.state.XY = xy
		m.status = "colour " + name
		return m, m.writeCmd(func(ctx context.Context) error {
			return m.session.SetColourXY(ctx, xy.X, xy.Y)
		})
	}

	return m, nil
}

// presetIndex maps the digit row to preset slots: 1-9 then 0.
func presetIndex(key string) (int, bool) {
	if len(key) != 1 || key[0] < '0' || key[0] > '9' {
		return 0, false
	}
	if key == "0" {
		return 9, true
	}
	return int(key[0] - '1'), true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "  huebctl — %s\n\n", m.address)

	power := "off"
	if m.state.Power {
		power = "on"
	}
	fmt.Fprintf(&b, "  Power       %s\n", power)
	fmt.Fprintf(&b, "  Brightness  %s %d\n", brightnessBar(m.state.Brightness), m.state.Brightness)
	fmt.Fprintf(&b, "  Warmth      %d mireds\n", m.state.Mirek)
	fmt.Fprintf(&b, "  Colour      x=%.3f y=%.3f\n\n", m.state.XY.X, m.state.XY.Y)

	fmt.Fprintf(&b, "  Presets     ")
	for i, name := range m.presets {
		digit := (i + 1) % 10
		fmt.Fprintf(&b, "%d:%s ", digit, name)
		if i == 4 {
			fmt.Fprintf(&b, "\n              ")
		}
	}
	b.WriteString("\n\n")

	if m.effectName != "" {
		fmt.Fprintf(&b, "  Effect      %s running (esc to cancel)\n", m.effectName)
	}
	if m.status != "" {
		fmt.Fprintf(&b, "  Status      %s\n", m.status)
	}

	b.WriteString("\n  space power · ↑/↓ brightness · ←/→ warmth · 1-0 presets · s/d/f effects · r refresh · q quit\n")
	return b.String()
}

// brightnessBar renders a 20-cell gauge.
func brightnessBar(v int) string {
	const cells = 20
	filled := v * cells / bulb.BrightnessMax
	return strings.Repeat("█", filled) + strings.Repeat("░", cells-filled)
}
