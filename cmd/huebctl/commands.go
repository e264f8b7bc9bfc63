package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"huebctl/internal/actions"
	"huebctl/internal/astro"
	"huebctl/internal/bulb"
	"huebctl/internal/config"
	"huebctl/internal/effect"
	"huebctl/internal/history"
	"huebctl/internal/preset"
	"huebctl/internal/program"
	"huebctl/internal/schedule"
	"huebctl/internal/script"
)

// errUsage marks a command-line mistake; main exits 2 instead of 1.
var errUsage = errors.New("usage error")

func usagef(format string, a ...any) error {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	return errUsage
}

func dispatch(ctx context.Context, cfg *config.Config, cmd string, args []string) error {
	switch cmd {
	case "on":
		return cmdOn(ctx, cfg, args)
	case "off":
		return cmdOff(ctx, cfg, args)
	case "toggle":
		return cmdToggle(ctx, cfg, args)
	case "brightness":
		return cmdBrightness(ctx, cfg, args)
	case "temp":
		return cmdTemp(ctx, cfg, args)
	case "colour", "color":
		return cmdColour(ctx, cfg, args)
	case "preset":
		return cmdPreset(ctx, cfg, args)
	case "presets":
		return cmdPresets(args)
	case "sunrise":
		return cmdFade(ctx, cfg, args, "fade_in", cfg.Effects.SunriseDuration.Duration())
	case "sundown":
		return cmdFade(ctx, cfg, args, "fade_out", cfg.Effects.SundownDuration.Duration())
	case "flash":
		return cmdFlash(ctx, cfg, args)
	case "timer":
		return cmdTimer(ctx, cfg, args)
	case "save":
		return cmdSave(cfg, args)
	case "show":
		return cmdShow(cfg)
	case "clear":
		return cmdClear(cfg)
	case "run":
		return cmdRun(ctx, cfg, args)
	case "history":
		return cmdHistory(cfg, args)
	case "script":
		return cmdScript(ctx, cfg, args)
	case "scan":
		return cmdScan(ctx, args)
	case "status":
		return cmdStatus(ctx, cfg, args)
	case "version":
		fmt.Println("huebctl " + version)
		return nil
	default:
		return usagef("unknown command %q (run huebctl with no arguments for usage)", cmd)
	}
}

// withBulb opens a session for the configured address, runs fn and
// disconnects.
func withBulb(ctx context.Context, cfg *config.Config, fn func(*bulb.Bulb) error) error {
	if cfg.Bulb.Address == "" {
		return fmt.Errorf("no bulb address configured (use -address, $%s or bulb.address in the config file)", config.AddressEnvVar)
	}

	b := bulb.New(bulb.Options{
		Address:        cfg.Bulb.Address,
		ScanTimeout:    cfg.Bulb.ScanTimeout.Duration(),
		ConnectTimeout: cfg.Bulb.ConnectTimeout.Duration(),
		WriteRPS:       cfg.Bulb.WriteRPS,
	})
	if err := b.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Bulb.Address, err)
	}
	defer b.Disconnect()

	return fn(b)
}

func newRunner(cfg *config.Config, b *bulb.Bulb) *effect.Runner {
	return effect.New(b, cfg.Effects.StepInterval.Duration(), func(step, total int, s effect.Step) {
		log.Info().
			Int("step", step+1).
			Int("of", total).
			Int("brightness", s.Brightness).
			Int("mireds", s.Mirek).
			Msg("Fade step")
	})
}

// newInvoker wires the effect registry to a runner and the run ledger. The
// returned closer shuts the ledger; history failures degrade to an
// unrecorded invoker rather than blocking the light.
func newInvoker(cfg *config.Config, runner *effect.Runner) (*actions.Invoker, func(), error) {
	registry := actions.NewRegistry()
	if err := actions.RegisterBulbEffects(registry, runner); err != nil {
		return nil, nil, err
	}

	ledger, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.History.Path).Msg("History unavailable, runs will not be recorded")
		return actions.NewInvoker(registry, nil), func() {}, nil
	}
	return actions.NewInvoker(registry, ledger), func() { ledger.Close() }, nil
}

func newEvaluator(cfg *config.Config) *schedule.Evaluator {
	if cfg.Astro.Configured() {
		calc := astro.NewCalculator(cfg.Astro.Lat, cfg.Astro.Lon, cfg.Astro.Timezone)
		return schedule.NewEvaluator(calc, calc.Timezone())
	}
	tz, err := time.LoadLocation(cfg.Astro.Timezone)
	if err != nil {
		tz = time.Local
	}
	return schedule.NewEvaluator(nil, tz)
}

func cmdOn(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("on", flag.ContinueOnError)
	brightness := fs.Int("brightness", bulb.BrightnessMax, "Brightness 0-254")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		if err := b.TurnOn(ctx, *brightness); err != nil {
			return err
		}
		fmt.Printf("✓ On (brightness %d)\n", *brightness)
		return nil
	})
}

func cmdOff(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return usagef("off takes no arguments")
	}
	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		if err := b.TurnOff(ctx); err != nil {
			return err
		}
		fmt.Println("✓ Off")
		return nil
	})
}

func cmdToggle(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return usagef("toggle takes no arguments")
	}
	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		on, err := b.Power(ctx)
		if err != nil {
			return err
		}
		if err := b.SetPower(ctx, !on); err != nil {
			return err
		}
		if on {
			fmt.Println("✓ Off")
		} else {
			fmt.Println("✓ On")
		}
		return nil
	})
}

func cmdBrightness(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return usagef("usage: huebctl brightness N (0-254)")
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return usagef("brightness: %q is not a number", args[0])
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		if err := b.SetBrightness(ctx, v); err != nil {
			return err
		}
		fmt.Printf("✓ Brightness %d\n", v)
		return nil
	})
}

func cmdTemp(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return usagef("usage: huebctl temp MIREDS (153-500)")
	}
	mireds, err := strconv.Atoi(args[0])
	if err != nil {
		return usagef("temp: %q is not a number", args[0])
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		if err := b.SetColourTemp(ctx, mireds); err != nil {
			return err
		}
		fmt.Printf("✓ Temperature %d mireds\n", mireds)
		return nil
	})
}

func cmdColour(ctx context.Context, cfg *config.Config, args []string) error {
	var xy bulb.XY

	switch len(args) {
	case 1:
		r, g, b, err := parseHexColour(args[0])
		if err != nil {
			return usagef("colour: %v", err)
		}
		xy = preset.RGBToXY(r, g, b)
	case 2:
		x, errX := strconv.ParseFloat(args[0], 64)
		y, errY := strconv.ParseFloat(args[1], 64)
		if errX != nil || errY != nil {
			return usagef("colour: expected two decimal coordinates, got %q %q", args[0], args[1])
		}
		xy = bulb.XY{X: x, Y: y}
	default:
		return usagef("usage: huebctl colour X Y  |  huebctl colour '#RRGGBB'")
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		if err := b.SetColourXY(ctx, xy.X, xy.Y); err != nil {
			return err
		}
		fmt.Printf("✓ Colour x=%.4f y=%.4f\n", xy.X, xy.Y)
		return nil
	})
}

func parseHexColour(s string) (r, g, b int, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("%q is not an RRGGBB hex colour", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%q is not an RRGGBB hex colour", s)
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), nil
}

func cmdPreset(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return usagef("usage: huebctl preset NAME (see: huebctl presets)")
	}
	xy, err := preset.Resolve(args[0])
	if err != nil {
		return err
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		if err := b.SetColourXY(ctx, xy.X, xy.Y); err != nil {
			return err
		}
		fmt.Printf("✓ Colour %s (x=%.2f y=%.2f)\n", args[0], xy.X, xy.Y)
		return nil
	})
}

func cmdPresets(args []string) error {
	if len(args) != 0 {
		return usagef("presets takes no arguments")
	}
	for _, name := range preset.Names() {
		xy, _ := preset.Resolve(name)
		r, g, b := preset.XYToRGB(xy, 1.0)
		fmt.Printf("%-12s x=%.2f y=%.2f  #%02X%02X%02X\n", name, xy.X, xy.Y, r, g, b)
	}
	return nil
}

// cmdFade runs sunrise (fade_in) or sundown (fade_out) immediately.
func cmdFade(ctx context.Context, cfg *config.Config, args []string, effectName string, defaultDuration time.Duration) error {
	fs := flag.NewFlagSet(effectName, flag.ContinueOnError)
	duration := fs.Duration("duration", defaultDuration, "Fade duration")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		invoker, closeLedger, err := newInvoker(cfg, newRunner(cfg, b))
		if err != nil {
			return err
		}
		defer closeLedger()

		if err := invoker.Invoke(ctx, effectName, map[string]any{"duration": *duration}, ""); err != nil {
			return err
		}
		fmt.Printf("✓ %s complete\n", effectName)
		return nil
	})
}

// cmdFlash toggles power, or runs the alarm effect when a colour or style is
// given.
func cmdFlash(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("flash", flag.ContinueOnError)
	duration := fs.Duration("duration", cfg.Effects.FlashDuration.Duration(), "Flash duration")
	interval := fs.Duration("interval", cfg.Effects.FlashInterval.Duration(), "Toggle interval")
	colour := fs.String("colour", "", "Preset colour (selects the alarm effect)")
	style := fs.String("style", "", "Alarm style: flash, fast, breathing")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	effectName := "flash"
	effectArgs := map[string]any{"duration": *duration, "interval": *interval}
	if *colour != "" || *style != "" {
		effectName = "alarm"
		effectArgs = map[string]any{"duration": *duration}
		if *colour != "" {
			effectArgs["colour"] = *colour
		}
		if *style != "" {
			effectArgs["style"] = *style
		}
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		invoker, closeLedger, err := newInvoker(cfg, newRunner(cfg, b))
		if err != nil {
			return err
		}
		defer closeLedger()

		if err := invoker.Invoke(ctx, effectName, effectArgs, ""); err != nil {
			return err
		}
		fmt.Printf("✓ %s complete\n", effectName)
		return nil
	})
}

// stepFlags parses the shared timer/save step flags into a program step.
func stepFlags(name string, args []string) (program.Step, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	at := fs.String("at", "", `Time expression ("07:30", "@sunrise - 20m")`)
	delay := fs.Duration("delay", 0, "Delay from now")
	duration := fs.Duration("duration", 0, "Effect duration (0 = effect default)")
	colour := fs.String("colour", "", "Preset colour for alarm")
	style := fs.String("style", "", "Alarm style: flash, fast, breathing")
	interval := fs.Duration("interval", 0, "Flash toggle interval")
	if err := fs.Parse(args); err != nil {
		return program.Step{}, nil, errUsage
	}

	if *at != "" && *delay != 0 {
		return program.Step{}, nil, usagef("%s: -at and -delay are mutually exclusive", name)
	}
	if *at != "" {
		if _, err := schedule.ParseTimeExpr(*at); err != nil {
			return program.Step{}, nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	return program.Step{
		At:       *at,
		Delay:    program.Duration(*delay),
		Duration: program.Duration(*duration),
		Colour:   *colour,
		Style:    *style,
		Interval: program.Duration(*interval),
	}, fs.Args(), nil
}

// cmdTimer waits for the given position and runs one effect in the
// foreground.
func cmdTimer(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return usagef("usage: huebctl timer EFFECT [-at HH:MM|@expr | -delay D] [flags]")
	}

	step, rest, err := stepFlags("timer", args[1:])
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return usagef("timer: unexpected arguments %v", rest)
	}
	step.Effect = args[0]
	if step.At == "" && step.Delay == 0 {
		return usagef("timer: one of -at or -delay is required")
	}

	p := &program.Program{Version: program.CurrentVersion, Steps: []program.Step{step}}
	if err := p.Validate(); err != nil {
		return err
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		invoker, closeLedger, err := newInvoker(cfg, newRunner(cfg, b))
		if err != nil {
			return err
		}
		defer closeLedger()

		routine := schedule.NewRoutine(newEvaluator(cfg), invoker, schedule.MisfirePolicy(cfg.Program.Misfire))
		if err := routine.Run(ctx, p.Steps); err != nil {
			return err
		}
		fmt.Printf("✓ %s complete\n", step.Effect)
		return nil
	})
}

// cmdSave persists a one-step program, or a multi-step routine from a JSON
// file with -routine.
func cmdSave(cfg *config.Config, args []string) error {
	store := program.NewStore(cfg.Program.Path)

	if len(args) > 0 && args[0] == "-routine" {
		if len(args) != 2 {
			return usagef("usage: huebctl save -routine FILE")
		}
		p, err := loadProgramFile(args[1])
		if err != nil {
			return err
		}
		if err := store.Save(p); err != nil {
			return err
		}
		fmt.Printf("✓ Saved %d-step routine to %s\n", len(p.Steps), store.Path())
		return nil
	}

	if len(args) == 0 {
		return usagef("usage: huebctl save EFFECT [-at ...] | huebctl save -routine FILE")
	}

	step, rest, err := stepFlags("save", args[1:])
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return usagef("save: unexpected arguments %v", rest)
	}
	step.Effect = args[0]

	p := &program.Program{
		Version: program.CurrentVersion,
		Misfire: cfg.Program.Misfire,
		Steps:   []program.Step{step},
	}
	if err := store.Save(p); err != nil {
		return err
	}
	fmt.Printf("✓ Saved %s to %s\n", step.Effect, store.Path())
	return nil
}

func loadProgramFile(path string) (*program.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p program.Program
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

func cmdShow(cfg *config.Config) error {
	store := program.NewStore(cfg.Program.Path)
	p, err := store.Load()
	if errors.Is(err, program.ErrNoProgram) {
		fmt.Println("No saved program.")
		return nil
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func cmdClear(cfg *config.Config) error {
	store := program.NewStore(cfg.Program.Path)
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("✓ Cleared saved program")
	return nil
}

// cmdRun executes the saved program, or a routine file given as an argument.
func cmdRun(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	saved := fs.Bool("saved", true, "Run the saved program")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var (
		p   *program.Program
		err error
	)
	switch rest := fs.Args(); {
	case len(rest) == 1:
		p, err = loadProgramFile(rest[0])
	case len(rest) == 0 && *saved:
		p, err = program.NewStore(cfg.Program.Path).Load()
	default:
		return usagef("usage: huebctl run [-saved] [FILE]")
	}
	if err != nil {
		return err
	}

	misfire := schedule.MisfirePolicy(cfg.Program.Misfire)
	if p.Misfire != "" {
		misfire = schedule.MisfirePolicy(p.Misfire)
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		invoker, closeLedger, err := newInvoker(cfg, newRunner(cfg, b))
		if err != nil {
			return err
		}
		defer closeLedger()

		routine := schedule.NewRoutine(newEvaluator(cfg), invoker, misfire)
		if err := routine.Run(ctx, p.Steps); err != nil {
			return err
		}
		fmt.Println("✓ Program complete")
		return nil
	})
}

func cmdHistory(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	n := fs.Int("n", 20, "Number of runs to show")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	ledger, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
	if pruned, err := ledger.Prune(retention); err == nil && pruned > 0 {
		log.Debug().Int64("pruned", pruned).Msg("Pruned old history entries")
	}

	runs, err := ledger.Recent(*n)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, r := range runs {
		status := "running"
		switch {
		case r.Failed():
			status = "failed: " + r.Error
		case r.Completed():
			status = "ok"
		}
		line := fmt.Sprintf("%s  %-8s  %s",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Effect, status)
		if s := actions.ArgString(r.Args); s != "" {
			line += "  (" + s + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func cmdScript(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return usagef("usage: huebctl script FILE")
	}
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return err
	}

	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		rt := script.New(b, newRunner(cfg, b))
		defer rt.Close()

		if err := rt.RunFile(ctx, path); err != nil {
			return err
		}
		fmt.Printf("✓ %s complete\n", path)
		return nil
	})
}

func cmdScan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	window := fs.Duration("timeout", 10*time.Second, "Scan window")
	all := fs.Bool("all", false, "List all devices, not just Hue bulbs")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	fmt.Printf("Scanning for %s...\n", *window)
	count := 0
	err := bulb.Scan(ctx, nil, *window, !*all, func(res bulb.ScanResult) {
		name := res.Name
		if name == "" {
			name = "(no name)"
		}
		fmt.Printf("%-20s %-24s %d dBm\n", res.Address, name, res.RSSI)
		count++
	})
	if err != nil {
		return err
	}
	if count == 0 {
		fmt.Println("No devices found.")
	}
	return nil
}

func cmdStatus(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return usagef("status takes no arguments")
	}
	return withBulb(ctx, cfg, func(b *bulb.Bulb) error {
		st, err := b.ReadState(ctx)
		if err != nil {
			return err
		}

		power := "off"
		if st.Power {
			power = "on"
		}
		r, g, bb := preset.XYToRGB(st.XY, 1.0)

		fmt.Printf("Address:     %s\n", b.Address())
		fmt.Printf("Power:       %s\n", power)
		fmt.Printf("Brightness:  %d (%d%%)\n", st.Brightness, st.Brightness*100/bulb.BrightnessMax)
		fmt.Printf("Temperature: %d mireds\n", st.Mirek)
		fmt.Printf("Colour:      x=%.4f y=%.4f (≈ #%02X%02X%02X)\n", st.XY.X, st.XY.Y, r, g, bb)
		return nil
	})
}
