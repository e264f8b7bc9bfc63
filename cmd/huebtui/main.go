// huebtui is the interactive terminal dashboard for a Hue Bluetooth bulb.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"huebctl/internal/bulb"
	"huebctl/internal/config"
	"huebctl/internal/effect"
	"huebctl/internal/tui"
)

func main() {
	var (
		configPath string
		address    string
		logPath    string
	)

	defaultConfig, _ := config.DefaultPath()
	flag.StringVar(&configPath, "config", defaultConfig, "Path to configuration file")
	flag.StringVar(&address, "address", "", "Bulb hardware address (overrides config and env)")
	flag.StringVar(&logPath, "log", "", "Write debug logs to a file (stderr would corrupt the display)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if address != "" {
		cfg.Bulb.Address = address
	}
	if cfg.Bulb.Address == "" {
		fmt.Fprintf(os.Stderr, "no bulb address configured (use -address, $%s or bulb.address in the config file)\n", config.AddressEnvVar)
		os.Exit(2)
	}

	setupLogging(logPath)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

// setupLogging sends logs to a file or discards them; the alternate screen
// owns the terminal.
func setupLogging(path string) {
	var w io.Writer = io.Discard
	level := zerolog.Disabled

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			w = f
			level = zerolog.DebugLevel
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	b := bulb.New(bulb.Options{
		Address:     cfg.Bulb.Address,
		ScanTimeout: cfg.Bulb.ScanTimeout.Duration(),
		WriteRPS:    cfg.Bulb.WriteRPS,
	})

	fmt.Printf("Connecting to %s...\n", cfg.Bulb.Address)
	if err := b.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.Bulb.Address, err)
	}
	defer b.Disconnect()

	// The runner is built before the program exists; the callback captures
	// the variable, which is assigned before any effect can start.
	var p *tea.Program
	runner := effect.New(b, cfg.Effects.StepInterval.Duration(), func(step, total int, s effect.Step) {
		if p != nil {
			p.Send(tui.EffectProgressMsg{Step: step + 1, Total: total})
		}
	})

	model := tui.New(b, runner, cfg.Bulb.Address, tui.Durations{
		Sunrise:       cfg.Effects.SunriseDuration.Duration(),
		Sundown:       cfg.Effects.SundownDuration.Duration(),
		Flash:         cfg.Effects.FlashDuration.Duration(),
		FlashInterval: cfg.Effects.FlashInterval.Duration(),
	})

	p = tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
