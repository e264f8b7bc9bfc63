package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"huebctl/internal/config"
)

const version = "1.2.0"

const usageText = `huebctl - control Philips Hue Bluetooth bulbs, no bridge needed

Usage: huebctl [-config FILE] [-address MAC] [-debug] [-json] COMMAND [flags]

Commands:
  on [-brightness N]       power on (default brightness 254)
  off                      power off
  toggle                   invert power
  brightness N             set brightness 0-254
  temp MIREDS              set colour temperature 153-500
  colour X Y | colour HEX  set CIE xy or hex RGB colour
  preset NAME              set a named preset colour
  presets                  list preset names
  sunrise [-duration 15m]  warm/dim to cool/bright fade
  sundown [-duration 15m]  cool/bright to warm/dim fade, then off
  flash [-duration 1m] [-interval 500ms] [-colour NAME] [-style STYLE]
  timer EFFECT [-at HH:MM|@expr] [-delay D] [-duration D] [-colour NAME] [-style STYLE]
  save EFFECT [-at ...]    persist a one-step program
  save -routine FILE       persist a multi-step routine
  show                     print the saved program
  clear                    remove the saved program
  run [-saved]             execute the saved program
  history [-n 20]          recent effect runs
  script FILE              run a Lua effect script
  scan [-timeout 10s] [-all]  list advertising bulbs
  status                   read and print bulb state
  version

The bulb address comes from -address, $HUE_MAC_ADDRESS (a .env file is
honoured), or the config file, in that order.
`

func main() {
	var (
		configPath string
		address    string
		debug      bool
		jsonLog    bool
	)

	defaultConfig, _ := config.DefaultPath()
	flag.StringVar(&configPath, "config", defaultConfig, "Path to configuration file")
	flag.StringVar(&address, "address", "", "Bulb hardware address (overrides config and env)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&jsonLog, "json", false, "JSON log output")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	setupLogging(level, cfg.Log.JSON || jsonLog, cfg.Log.Colors)

	if address != "" {
		cfg.Bulb.Address = address
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := signalContext()

	if err := dispatch(ctx, cfg, args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Error().Err(err).Msg("Command failed")
		fmt.Printf("✗ %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string, useJSON bool, colors bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// signalContext creates a context that is cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
