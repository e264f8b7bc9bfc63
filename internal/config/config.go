// Package config loads the huebctl configuration: a YAML file under the user
// config directory with ${VAR} environment expansion, plus .env support for
// the bulb address.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AddressEnvVar names the environment variable holding the bulb's hardware
// address.
const AddressEnvVar = "HUE_MAC_ADDRESS"

// Config is the application configuration.
type Config struct {
	Bulb    BulbConfig    `yaml:"bulb"`
	Log     LogConfig     `yaml:"log"`
	Effects EffectsConfig `yaml:"effects"`
	Astro   AstroConfig   `yaml:"astro"`
	History HistoryConfig `yaml:"history"`
	Program ProgramConfig `yaml:"program"`
}

// BulbConfig contains device session settings.
type BulbConfig struct {
	Address        string   `yaml:"address"`
	ScanTimeout    Duration `yaml:"scan_timeout"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	WriteRPS       float64  `yaml:"write_rps"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// EffectsConfig contains effect defaults.
type EffectsConfig struct {
	SunriseDuration Duration `yaml:"sunrise_duration"`
	SundownDuration Duration `yaml:"sundown_duration"`
	FlashDuration   Duration `yaml:"flash_duration"`
	FlashInterval   Duration `yaml:"flash_interval"`
	StepInterval    Duration `yaml:"step_interval"`
}

// AstroConfig contains coordinates for astronomical time expressions. Both
// zero means not configured.
type AstroConfig struct {
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
	Timezone string  `yaml:"timezone"`
}

// Configured reports whether coordinates are set.
func (a *AstroConfig) Configured() bool {
	return a.Lat != 0 || a.Lon != 0
}

// HistoryConfig contains run-ledger settings.
type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// ProgramConfig contains saved-program settings.
type ProgramConfig struct {
	Path    string `yaml:"path"`
	Misfire string `yaml:"misfire"` // run_now or skip
}

// Duration is a wrapper around time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// DefaultPath returns <UserConfigDir>/huebctl/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "huebctl", "config.yaml"), nil
}

// Load reads and parses the configuration file. A missing file is not an
// error: every field has a default, and the address can come from the
// environment. A .env file in the working directory is honoured.
func Load(path string) (*Config, error) {
	// Best effort; absence of .env is the normal case.
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bulb.Address == "" {
		cfg.Bulb.Address = os.Getenv(AddressEnvVar)
	}
	if cfg.Bulb.ScanTimeout == 0 {
		cfg.Bulb.ScanTimeout = Duration(10 * time.Second)
	}
	if cfg.Bulb.ConnectTimeout == 0 {
		cfg.Bulb.ConnectTimeout = Duration(30 * time.Second)
	}
	if cfg.Bulb.WriteRPS == 0 {
		cfg.Bulb.WriteRPS = 20.0
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.Effects.SunriseDuration == 0 {
		cfg.Effects.SunriseDuration = Duration(15 * time.Minute)
	}
	if cfg.Effects.SundownDuration == 0 {
		cfg.Effects.SundownDuration = Duration(15 * time.Minute)
	}
	if cfg.Effects.FlashDuration == 0 {
		cfg.Effects.FlashDuration = Duration(time.Minute)
	}
	if cfg.Effects.FlashInterval == 0 {
		cfg.Effects.FlashInterval = Duration(500 * time.Millisecond)
	}
	if cfg.Effects.StepInterval == 0 {
		cfg.Effects.StepInterval = Duration(10 * time.Second)
	}

	if cfg.Astro.Timezone == "" {
		cfg.Astro.Timezone = "Local"
	}

	if cfg.History.Path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.History.Path = filepath.Join(dir, "huebctl", "history.sqlite")
		} else {
			cfg.History.Path = "./huebctl-history.sqlite"
		}
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = 30
	}

	if cfg.Program.Path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.Program.Path = filepath.Join(dir, "huebctl", "program.json")
		} else {
			cfg.Program.Path = "./huebctl-program.json"
		}
	}
	if cfg.Program.Misfire == "" {
		cfg.Program.Misfire = "run_now"
	}
}

// expandEnvVars expands ${VAR} and ${VAR:default} references.
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return defaultVal
	})
}
