package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/royalcat/rgeopins/region"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Pins      PinsConfig      `mapstructure:"pins"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Listen      string        `mapstructure:"listen"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	MaxBodySize int           `mapstructure:"max_body_size"`
}

type PinsConfig struct {
	Count            int     `mapstructure:"count"`
	SnapToGrid       bool    `mapstructure:"snap_to_grid"`
	GridSizeDeg      float64 `mapstructure:"grid_size_deg"`
	AttemptsPerPoint int     `mapstructure:"attempts_per_point"`
	SpreadSpacingM   float64 `mapstructure:"spread_spacing_m"`
}

func (p PinsConfig) Snap() region.SnapConfig {
	return region.SnapConfig{
		Enabled:     p.SnapToGrid,
		GridSizeDeg: p.GridSizeDeg,
	}
}

type TelemetryConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

const (
	DefaultPinCount    = 30
	DefaultMaxBodySize = 32 * 1000 * 1000 // 32MB
	envPrefix          = "RGEOPINS"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", time.Second)
	v.SetDefault("server.max_body_size", DefaultMaxBodySize)
	v.SetDefault("pins.count", DefaultPinCount)
	v.SetDefault("pins.snap_to_grid", false)
	v.SetDefault("pins.grid_size_deg", region.DefaultGridSizeDeg)
	v.SetDefault("pins.attempts_per_point", region.DefaultAttemptsPerPoint)
	v.SetDefault("pins.spread_spacing_m", 0.0)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "rgeopins")
}

func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from defaults, an optional YAML file and RGEOPINS_* environment variables.
// With an empty path rgeopins.yaml is looked up in . and ./configs and may be missing.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("rgeopins")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// RGEOPINS_PINS_SNAP_TO_GRID -> pins.snap_to_grid
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that every field is usable and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Listen == "" {
		errs = append(errs, "server.listen is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, "server.max_body_size must be positive")
	}
	if c.Pins.Count < 0 {
		errs = append(errs, fmt.Sprintf("pins.count must not be negative, got %d", c.Pins.Count))
	}
	if c.Pins.GridSizeDeg < 0 {
		errs = append(errs, fmt.Sprintf("pins.grid_size_deg must not be negative, got %g", c.Pins.GridSizeDeg))
	}
	if c.Pins.SnapToGrid && c.Pins.GridSizeDeg == 0 {
		errs = append(errs, "pins.grid_size_deg must be positive when pins.snap_to_grid is enabled")
	}
	if c.Pins.AttemptsPerPoint < 1 {
		errs = append(errs, fmt.Sprintf("pins.attempts_per_point must be at least 1, got %d", c.Pins.AttemptsPerPoint))
	}
	if c.Pins.SpreadSpacingM < 0 {
		errs = append(errs, fmt.Sprintf("pins.spread_spacing_m must not be negative, got %g", c.Pins.SpreadSpacingM))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
