package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/claude/liftlog/internal/overload"
	"github.com/claude/liftlog/internal/recovery"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Recovery  RecoveryConfig  `yaml:"recovery"`
	Overload  OverloadConfig  `yaml:"overload"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres (default) or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"` // sqlite file
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type CatalogConfig struct {
	Path string `yaml:"path"` // empty uses the built-in catalog
}

// RecoveryConfig tunes the fatigue estimator. Zero values keep the defaults.
type RecoveryConfig struct {
	HalfLifeHours       float64 `yaml:"half_life_hours"`
	OverworkedThreshold float64 `yaml:"overworked_threshold"`
	OptimalLowerBound   float64 `yaml:"optimal_lower_bound"`
	SetFatiguePercent   float64 `yaml:"set_fatigue_percent"`
	ReferenceVolume     float64 `yaml:"reference_volume"`
	BodyMassKg          float64 `yaml:"body_mass_kg"`
	LookbackDays        int     `yaml:"lookback_days"`
}

// OverloadConfig tunes the recommender. Zero values keep the defaults.
type OverloadConfig struct {
	TargetRepsMin       int     `yaml:"target_reps_min"`
	TargetRepsMax       int     `yaml:"target_reps_max"`
	TrendSessions       int     `yaml:"trend_sessions"`
	PlateauTolerancePct float64 `yaml:"plateau_tolerance_pct"`
	DeloadAfterSessions int     `yaml:"deload_after_sessions"`
	IncreasePct         float64 `yaml:"increase_pct"`
	DeloadPct           float64 `yaml:"deload_pct"`
	WeightStep          float64 `yaml:"weight_step"`
	Timezone            string  `yaml:"timezone"` // IANA name for session days, default UTC
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps the configured level name to a slog.Level. Unknown names are Info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RecoveryParams converts the section to estimator params.
func (r RecoveryConfig) RecoveryParams() recovery.Params {
	p := recovery.DefaultParams()
	if r.HalfLifeHours > 0 {
		p.HalfLife = time.Duration(r.HalfLifeHours * float64(time.Hour))
	}
	if r.OverworkedThreshold > 0 {
		p.OverworkedThreshold = r.OverworkedThreshold
	}
	if r.OptimalLowerBound > 0 {
		p.OptimalLowerBound = r.OptimalLowerBound
	}
	if r.SetFatiguePercent > 0 {
		p.SetFatiguePercent = r.SetFatiguePercent
	}
	if r.ReferenceVolume > 0 {
		p.ReferenceVolume = r.ReferenceVolume
	}
	if r.BodyMassKg > 0 {
		p.BodyMass = r.BodyMassKg
	}
	if r.LookbackDays > 0 {
		p.Lookback = time.Duration(r.LookbackDays) * 24 * time.Hour
	}
	return p
}

// OverloadParams converts the section to recommender params. Percentages
// are given as whole numbers (2.5 means 2.5%).
func (o OverloadConfig) OverloadParams() (overload.Params, error) {
	p := overload.DefaultParams()
	if o.TargetRepsMin > 0 {
		p.TargetRepsMin = o.TargetRepsMin
	}
	if o.TargetRepsMax > 0 {
		p.TargetRepsMax = o.TargetRepsMax
	}
	if o.TrendSessions > 0 {
		p.TrendSessions = o.TrendSessions
	}
	if o.PlateauTolerancePct > 0 {
		p.PlateauTolerance = o.PlateauTolerancePct / 100
	}
	if o.DeloadAfterSessions > 0 {
		p.DeloadAfterSessions = o.DeloadAfterSessions
	}
	if o.IncreasePct > 0 {
		p.IncreasePercent = o.IncreasePct / 100
	}
	if o.DeloadPct > 0 {
		p.DeloadPercent = o.DeloadPct / 100
	}
	if o.WeightStep > 0 {
		p.WeightStep = o.WeightStep
	}
	if o.Timezone != "" {
		loc, err := time.LoadLocation(o.Timezone)
		if err != nil {
			return p, fmt.Errorf("overload.timezone: %w", err)
		}
		p.Location = loc
	}
	return p, nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIFTLOG_ and underscore-separated paths:
//
//	LIFTLOG_SERVER_HOST, LIFTLOG_SERVER_PORT, LIFTLOG_LOG_LEVEL,
//	LIFTLOG_DB_DRIVER, LIFTLOG_DB_HOST, LIFTLOG_DB_PORT, LIFTLOG_DB_NAME,
//	LIFTLOG_DB_USER, LIFTLOG_DB_PASSWORD, LIFTLOG_DB_SSLMODE, LIFTLOG_DB_PATH,
//	LIFTLOG_AUTH_API_KEY, LIFTLOG_TAILSCALE_ENABLED, LIFTLOG_TAILSCALE_HOSTNAME,
//	LIFTLOG_CATALOG_PATH
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIFTLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LIFTLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LIFTLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LIFTLOG_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("LIFTLOG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("LIFTLOG_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("LIFTLOG_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("LIFTLOG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("LIFTLOG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("LIFTLOG_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("LIFTLOG_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LIFTLOG_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("LIFTLOG_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("LIFTLOG_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("LIFTLOG_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case "", DriverPostgres:
		c.Database.Driver = DriverPostgres
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported (postgres, sqlite)", c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if r := c.Recovery; r.OverworkedThreshold != 0 || r.OptimalLowerBound != 0 {
		p := r.RecoveryParams()
		if p.OptimalLowerBound >= p.OverworkedThreshold || p.OverworkedThreshold > 100 {
			return fmt.Errorf("recovery: need 0 < optimal_lower_bound < overworked_threshold <= 100")
		}
	}
	if o := c.Overload; o.TargetRepsMin > 0 && o.TargetRepsMax > 0 && o.TargetRepsMin > o.TargetRepsMax {
		return fmt.Errorf("overload: target_reps_min must not exceed target_reps_max")
	}
	if _, err := c.Overload.OverloadParams(); err != nil {
		return err
	}
	return nil
}
