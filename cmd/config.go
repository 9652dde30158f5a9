package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teemow/calslot/internal/availability"
	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/google"
)

const envPrefix = "CALSLOT"

// Transports supported by serve.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the resolved calslot configuration.
type Config struct {
	// Timezone is the IANA name of the reference time zone. Empty selects the
	// calendar's own time zone (Google) or the local one (iCalendar).
	Timezone string `mapstructure:"timezone"`

	DurationMinutes   int `mapstructure:"duration_minutes"`
	SearchDays        int `mapstructure:"search_days"`
	WorkingHoursStart int `mapstructure:"working_hours_start"`
	WorkingHoursEnd   int `mapstructure:"working_hours_end"`

	// Source is "google" or "ics".
	Source     string `mapstructure:"source"`
	CalendarID string `mapstructure:"calendar_id"`
	ICSURL     string `mapstructure:"ics_url"`
	OwnerEmail string `mapstructure:"owner_email"`

	Google GoogleConfig `mapstructure:"google"`
	Cache  CacheConfig  `mapstructure:"cache"`

	Transport  string  `mapstructure:"transport"`
	HTTPAddr   string  `mapstructure:"http_addr"`
	RateLimit  float64 `mapstructure:"rate_limit"`
	RateBurst  int     `mapstructure:"rate_burst"`
	TrustProxy bool    `mapstructure:"trust_proxy"`

	Metrics MetricsConfig `mapstructure:"metrics"`

	Debug bool `mapstructure:"debug"`
}

// GoogleConfig holds Google Calendar API settings.
type GoogleConfig struct {
	// TokenDir holds the per-account token files.
	TokenDir          string  `mapstructure:"token_dir"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CacheConfig selects the event cache.
type CacheConfig struct {
	Type     string        `mapstructure:"type"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	defaults := availability.DefaultSearchParameters()

	v.SetDefault("timezone", "")
	v.SetDefault("duration_minutes", defaults.DurationMinutes)
	v.SetDefault("search_days", defaults.SearchDays)
	v.SetDefault("working_hours_start", defaults.WorkingHoursStart)
	v.SetDefault("working_hours_end", defaults.WorkingHoursEnd)

	v.SetDefault("source", calendar.SourceGoogle)
	v.SetDefault("calendar_id", "primary")
	v.SetDefault("ics_url", "")
	v.SetDefault("owner_email", "")

	v.SetDefault("google.token_dir", "")
	v.SetDefault("google.requests_per_second", 5)
	v.SetDefault("google.burst", 10)

	v.SetDefault("cache.type", CacheNone)
	v.SetDefault("cache.ttl", 2*time.Minute)
	v.SetDefault("cache.redis_url", "")

	v.SetDefault("transport", TransportStdio)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_burst", 0)
	v.SetDefault("trust_proxy", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("debug", false)
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"timezone":        "timezone",
	"duration":        "duration_minutes",
	"days":            "search_days",
	"start":           "working_hours_start",
	"end":             "working_hours_end",
	"source":          "source",
	"calendar-id":     "calendar_id",
	"ics-url":         "ics_url",
	"owner-email":     "owner_email",
	"token-dir":       "google.token_dir",
	"cache":           "cache.type",
	"cache-ttl":       "cache.ttl",
	"redis-url":       "cache.redis_url",
	"transport":       "transport",
	"http-addr":       "http_addr",
	"rate-limit":      "rate_limit",
	"rate-burst":      "rate_burst",
	"trust-proxy":     "trust_proxy",
	"metrics-enabled": "metrics.enabled",
	"metrics-addr":    "metrics.addr",
	"debug":           "debug",
}

// newViper returns a viper instance with defaults and CALSLOT_* environment
// lookup. Nested keys map to underscores, e.g. cache.ttl to CALSLOT_CACHE_TTL.
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// bindFlags binds the flags of flags that have a configuration key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

// readConfigFile reads path, or searches for config.yaml when path is empty.
// A missing config file is only an error when it was named explicitly.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "calslot"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// loadConfig resolves the configuration for a command from its flags, the
// environment and the config file.
func loadConfig(flags *pflag.FlagSet, path string) (Config, error) {
	v := newViper()
	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return Config{}, fmt.Errorf("failed to bind flags: %w", err)
		}
	}
	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
	}
	return decodeConfig(v)
}

func decodeConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SearchDefaults returns the configured search parameters.
func (c Config) SearchDefaults() availability.SearchParameters {
	return availability.SearchParameters{
		DurationMinutes:   c.DurationMinutes,
		SearchDays:        c.SearchDays,
		WorkingHoursStart: c.WorkingHoursStart,
		WorkingHoursEnd:   c.WorkingHoursEnd,
	}
}

// TokenProvider returns the token store for the configured directory.
func (c Config) TokenProvider() *google.FileTokenProvider {
	if c.Google.TokenDir != "" {
		return google.NewFileTokenProviderInDir(c.Google.TokenDir)
	}
	return google.NewFileTokenProvider()
}

// Location returns the configured reference location, or nil when none is set.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	var errs []error

	if err := c.SearchDefaults().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	switch c.Source {
	case calendar.SourceGoogle:
	case calendar.SourceICS:
		if c.ICSURL == "" {
			errs = append(errs, fmt.Errorf("ics_url is required for the %s source", calendar.SourceICS))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported source %q (supported: %s, %s)", c.Source, calendar.SourceGoogle, calendar.SourceICS))
	}

	switch c.Cache.Type {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, fmt.Errorf("cache.redis_url is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported cache type %q (supported: %s, %s, %s)", c.Cache.Type, CacheNone, CacheMemory, CacheRedis))
	}
	if c.Cache.Type != CacheNone && c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL))
	}

	switch c.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		errs = append(errs, fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", c.Transport, TransportStdio, TransportStreamableHTTP))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative"))
	}

	return errors.Join(errs...)
}
