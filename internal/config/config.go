package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gkiss/odp-extremes-service/internal/clock"
	"github.com/gkiss/odp-extremes-service/internal/schema"
	"github.com/gkiss/odp-extremes-service/internal/validation"
)

// DefaultFeedBaseURL is the HungaroMet ODP daily synoptic report directory.
const DefaultFeedBaseURL = "https://odp.met.hu/weather/weather_reports/synoptic/hungary/daily/csv"

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	FeedBaseURL    string
	FeedTimeout    time.Duration
	FeedLegacyName bool // request HABP_1D_<date>.zip instead of .csv.zip (deprecated feed form)

	RequestTimeout  time.Duration
	CoalesceTimeout time.Duration

	CacheTTL     time.Duration
	CacheBackend string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout time.Duration

	WarmCache    bool
	WarmInterval time.Duration

	// EarliestDate is the oldest date the API accepts; zero disables the bound.
	EarliestDate time.Time

	// SchemaTokens overrides the recognized-header vocabulary. Empty lists
	// keep the defaults.
	SchemaTokens schema.Tokens
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Feed struct {
		BaseURL    string `yaml:"base_url"`
		Timeout    string `yaml:"timeout"`
		LegacyName bool   `yaml:"legacy_name"`
	} `yaml:"feed"`

	Request struct {
		Timeout         string `yaml:"timeout"`
		CoalesceTimeout string `yaml:"coalesce_timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Warm         bool   `yaml:"warm"`
		WarmInterval string `yaml:"warm_interval"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Dates struct {
		Earliest string `yaml:"earliest"`
	} `yaml:"dates"`

	Schema schema.Tokens `yaml:"schema"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), then
// applies env overrides. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.FeedBaseURL = strings.TrimSpace(os.Getenv("FEED_BASE_URL"))
	if cfg.FeedBaseURL == "" {
		cfg.FeedBaseURL = strings.TrimSpace(fc.Feed.BaseURL)
	}
	if cfg.FeedBaseURL == "" {
		cfg.FeedBaseURL = DefaultFeedBaseURL
	}
	cfg.FeedTimeout = parseDuration(fc.Feed.Timeout, 30*time.Second)
	cfg.FeedLegacyName = fc.Feed.LegacyName

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 35*time.Second)
	cfg.CoalesceTimeout = parseDuration(fc.Request.CoalesceTimeout, 40*time.Second)

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 15*time.Minute)
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.WarmCache = fc.Cache.Warm
	cfg.WarmInterval = parseDuration(fc.Cache.WarmInterval, 30*time.Minute)

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS < 0 {
		cfg.RateLimitRPS = 0
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 2 * cfg.RateLimitRPS
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	// The bound must live in the feed zone or Budapest midnight of the
	// earliest day itself lands before a UTC-parsed bound.
	if s := strings.TrimSpace(fc.Dates.Earliest); s != "" {
		d, err := time.ParseInLocation(validation.DateFormat, s, clock.FeedZone())
		if err != nil {
			return nil, fmt.Errorf("dates.earliest: %w", err)
		}
		cfg.EarliestDate = d
	}

	cfg.SchemaTokens = fc.Schema

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. The request timeout must outlast a
// full feed fetch or every cold-cache request dies at the middleware.
func validate(cfg *Config) error {
	if cfg.FeedTimeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.FeedTimeout {
		cfg.RequestTimeout = cfg.FeedTimeout + 5*time.Second
	}
	if cfg.CoalesceTimeout <= cfg.FeedTimeout {
		cfg.CoalesceTimeout = cfg.FeedTimeout + 10*time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	return nil
}
