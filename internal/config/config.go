// Package config loads server and client settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// AccessTokenEnv names the environment variable holding the API access code
const AccessTokenEnv = "WSDOT_ACCESS_TOKEN"

// Config holds everything cmd/server needs
type Config struct {
	Port           string
	LogLevel       string
	AccessCode     string
	WSDOTBaseURL   string
	WSFBaseURL     string
	UpdateInterval time.Duration
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
	MaxConcurrent  int
	ValidateSchema bool
	Subscriptions  []string
}

// Default returns the settings used when nothing overrides them
func Default() Config {
	return Config{
		Port:           "8080",
		LogLevel:       "info",
		WSDOTBaseURL:   "https://wsdot.wa.gov",
		WSFBaseURL:     "https://www.wsdot.wa.gov",
		UpdateInterval: 30 * time.Second,
		RequestTimeout: 30 * time.Second,
		RateLimit:      10,
		RateBurst:      5,
		MaxConcurrent:  4,
		ValidateSchema: true,
	}
}

type fileConfig struct {
	Port           string   `toml:"port"`
	LogLevel       string   `toml:"log_level"`
	AccessCode     string   `toml:"access_code"`
	WSDOTBaseURL   string   `toml:"wsdot_base_url"`
	WSFBaseURL     string   `toml:"wsf_base_url"`
	UpdateInterval string   `toml:"update_interval"`
	RequestTimeout string   `toml:"request_timeout"`
	RateLimit      float64  `toml:"rate_limit"`
	RateBurst      int      `toml:"rate_burst"`
	MaxConcurrent  int      `toml:"max_concurrent"`
	Validate       bool     `toml:"validate"`
	Subscriptions  []string `toml:"subscriptions"`
}

// Load reads path over the defaults, then applies the environment. An empty
// path skips the file.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg, getenv)
	return cfg, nil
}

func loadToml(path string, cfg *Config) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %s", undecoded[0])
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("access_code") {
		cfg.AccessCode = strings.TrimSpace(raw.AccessCode)
	}
	if meta.IsDefined("wsdot_base_url") {
		cfg.WSDOTBaseURL = strings.TrimRight(strings.TrimSpace(raw.WSDOTBaseURL), "/")
	}
	if meta.IsDefined("wsf_base_url") {
		cfg.WSFBaseURL = strings.TrimRight(strings.TrimSpace(raw.WSFBaseURL), "/")
	}
	if meta.IsDefined("update_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.UpdateInterval))
		if err != nil {
			return fmt.Errorf("parse update_interval: %w", err)
		}
		cfg.UpdateInterval = d
	}
	if meta.IsDefined("request_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RequestTimeout))
		if err != nil {
			return fmt.Errorf("parse request_timeout: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if meta.IsDefined("rate_limit") {
		cfg.RateLimit = raw.RateLimit
	}
	if meta.IsDefined("rate_burst") {
		cfg.RateBurst = raw.RateBurst
	}
	if meta.IsDefined("max_concurrent") {
		cfg.MaxConcurrent = raw.MaxConcurrent
	}
	if meta.IsDefined("validate") {
		cfg.ValidateSchema = raw.Validate
	}
	if meta.IsDefined("subscriptions") {
		cfg.Subscriptions = normalizeSubscriptions(raw.Subscriptions)
	}
	return nil
}

// ApplyEnv overrides settings from the environment
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	if code := strings.TrimSpace(getenv(AccessTokenEnv)); code != "" {
		cfg.AccessCode = code
	}
}

func normalizeSubscriptions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate reports the first setting that cannot work
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.AccessCode == "" {
		return fmt.Errorf("access code required (set access_code or %s)", AccessTokenEnv)
	}
	for name, raw := range map[string]string{"wsdot_base_url": c.WSDOTBaseURL, "wsf_base_url": c.WSFBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s %q is not an absolute URL", name, raw)
		}
	}
	if c.UpdateInterval <= 0 {
		return errors.New("update_interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("rate_limit and rate_burst must be positive")
	}
	if c.MaxConcurrent <= 0 {
		return errors.New("max_concurrent must be positive")
	}
	for _, s := range c.Subscriptions {
		if api, fn, ok := strings.Cut(s, "/"); !ok || api == "" || fn == "" {
			return fmt.Errorf("subscription %q must be api/function", s)
		}
	}
	return nil
}
