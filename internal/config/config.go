// Package config is the configuration shared by the catalog CLI and service.
package config

import (
	"catalogmatch/internal/components/telemetry"
	"catalogmatch/internal/configutil"
	"catalogmatch/internal/fetcher"
	"catalogmatch/internal/matcher"
	"catalogmatch/internal/restyutil"
	"catalogmatch/internal/retry"
	"catalogmatch/internal/storefront"
	"catalogmatch/internal/ttlcache"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const DefaultPath = "catalog.json5"

type StorefrontConfig struct {
	SearchEndpoint string `json:"search_endpoint"`
	DetailEndpoint string `json:"detail_endpoint"`
	CountryCode    string `json:"country_code"`
	Language       string `json:"language"`
	// Coalesce makes concurrent lookups of the same uncached key share one resolution.
	Coalesce bool `json:"coalesce"`
}

type CacheConfig struct {
	TTLSeconds int `json:"ttl_seconds"`
	// MaxEntries of zero leaves the cache unbounded.
	MaxEntries int `json:"max_entries"`
	// SweepCron is a cron spec (ex. "@every 10m") on which expired entries are
	// removed, SweepOff disables the sweep. Empty falls back to the default.
	SweepCron string `json:"sweep_cron"`
}

const SweepOff = "off"

// SweepSchedule returns the cron spec of the periodic cache sweep and whether
// one should be scheduled at all.
func (c CacheConfig) SweepSchedule() (string, bool) {
	spec := strings.TrimSpace(c.SweepCron)
	if spec == "" || strings.EqualFold(spec, SweepOff) {
		return "", false
	}
	return spec, true
}

type FetcherConfig struct {
	MaxAttempts       int     `json:"max_attempts"`
	BaseDelayMs       int     `json:"base_delay_ms"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
}

type MatcherConfig struct {
	Threshold float64 `json:"threshold"`
}

type Config struct {
	Storefront StorefrontConfig `json:"storefront"`
	Cache      CacheConfig      `json:"cache"`
	Fetcher    FetcherConfig    `json:"fetcher"`
	Matcher    MatcherConfig    `json:"matcher"`
	// Port is the port catalogd listens on.
	Port int `json:"port"`
}

func Defaults() Config {
	return Config{
		Storefront: StorefrontConfig{
			SearchEndpoint: storefront.DefaultSearchEndpoint,
			DetailEndpoint: storefront.DefaultDetailEndpoint,
			CountryCode:    storefront.DefaultCountryCode,
			Language:       storefront.DefaultLanguage,
		},
		Cache: CacheConfig{
			TTLSeconds: int(ttlcache.DefaultTTL / time.Second),
			SweepCron:  "@every 10m",
		},
		Fetcher: FetcherConfig{
			MaxAttempts:    retry.DefaultMaxAttempts,
			BaseDelayMs:    int(retry.DefaultBaseDelay / time.Millisecond),
			TimeoutSeconds: int(fetcher.DefaultTimeout / time.Second),
		},
		Matcher: MatcherConfig{
			Threshold: matcher.DefaultThreshold,
		},
		Port: 8080,
	}
}

// Load reads the json5 file at path (and its .local override), zero fields
// are filled from Defaults. A missing file yields Defaults.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Config{}, err
	}
	cfg, err = configutil.WithDefaults(cfg, Defaults())
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Matcher.Threshold < 0 || c.Matcher.Threshold > 1 {
		errs = append(errs, fmt.Errorf("matcher.threshold must be within [0, 1], got %v", c.Matcher.Threshold))
	}
	if c.Fetcher.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("fetcher.max_attempts must be at least 1, got %d", c.Fetcher.MaxAttempts))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries must not be negative, got %d", c.Cache.MaxEntries))
	}
	if c.Fetcher.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("fetcher.requests_per_second must not be negative, got %v", c.Fetcher.RequestsPerSecond))
	}
	return errors.Join(errs...)
}

func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Fetcher.MaxAttempts,
		BaseDelay:   time.Duration(c.Fetcher.BaseDelayMs) * time.Millisecond,
		Backoff:     retry.Linear,
	}
}

func (c Config) FetcherOptions() fetcher.Options {
	return fetcher.Options{
		Policy:            c.RetryPolicy(),
		Timeout:           time.Duration(c.Fetcher.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.Fetcher.RequestsPerSecond,
		CloudflareBypass:  c.Fetcher.CloudflareBypass,
	}
}

func (c Config) CacheOptions() ttlcache.Options {
	return ttlcache.Options{
		TTL:        time.Duration(c.Cache.TTLSeconds) * time.Second,
		MaxEntries: c.Cache.MaxEntries,
	}
}

func (c Config) StorefrontOptions() storefront.Options {
	return storefront.Options{
		SearchEndpoint: c.Storefront.SearchEndpoint,
		DetailEndpoint: c.Storefront.DetailEndpoint,
		CountryCode:    c.Storefront.CountryCode,
		Language:       c.Storefront.Language,
		Threshold:      c.Matcher.Threshold,
		Coalesce:       c.Storefront.Coalesce,
	}
}

// NewClient wires a storefront client with its own fetcher and cache. dump
// may be nil.
func (c Config) NewClient(tel telemetry.API, dump restyutil.Output) *storefront.Client {
	fetcherOpts := c.FetcherOptions()
	fetcherOpts.Dump = dump
	return storefront.New(
		c.StorefrontOptions(),
		fetcher.New(fetcherOpts, tel),
		ttlcache.New[storefront.Cached](c.CacheOptions()),
		tel,
	)
}
