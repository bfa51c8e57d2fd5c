package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"orderbook-aggregator/internal/depth"
)

type Config struct {
	Port              int          `yaml:"port"`
	Levels            int          `yaml:"levels"`
	MergePolicy       string       `yaml:"merge_policy"`
	Pair              string       `yaml:"pair"`
	StaleAfterSeconds int          `yaml:"stale_after_seconds"`
	LogLevel          string       `yaml:"log_level"`
	Venues            VenuesConfig `yaml:"venues"`
	Redis             RedisConfig  `yaml:"redis"`
}

type VenuesConfig struct {
	Bitstamp VenueConfig `yaml:"bitstamp"`
	Binance  VenueConfig `yaml:"binance"`
}

type VenueConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Depth   int    `yaml:"depth"` // levels kept per side from each snapshot
}

// RedisConfig enables the Redis publisher when Addr is set.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Key        string `yaml:"key"`
	Channel    string `yaml:"channel"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

func defaults() Config {
	return Config{
		Port:              8086,
		Levels:            10,
		MergePolicy:       "distinct",
		Pair:              "ethbtc",
		StaleAfterSeconds: 10,
		LogLevel:          "info",
		Venues: VenuesConfig{
			Bitstamp: VenueConfig{Enabled: true, URL: "wss://ws.bitstamp.net", Depth: 10},
			Binance:  VenueConfig{Enabled: true, URL: "wss://stream.binance.com:9443/ws", Depth: 10},
		},
		Redis: RedisConfig{
			Key:        "orderbook:view",
			Channel:    "orderbook:views",
			TTLSeconds: 30,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("invalid port")
	}
	if c.Levels < 1 {
		return errors.New("levels must be >=1")
	}
	policy, err := depth.ParseMergePolicy(c.MergePolicy)
	if err != nil {
		return fmt.Errorf("merge_policy: %w", err)
	}
	c.MergePolicy = policy.String()
	c.Pair = strings.ToLower(strings.TrimSpace(c.Pair))
	if c.Pair == "" {
		return errors.New("pair required")
	}
	if c.StaleAfterSeconds < 1 {
		return errors.New("stale_after_seconds must be >=1")
	}
	enabled := 0
	for _, v := range depth.Venues() {
		vc := c.Venue(v)
		if !vc.Enabled {
			continue
		}
		enabled++
		if vc.URL == "" {
			return fmt.Errorf("venues.%s.url required", v)
		}
		if vc.Depth < 1 {
			return fmt.Errorf("venues.%s.depth must be >=1", v)
		}
	}
	if enabled == 0 {
		return errors.New("at least one venue must be enabled")
	}
	if c.Redis.Addr != "" && c.Redis.TTLSeconds < 1 {
		return errors.New("redis.ttl_seconds must be >=1")
	}
	if c.Redis.Addr != "" && strings.TrimSpace(c.Redis.Key) == "" {
		return errors.New("redis.key required when redis.addr is set")
	}
	return nil
}

// Venue returns the settings block for v.
func (c Config) Venue(v depth.Venue) VenueConfig {
	switch v {
	case depth.Bitstamp:
		return c.Venues.Bitstamp
	case depth.Binance:
		return c.Venues.Binance
	}
	return VenueConfig{}
}

// Policy is the validated merge policy.
func (c Config) Policy() depth.MergePolicy {
	p, _ := depth.ParseMergePolicy(c.MergePolicy)
	return p
}

func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSeconds) * time.Second
}

func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
