package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Port              string `json:"port" yaml:"port"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
	// Env selects the log encoder: "production" logs JSON.
	Env string `json:"env" yaml:"env"`
}

type AlphaVantage struct {
	APIKey            string `json:"api_key" yaml:"api_key"`
	Endpoint          string `json:"endpoint" yaml:"endpoint"`
	RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type View struct {
	DefaultSymbol     string `json:"default_symbol" yaml:"default_symbol"`
	DefaultWindowDays int    `json:"default_window_days" yaml:"default_window_days"`
	DefaultChart      string `json:"default_chart" yaml:"default_chart"`
	// Timezone names the location whose calendar defines "today" for the
	// trailing window. Empty means the process's local zone.
	Timezone string `json:"timezone" yaml:"timezone"`
}

type Config struct {
	Server       Server       `json:"server" yaml:"server"`
	AlphaVantage AlphaVantage `json:"alphavantage" yaml:"alphavantage"`
	View         View         `json:"view" yaml:"view"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10, Env: "development"},
		AlphaVantage: AlphaVantage{
			Endpoint:          "https://www.alphavantage.co",
			RequestTimeoutSec: 15,
		},
		View: View{
			DefaultSymbol:     "IBM",
			DefaultWindowDays: 30,
			DefaultChart:      "line",
		},
	}
}

// Load builds the config from defaults, then the file at path (JSON, or YAML
// for .yaml/.yml), then environment variables. A .env file in the working
// directory is loaded first if present. If path is empty, config.json is
// used when it exists.
func Load(path string) (Config, error) {
	cfg := Default()
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := decode(path, b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envPositiveInt("REQUEST_TIMEOUT_SEC"); ok {
		cfg.Server.RequestTimeoutSec = x
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Server.Env = v
	}

	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("ALPHAVANTAGE_ENDPOINT"); v != "" {
		cfg.AlphaVantage.Endpoint = strings.TrimRight(v, "/")
	}
	if x, ok := envPositiveInt("ALPHAVANTAGE_TIMEOUT_SEC"); ok {
		cfg.AlphaVantage.RequestTimeoutSec = x
	}

	if v := os.Getenv("DEFAULT_SYMBOL"); v != "" {
		cfg.View.DefaultSymbol = v
	}
	if x, ok := envPositiveInt("DEFAULT_WINDOW_DAYS"); ok {
		cfg.View.DefaultWindowDays = x
	}
	if v := os.Getenv("DEFAULT_CHART"); v != "" {
		cfg.View.DefaultChart = strings.ToLower(v)
	}
	if v := os.Getenv("TZ_NAME"); v != "" {
		cfg.View.Timezone = v
	}
}

// envPositiveInt reads key as a positive integer. Unset, malformed and
// non-positive values report false so the current setting is kept.
func envPositiveInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	x, err := strconv.Atoi(v)
	if err != nil || x <= 0 {
		return 0, false
	}
	return x, true
}

// Validate reports the first missing or out-of-range setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AlphaVantage.APIKey) == "" {
		return fmt.Errorf("alphavantage.api_key is required (set ALPHAVANTAGE_API_KEY)")
	}
	if c.AlphaVantage.Endpoint == "" {
		return fmt.Errorf("alphavantage.endpoint is required")
	}
	if strings.TrimSpace(c.View.DefaultSymbol) == "" {
		return fmt.Errorf("view.default_symbol is required")
	}
	switch c.View.DefaultWindowDays {
	case 7, 30, 90:
	default:
		return fmt.Errorf("view.default_window_days must be 7, 30 or 90, got %d", c.View.DefaultWindowDays)
	}
	switch c.View.DefaultChart {
	case "line", "area", "bar":
	default:
		return fmt.Errorf("view.default_chart must be line, area or bar, got %q", c.View.DefaultChart)
	}
	if c.View.Timezone != "" {
		if _, err := time.LoadLocation(c.View.Timezone); err != nil {
			return fmt.Errorf("view.timezone: %w", err)
		}
	}
	return nil
}

// Location returns the zone that defines "today", defaulting to time.Local.
func (v View) Location() *time.Location {
	if v.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
