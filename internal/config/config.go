// Package config loads service configuration from config.yaml and
// GEOSCOPE_-prefixed environment variables. Environment variables override
// file values; credentials support ${VAR} substitution so the YAML file can
// stay free of secrets.
package config

import (
	"errors"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	OpenAI   OpenAIConfig   `koanf:"openai"`
	Geo      GeoConfig      `koanf:"geo"`
	Analysis AnalysisConfig `koanf:"analysis"`
	Storage  StorageConfig  `koanf:"storage"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"` // Custom API endpoint
}

// GeoConfig holds the upstream geodata endpoints. All of them are plain
// configuration: swapping a mirror or pointing at a self-hosted instance
// never touches orchestration code.
type GeoConfig struct {
	// GeocodeURL is the Nominatim-compatible search endpoint base URL.
	GeocodeURL string `koanf:"geocode_url"`

	// UserAgent identifies this service to Nominatim, which rejects
	// anonymous clients.
	UserAgent string `koanf:"user_agent"`

	// OverpassMirrors is the ordered list of interchangeable Overpass
	// endpoints. The first mirror that answers wins.
	OverpassMirrors []string `koanf:"overpass_mirrors"`

	// ElevationURL is the Open-Elevation-compatible lookup endpoint.
	ElevationURL string `koanf:"elevation_url"`
}

type AnalysisConfig struct {
	// MaxIterations bounds the reasoning loop per run.
	MaxIterations int `koanf:"max_iterations"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load from config.yaml file first
	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider("GEOSCOPE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GEOSCOPE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.OpenAI.APIKey = substituteEnvVars(cfg.OpenAI.APIKey)

	return &cfg, nil
}

// Validate checks the parts of the configuration the service cannot run
// without. The reasoning client is constructed at startup, so a missing key
// fails here instead of on the first request.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("config: openai.api_key is required (set GEOSCOPE_OPENAI__API_KEY or openai.api_key in config.yaml)")
	}
	if len(c.Geo.OverpassMirrors) == 0 {
		return errors.New("config: geo.overpass_mirrors must list at least one endpoint")
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("openai.model") {
		k.Set("openai.model", "gpt-4o")
	}
	if !k.Exists("geo.geocode_url") {
		k.Set("geo.geocode_url", "https://nominatim.openstreetmap.org")
	}
	if !k.Exists("geo.user_agent") {
		k.Set("geo.user_agent", "geoscope/1.0")
	}
	if !k.Exists("geo.overpass_mirrors") {
		k.Set("geo.overpass_mirrors", []string{
			"https://overpass-api.de/api/interpreter",
			"https://overpass.kumi.systems/api/interpreter",
			"https://overpass.openstreetmap.fr/api/interpreter",
		})
	}
	if !k.Exists("geo.elevation_url") {
		k.Set("geo.elevation_url", "https://api.open-elevation.com/api/v1/lookup")
	}
	if !k.Exists("analysis.max_iterations") {
		k.Set("analysis.max_iterations", 6)
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "none")
	}
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
