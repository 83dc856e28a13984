package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// GeocodeConfig controls the geocoding provider client
type GeocodeConfig struct {
	// BaseURL points at a Nominatim-compatible endpoint; empty means the
	// public instance
	BaseURL string `yaml:"baseURL,omitempty" validate:"omitempty,url"`

	// RequestIntervalMS is the minimum delay between provider calls
	RequestIntervalMS int `yaml:"requestIntervalMS,omitempty" validate:"omitempty,min=0"`

	// Concurrency bounds parallel candidate evaluation during a search
	Concurrency int `yaml:"concurrency,omitempty" validate:"omitempty,min=1,max=16"`
}

// RequestInterval returns the configured interval as a duration
func (g GeocodeConfig) RequestInterval() time.Duration {
	return time.Duration(g.RequestIntervalMS) * time.Millisecond
}

// LocationConfig controls actor location acquisition
type LocationConfig struct {
	// LookupURL is an IP-geolocation endpoint; empty disables the lookup
	// step of the fallback chain
	LookupURL string `yaml:"lookupURL,omitempty" validate:"omitempty,url"`

	// DefaultLat/DefaultLon is the fixed coordinate substituted when both
	// the cache and the lookup fail
	DefaultLat float64 `yaml:"defaultLat" validate:"min=-90,max=90"`
	DefaultLon float64 `yaml:"defaultLon" validate:"min=-180,max=180"`
}

// Config represents the application configuration
type Config struct {
	DatabaseURL string         `yaml:"databaseURL" validate:"required"`
	Geocode     GeocodeConfig  `yaml:"geocode,omitempty"`
	Location    LocationConfig `yaml:"location"`
	GmailUserID string         `yaml:"gmailUserID" validate:"required"`
	GmailSender string         `yaml:"gmailSender,omitempty"`
	ListenAddr  string         `yaml:"listenAddr,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LoadWithEnv loads and validates the configuration for an environment.
// For example, env="test" looks for "crewfinder_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// findConfigFile searches for the config file in the current directory and
// the user's home directory
func findConfigFile(env string) (string, error) {
	configFileName := "crewfinder_config.yaml"
	if env != "" {
		configFileName = "crewfinder_config." + env + ".yaml"
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
