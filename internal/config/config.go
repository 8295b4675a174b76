package config

import (
	"os"
	"strconv"
	"time"

	"popdash/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Data     DataConfig
	Database DatabaseConfig
	Logging  LoggingConfig
}

// ServerConfig holds dashboard server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// APIConfig holds settings for the standalone JSON API
type APIConfig struct {
	Port string
}

// DataConfig holds data source settings
type DataConfig struct {
	ProfilesFile   string
	DataFile       string
	DataURL        string
	DefaultProfile string
	FetchTimeout   time.Duration
	MaxUploadMB    int
}

// DatabaseConfig holds the connection used by postgres-backed profiles
type DatabaseConfig struct {
	URL string
}

// LoggingConfig holds log verbosity
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		API: APIConfig{
			Port: getEnvOrDefault("API_PORT", "8081"),
		},
		Data: DataConfig{
			ProfilesFile:   getEnvOrDefault("PROFILES_FILE", ""),
			DataFile:       getEnvOrDefault("DATA_FILE", ""),
			DataURL:        getEnvOrDefault("DATA_URL", ""),
			DefaultProfile: getEnvOrDefault("DEFAULT_PROFILE", ""),
			FetchTimeout:   getEnvDurationOrDefault("FETCH_TIMEOUT", 30*time.Second),
			MaxUploadMB:    getEnvIntOrDefault("MAX_UPLOAD_MB", 50),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT must not be empty")
	}
	if config.Data.FetchTimeout <= 0 {
		return errors.ConfigInvalid("FETCH_TIMEOUT must be positive")
	}
	if config.Data.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.Data.DataFile != "" && config.Data.DataURL != "" {
		return errors.ConfigInvalid("set only one of DATA_FILE and DATA_URL")
	}
	return nil
}

// MaxUploadBytes returns the upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Data.MaxUploadMB) * 1024 * 1024
}

// Profiles loads PROFILES_FILE, or builds a single implicit profile from
// DATA_FILE / DATA_URL. With neither set the set is empty (upload only).
func (c *Config) Profiles() (*ProfileSet, error) {
	if c.Data.ProfilesFile != "" {
		return LoadProfiles(c.Data.ProfilesFile)
	}

	set := &ProfileSet{}
	switch {
	case c.Data.DataFile != "":
		set.Profiles = append(set.Profiles, Profile{
			Name:   DefaultProfileName,
			Title:  "Population Trend by Category",
			Source: SourceConfig{Kind: SourceFile, Path: c.Data.DataFile},
		})
	case c.Data.DataURL != "":
		set.Profiles = append(set.Profiles, Profile{
			Name:   DefaultProfileName,
			Title:  "Population Trend by Category",
			Source: SourceConfig{Kind: SourceURL, URL: c.Data.DataURL},
		})
	}
	if err := set.Validate(); err != nil && err != ErrNoProfiles {
		return nil, err
	}
	return set, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
