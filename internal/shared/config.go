package shared

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Secrets are expected to come from the process environment and override
// anything in the file; see [Config.ApplyEnv].
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials for the client-credentials flow.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// YouTubeConfig contains the YouTube Data API key pool.
//
// Keys are rotated when the current one exhausts its daily quota.
type YouTubeConfig struct {
	APIKeys []string `toml:"api_keys"`
}

// DatabaseConfig contains MongoDB connection settings.
type DatabaseConfig struct {
	URL  string `toml:"url"`
	Name string `toml:"name"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	JWTSecret string `toml:"jwt_secret"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides config values with process environment variables when set.
//
// YOUTUBE_API_KEYS is a JSON array of key strings, e.g. ["KEY_1","KEY_2"].
// A malformed value falls back to treating YOUTUBE_API_KEY as a single-key pool.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := os.Getenv("YOUTUBE_API_KEYS"); v != "" {
		var keys []string
		if err := json.Unmarshal([]byte(v), &keys); err != nil {
			if single := os.Getenv("YOUTUBE_API_KEY"); single != "" {
				c.Credentials.YouTube.APIKeys = []string{single}
			} else {
				return fmt.Errorf("%w: YOUTUBE_API_KEYS must be a JSON array of strings: %v", ErrInvalidConfig, err)
			}
		} else {
			c.Credentials.YouTube.APIKeys = keys
		}
	} else if single := os.Getenv("YOUTUBE_API_KEY"); single != "" {
		c.Credentials.YouTube.APIKeys = []string{single}
	}
	if v := os.Getenv("MONGO_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.Name = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Server.JWTSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT must be an integer: %v", ErrInvalidConfig, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks that required configuration is present for running the server.
func (c *Config) Validate() error {
	if c.Database.URL == "" || c.Database.Name == "" {
		return fmt.Errorf("%w: database url and name are required", ErrMissingConfig)
	}
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret", ErrMissingCredentials)
	}
	if len(c.Credentials.YouTube.APIKeys) == 0 {
		return fmt.Errorf("%w: at least one YouTube API key", ErrMissingCredentials)
	}
	return nil
}
