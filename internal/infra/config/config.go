// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig            `yaml:"server"`
	Player    PlayerConfig            `yaml:"player"`
	Metadata  MetadataConfig          `yaml:"metadata"`
	Favorites FavoritesConfig         `yaml:"favorites"`
	Catalog   CatalogConfig           `yaml:"catalog"`
	UI        UIConfig                `yaml:"ui"`
	Filters   map[string]FilterConfig `yaml:"filters"`
	Messages  MessagesConfig          `yaml:"messages"`
}

// ServerConfig represents the remote control server configuration.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:"127.0.0.1:8719" validate:"required"`
	Token   string `yaml:"token"`
}

// PlayerConfig represents widget backend and playback configuration.
type PlayerConfig struct {
	Backend          string         `yaml:"backend" default:"mpv" validate:"oneof=mpv sim"`
	InitialVolume    float64        `yaml:"initial_volume" default:"0.7" validate:"gte=0,lte=1"`
	PollIntervalMs   int            `yaml:"poll_interval_ms" default:"500" validate:"gte=50,lte=5000"`
	ErrorSkipDelayMs int            `yaml:"error_skip_delay_ms" default:"2000" validate:"gte=0,lte=60000"`
	EndThresholdSec  float64        `yaml:"end_threshold_sec" default:"0.5" validate:"gte=0,lte=5"`
	SeekStepSec      float64        `yaml:"seek_step_sec" default:"10" validate:"gt=0,lte=600"`
	Settings         map[string]any `yaml:"settings"`
}

// MetadataConfig represents video metadata lookup configuration.
type MetadataConfig struct {
	OEmbedURL           string `yaml:"oembed_url" default:"https://www.youtube.com/oembed" validate:"url"`
	WatchURL            string `yaml:"watch_url" default:"https://www.youtube.com/watch" validate:"url"`
	TimeoutSec          int    `yaml:"timeout_sec" default:"10" validate:"gte=1,lte=120"`
	DisablePageFallback bool   `yaml:"disable_page_fallback"`
}

// FavoritesConfig represents favorites persistence configuration.
type FavoritesConfig struct {
	Store string `yaml:"store" default:"file" validate:"oneof=memory file sqlite"`
	Path  string `yaml:"path"`
}

// CatalogConfig represents the initial playlist configuration.
type CatalogConfig struct {
	EmptyStart bool     `yaml:"empty_start"`
	Videos     []string `yaml:"videos"`
}

// UIConfig represents terminal UI configuration.
type UIConfig struct {
	RotationSeconds float64 `yaml:"rotation_seconds" default:"8" validate:"gte=2,lte=20"`
	NoticeSeconds   int     `yaml:"notice_seconds" default:"3" validate:"gte=1,lte=30"`
	ShowThumbnails  bool    `yaml:"show_thumbnails"`
}

// FilterConfig represents an intake filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents user-facing notice texts.
type MessagesConfig struct {
	TrackAdded      string `yaml:"track_added" default:"Video added to playlist"`
	DuplicateTrack  string `yaml:"duplicate_track" default:"This video is already in your playlist"`
	NotReady        string `yaml:"not_ready" default:"Player is not ready yet. Please wait a moment."`
	PlaybackError   string `yaml:"playback_error" default:"Error playing video. The video might be restricted or unavailable."`
	FavoriteAdded   string `yaml:"favorite_added" default:"Added to favorites"`
	FavoriteRemoved string `yaml:"favorite_removed" default:"Removed from favorites"`
	InvalidURL      string `yaml:"invalid_url" default:"Invalid YouTube URL. Please provide a valid YouTube video link."`
	EmptyURL        string `yaml:"empty_url" default:"Please enter a YouTube URL"`
	DefaultError    string `yaml:"default_error" default:"Failed to add video"`
}

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var cfg Config
	return finish(&cfg)
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if cfg.Favorites.Path == "" && cfg.Favorites.Store != "memory" {
		path, err := DefaultFavoritesPath(cfg.Favorites.Store)
		if err != nil {
			return nil, err
		}
		cfg.Favorites.Path = path
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("VINYL_CONTROL_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("VINYL_FAVORITES_PATH"); v != "" {
		c.Favorites.Path = v
	}
	if v := os.Getenv("VINYL_PLAYER_BACKEND"); v != "" {
		c.Player.Backend = v
	}
}

// DefaultFavoritesPath returns the favorites location under the user config directory.
func DefaultFavoritesPath(store string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve user config directory")
	}
	name := "favorites.json"
	if store == "sqlite" {
		name = "favorites.db"
	}
	return filepath.Join(dir, "vinylbox", name), nil
}

// GetMessage returns the notice text for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "track_added":
		return c.Messages.TrackAdded
	case "duplicate_track":
		return c.Messages.DuplicateTrack
	case "not_ready":
		return c.Messages.NotReady
	case "playback_error":
		return c.Messages.PlaybackError
	case "favorite_added":
		return c.Messages.FavoriteAdded
	case "favorite_removed":
		return c.Messages.FavoriteRemoved
	case "invalid_url":
		return c.Messages.InvalidURL
	case "empty_url":
		return c.Messages.EmptyURL
	default:
		return c.Messages.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// PollInterval returns the position sampling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Player.PollIntervalMs) * time.Millisecond
}

// ErrorSkipDelay returns the delay before skipping a failed video.
func (c *Config) ErrorSkipDelay() time.Duration {
	return time.Duration(c.Player.ErrorSkipDelayMs) * time.Millisecond
}

// MetadataTimeout returns the metadata request timeout.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Metadata.TimeoutSec) * time.Second
}

// IsFilterEnabled checks if a filter is enabled.
// Filters without an entry are enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return true
}

// GetFilterSettings returns the settings for a filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}
