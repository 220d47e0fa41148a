// Package mpv implements the widget backend on top of mpv's JSON IPC.
// Each widget is one mpv process playing one YouTube URL through yt-dlp.
package mpv

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Config represents the mpv backend settings.
type Config struct {
	Binary         string        `yaml:"binary" mapstructure:"binary" default:"mpv" validate:"required"`
	SocketDir      string        `yaml:"socket_dir" mapstructure:"socket_dir"`
	Video          bool          `yaml:"video" mapstructure:"video"`
	Format         string        `yaml:"format" mapstructure:"format" default:"bestaudio/best"`
	ExtraArgs      []string      `yaml:"extra_args" mapstructure:"extra_args"`
	StartTimeout   time.Duration `yaml:"start_timeout" mapstructure:"start_timeout" default:"5s" validate:"gt=0"`
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout" default:"2s" validate:"gt=0"`
}

// DecodeConfig builds a Config from free-form backend settings.
func DecodeConfig(settings map[string]any) (Config, error) {
	var config Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &config,
		TagName:    "mapstructure",
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return Config{}, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, errors.Wrap(err, "validation failed")
	}
	return config, nil
}
