// Package backend creates the configured widget backend.
package backend

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/app/player"
	"github.com/osa030/vinylbox/internal/infra/config"
	"github.com/osa030/vinylbox/internal/infra/mpv"
	"github.com/osa030/vinylbox/internal/infra/simplayer"
)

// Backend types.
const (
	TypeMPV = "mpv"
	TypeSim = "sim"
)

// SimSettings represents the simulated backend settings.
type SimSettings struct {
	ReadyDelay      time.Duration      `mapstructure:"ready_delay" default:"200ms" validate:"gte=0"`
	Speed           float64            `mapstructure:"speed" default:"1" validate:"gt=0,lte=100"`
	DefaultDuration time.Duration      `mapstructure:"default_duration" default:"3m" validate:"gt=0"`
	Unavailable     []string           `mapstructure:"unavailable"`
	Durations       map[string]float64 `mapstructure:"durations"`
}

// NewFromConfig creates the widget backend selected by player.backend.
func NewFromConfig(cfg *config.Config) (player.Backend, error) {
	zlog.Debug().Msgf("creating player backend: type=%s settings=%+v", cfg.Player.Backend, cfg.Player.Settings)

	switch cfg.Player.Backend {
	case TypeMPV:
		mcfg, err := mpv.DecodeConfig(cfg.Player.Settings)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create backend (type %s)", TypeMPV)
		}
		zlog.Info().Msgf("player backend: type=mpv binary=%s format=%s video=%t", mcfg.Binary, mcfg.Format, mcfg.Video)
		return mpv.New(mcfg), nil

	case TypeSim:
		scfg, err := DecodeSimConfig(cfg.Player.Settings)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create backend (type %s)", TypeSim)
		}
		zlog.Info().Msgf("player backend: type=sim speed=%.1f", scfg.Speed)
		return simplayer.New(scfg), nil

	default:
		return nil, errors.Newf("unsupported player backend: %s", cfg.Player.Backend)
	}
}

// DecodeSimConfig builds a simulated backend config from free-form settings.
// Catalog videos play for their labelled duration unless settings override it.
func DecodeSimConfig(settings map[string]any) (simplayer.Config, error) {
	var s SimSettings

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &s,
		TagName:    "mapstructure",
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return simplayer.Config{}, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return simplayer.Config{}, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&s); err != nil {
		return simplayer.Config{}, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(s); err != nil {
		return simplayer.Config{}, errors.Wrap(err, "validation failed")
	}

	durations := make(map[string]float64)
	for _, t := range catalog.DefaultVideos() {
		if d, ok := catalog.ParseTime(t.DurationLabel); ok {
			durations[t.ID] = d
		}
	}
	for id, d := range s.Durations {
		durations[id] = d
	}

	return simplayer.Config{
		Durations:       durations,
		DefaultDuration: s.DefaultDuration,
		ReadyDelay:      s.ReadyDelay,
		Speed:           s.Speed,
		Unavailable:     s.Unavailable,
	}, nil
}
