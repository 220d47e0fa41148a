package intake

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"
)

// ValidURLFilterName is the config name of ValidURLFilter.
const ValidURLFilterName = "valid_url_filter"

// CodeInvalidURL is returned when no video ID can be parsed from the input.
const CodeInvalidURL = "invalid_url"

// ValidURLConfig represents the configuration for ValidURLFilter.
type ValidURLConfig struct {
	RequireURL bool     `yaml:"require_url" mapstructure:"require_url"`
	Hosts      []string `yaml:"hosts" mapstructure:"hosts" validate:"dive,hostname"`
}

// ValidURLFilter checks that a video ID can be extracted from the input.
type ValidURLFilter struct {
	config *ValidURLConfig
}

// NewValidURLFilter creates a new valid URL filter.
func NewValidURLFilter() *ValidURLFilter {
	return &ValidURLFilter{}
}

func (f *ValidURLFilter) Name() string {
	return ValidURLFilterName
}

func (f *ValidURLFilter) Description() string {
	return "Rejects input without a YouTube video ID"
}

func (f *ValidURLFilter) ReturnCodes() []string {
	return []string{CodeInvalidURL}
}

func (f *ValidURLFilter) ValidateConfig(settings map[string]any) error {
	var config ValidURLConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = &config
	zlog.Debug().Msgf("intake: valid url filter config: %+v", config)
	return nil
}

func (f *ValidURLFilter) Check(ctx context.Context, req Request) Result {
	if req.VideoID == "" {
		return Reject(CodeInvalidURL)
	}
	if f.config == nil {
		return Accept()
	}
	if req.Bare && f.config.RequireURL {
		return Reject(CodeInvalidURL)
	}
	if !req.Bare && len(f.config.Hosts) > 0 && !f.matchesHost(req.Input) {
		return Reject(CodeInvalidURL)
	}
	return Accept()
}

func (f *ValidURLFilter) matchesHost(input string) bool {
	lower := strings.ToLower(input)
	for _, host := range f.config.Hosts {
		if strings.Contains(lower, strings.ToLower(host)) {
			return true
		}
	}
	return false
}

func init() {
	Register(ValidURLFilterName, func() Filter {
		return &ValidURLFilter{}
	})
}
