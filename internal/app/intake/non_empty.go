package intake

import (
	"context"
	"strings"
)

// NonEmptyFilterName is the config name of NonEmptyFilter.
const NonEmptyFilterName = "non_empty_filter"

// CodeEmptyURL is returned for blank input.
const CodeEmptyURL = "empty_url"

// NonEmptyFilter rejects blank input.
type NonEmptyFilter struct{}

func (f *NonEmptyFilter) Name() string {
	return NonEmptyFilterName
}

func (f *NonEmptyFilter) Description() string {
	return "Rejects blank input"
}

func (f *NonEmptyFilter) ReturnCodes() []string {
	return []string{CodeEmptyURL}
}

func (f *NonEmptyFilter) ValidateConfig(settings map[string]any) error {
	// No configuration needed
	return nil
}

func (f *NonEmptyFilter) Check(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Input) == "" {
		return Reject(CodeEmptyURL)
	}
	return Accept()
}

func init() {
	Register(NonEmptyFilterName, func() Filter {
		return &NonEmptyFilter{}
	})
}
