package intake

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/catalog"
)

// Order in which the built-in filters run.
var builtinOrder = []string{NonEmptyFilterName, ValidURLFilterName, DuplicateFilterName}

// Settings is the configuration view the chain needs.
type Settings interface {
	IsFilterEnabled(name string) bool
	GetFilterSettings(name string) map[string]any
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig builds the chain from the enabled built-in filters.
// playlist may be nil, in which case the duplicate filter is skipped.
func NewChainFromConfig(cfg Settings, playlist PlaylistView) (*Chain, error) {
	c := NewChain()
	for _, name := range builtinOrder {
		if !cfg.IsFilterEnabled(name) {
			zlog.Debug().Msgf("intake: filter disabled: name=%s", name)
			continue
		}

		var f Filter
		if name == DuplicateFilterName {
			if playlist == nil {
				continue
			}
			f = NewDuplicateFilter(playlist)
		} else {
			f = registry[name]()
		}

		if err := f.ValidateConfig(cfg.GetFilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		c.Add(f)
	}
	return c, nil
}

// ValidateConfig validates the settings of every enabled registered filter.
func ValidateConfig(cfg Settings) error {
	for _, name := range RegisteredNames() {
		if !cfg.IsFilterEnabled(name) {
			continue
		}
		f := registry[name]()
		if err := f.ValidateConfig(cfg.GetFilterSettings(name)); err != nil {
			return errors.Wrapf(err, "filter %s", name)
		}
	}
	return nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute parses input and runs all filters in sequence.
// Returns immediately if any filter rejects the input.
func (c *Chain) Execute(ctx context.Context, input string) Result {
	req := NewRequest(input)
	for _, f := range c.filters {
		result := f.Check(ctx, req)
		if !result.Accepted {
			zlog.Debug().Msgf("intake: rejected: filter=%s code=%s", f.Name(), result.Code)
			return result
		}
	}
	if req.VideoID == "" {
		return Reject(CodeInvalidURL)
	}
	return Result{Accepted: true, VideoID: req.VideoID}
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

// NewRequest parses input into a request.
func NewRequest(input string) Request {
	req := Request{Input: input}
	if id, ok := catalog.ExtractVideoID(input); ok {
		req.VideoID = id
		return req
	}
	if id, err := catalog.ParseVideoRef(input); err == nil {
		req.VideoID = id
		req.Bare = true
	}
	return req
}
