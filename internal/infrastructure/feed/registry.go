package feed

import (
	"fmt"

	"AVInsights/internal/ports"
)

// Fetcher is a source-type strategy (rss today; room for api or scrape
// sources later).
type Fetcher interface {
	ports.FeedFetcher
	Type() string
}

// Registry keeps a mapping from source types to their fetchers.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[string]Fetcher{}}
}

// Register adds or replaces a fetcher implementation.
func (r *Registry) Register(f Fetcher) {
	if r.fetchers == nil {
		r.fetchers = map[string]Fetcher{}
	}
	r.fetchers[f.Type()] = f
}

// Resolve returns a fetcher by source type or an error if it is absent.
func (r *Registry) Resolve(sourceType string) (ports.FeedFetcher, error) {
	if f, ok := r.fetchers[sourceType]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for source type %s", sourceType)
}
