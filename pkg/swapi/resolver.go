package swapi

import (
	"context"
	"fmt"

	"github.com/Sternrassler/swapi-loader/pkg/logging"
	"github.com/rs/zerolog"
)

// JSONFetcher fetches a URL and decodes its JSON body into v.
// *client.Client implements it.
type JSONFetcher interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Resolver maps reference URLs to display labels.
type Resolver struct {
	fetcher JSONFetcher
	logger  zerolog.Logger
}

// NewResolver creates a resolver on top of fetcher.
func NewResolver(fetcher JSONFetcher) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		logger:  logging.NewLogger("resolver"),
	}
}

// Resolve returns the label of the resource at url.
// An empty url resolves to Unknown without a request. Error documents
// without title or name (e.g. a 404 body) also resolve to Unknown.
func (r *Resolver) Resolve(ctx context.Context, url string) (string, error) {
	if url == "" {
		return Unknown, nil
	}

	var res Resource
	if err := r.fetcher.GetJSON(ctx, url, &res); err != nil {
		return "", fmt.Errorf("resolve %s: %w", url, err)
	}

	label := res.Label()
	r.logger.Debug().Str("url", url).Str("label", label).Msg("Reference resolved")
	return label, nil
}
