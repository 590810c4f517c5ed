package web_search

import (
	"context"

	"github.com/mohammad-safakhou/deepresearch/tools/web_search/duckduckgo"
	"github.com/mohammad-safakhou/deepresearch/tools/web_search/models"
	"github.com/mohammad-safakhou/deepresearch/tools/web_search/serpapi"
)

type WebSearcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerpAPIProvider    Provider = "serpapi"
	DuckDuckGoProvider Provider = "duckduckgo"
)

var ErrUnsupportedProvider = &Error{"unsupported provider"}

// NewWebSearcher returns a searcher for the given provider. When no provider
// is configured DuckDuckGo is used; it needs no API key.
func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case SerpAPIProvider:
		if apiKey == "" {
			return nil, &Error{"serpapi requires an api key"}
		}
		return serpapi.Search{ApiKey: apiKey}, nil
	case DuckDuckGoProvider, "":
		return duckduckgo.Search{}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
