package fetcher

import (
	"context"

	"github.com/shelf-tools/gleaner/internal/types"
)

// Fetcher is the interface for page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given URL.
	Fetch(ctx context.Context, url string) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

var _ Fetcher = (*HTTPFetcher)(nil)
