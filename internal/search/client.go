package search

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gen-art/marketplace-api/internal/adapter"
	"github.com/gen-art/marketplace-api/internal/domain"
)

// DEFAULT_LIMIT caps a search when the caller does not provide one
const DEFAULT_LIMIT = 50

// Index names one searchable entity family on the search service
type Index string

const (
	IndexCollections Index = "collections"
	IndexIterations  Index = "iterations"
	IndexUsers       Index = "users"
	IndexArticles    Index = "articles"
)

// Client defines the interface for the full-text search collaborator. It
// returns identity strings ranked by relevance; the query engine restricts
// its result set to them and can reproduce the ranking.
//
// The index is eventually consistent and best effort, but a transport
// failure must surface as an error: silently returning nothing would let a
// filtered query fall through unfiltered.
type Client interface {
	// SearchCollections searches the collection index, returning ranked
	// serialized composite ids
	SearchCollections(ctx context.Context, query string, limit int) ([]string, error)
	// SearchIterations searches the iteration index
	SearchIterations(ctx context.Context, query string, limit int) ([]string, error)
	// SearchUsers searches the user index, returning ranked account addresses
	SearchUsers(ctx context.Context, query string, limit int) ([]string, error)
	// SearchArticles searches the article index, returning ranked article ids
	SearchArticles(ctx context.Context, query string, limit int) ([]string, error)
}

// searchResponse is the search service's wire format
type searchResponse struct {
	Hits []struct {
		ID string `json:"id"`
	} `json:"hits"`
}

// httpClient implements Client against the search service's HTTP API
type httpClient struct {
	http    adapter.HTTPClient
	baseURL string
}

// NewClient creates a search client for the service at baseURL
func NewClient(http adapter.HTTPClient, baseURL string) Client {
	return &httpClient{http: http, baseURL: baseURL}
}

func (c *httpClient) SearchCollections(ctx context.Context, query string, limit int) ([]string, error) {
	return c.search(ctx, IndexCollections, query, limit)
}

func (c *httpClient) SearchIterations(ctx context.Context, query string, limit int) ([]string, error) {
	return c.search(ctx, IndexIterations, query, limit)
}

func (c *httpClient) SearchUsers(ctx context.Context, query string, limit int) ([]string, error) {
	return c.search(ctx, IndexUsers, query, limit)
}

func (c *httpClient) SearchArticles(ctx context.Context, query string, limit int) ([]string, error) {
	return c.search(ctx, IndexArticles, query, limit)
}

// search queries one index with bounded retries. Retry exhaustion surfaces
// domain.ErrSearchUnavailable so callers can map it to a service error
// instead of answering with an unfiltered result set.
func (c *httpClient) search(ctx context.Context, index Index, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DEFAULT_LIMIT
	}

	endpoint := fmt.Sprintf("%s/indexes/%s/search?q=%s&limit=%d",
		c.baseURL, index, url.QueryEscape(query), limit)

	var resp searchResponse
	operation := func() error {
		return c.http.Get(ctx, endpoint, &resp)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %s index: %v", domain.ErrSearchUnavailable, index, err)
	}

	ids := make([]string, len(resp.Hits))
	for i, hit := range resp.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}
