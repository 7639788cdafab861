package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/search"
)

// fakeHTTPClient serves canned JSON bodies and records the requested URLs
type fakeHTTPClient struct {
	mu   sync.Mutex
	urls []string
	body string
	err  error
}

func (f *fakeHTTPClient) Get(ctx context.Context, url string, result interface{}) error {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.body), result)
}

func (f *fakeHTTPClient) Post(ctx context.Context, url string, contentType string, body io.Reader) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHTTPClient) Head(ctx context.Context, url string) (*nethttp.Response, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeHTTPClient) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	urls := make([]string, len(f.urls))
	copy(urls, f.urls)
	return urls
}

func TestClient_SearchCollections(t *testing.T) {
	http := &fakeHTTPClient{
		body: `{"hits":[{"id":"1-9"},{"id":"1-3"},{"id":"0-7"}]}`,
	}
	client := search.NewClient(http, "http://search.local")

	ids, err := client.SearchCollections(context.Background(), "fractal dreams", 25)

	require.NoError(t, err)
	assert.Equal(t, []string{"1-9", "1-3", "0-7"}, ids)

	urls := http.requested()
	require.Len(t, urls, 1)
	assert.Equal(t, "http://search.local/indexes/collections/search?q=fractal+dreams&limit=25", urls[0])
}

func TestClient_DefaultsLimit(t *testing.T) {
	http := &fakeHTTPClient{body: `{"hits":[]}`}
	client := search.NewClient(http, "http://search.local")

	ids, err := client.SearchUsers(context.Background(), "alice", 0)

	require.NoError(t, err)
	assert.Empty(t, ids)

	urls := http.requested()
	require.Len(t, urls, 1)
	assert.Contains(t, urls[0], "/indexes/users/search?")
	assert.Contains(t, urls[0], "limit=50")
}

func TestClient_SurfacesUnavailability(t *testing.T) {
	http := &fakeHTTPClient{err: errors.New("connection refused")}
	client := search.NewClient(http, "http://search.local")

	// Bound the retry loop through the context so the test stays fast
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	ids, err := client.SearchIterations(ctx, "glitch", 10)

	assert.Nil(t, ids)
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	http := &fakeHTTPClient{err: errors.New("connection refused")}
	client := search.NewClient(http, "http://search.local")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = client.SearchArticles(ctx, "essay", 10)
	}()

	<-done
	assert.GreaterOrEqual(t, len(http.requested()), 2)
}
