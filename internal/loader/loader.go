package loader

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BatchFunc fetches the values for a batch of keys in one round trip. The
// returned value slice must be index-aligned with keys. The error slice may
// be nil (no failures), hold a single element (one error failing the whole
// batch), or be index-aligned with keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// Config holds the batching parameters shared by the loaders of one request
type Config struct {
	// Ctx is the owning request's context, passed to every batch fetch
	Ctx context.Context
	// Wait is how long to collect keys before issuing the fetch
	Wait time.Duration
	// MaxBatch caps the keys per fetch, 0 for unlimited
	MaxBatch int
}

// Loader batches and caches lookups for one entity family within a single
// request. All Load calls issued while a batch is collecting are coalesced
// into one fetch, keys deduplicated by structural equality. Resolved values
// are memoized for the loader's lifetime; fetch failures are not, so a
// failed batch does not poison later lookups of the same keys.
//
// A Loader is owned by exactly one request and must be discarded with it.
type Loader[K comparable, V any] struct {
	ctx      context.Context
	fetch    BatchFunc[K, V]
	wait     time.Duration
	maxBatch int

	cache map[K]V
	batch *loaderBatch[K, V]
	mu    sync.Mutex
}

type loaderBatch[K comparable, V any] struct {
	keys    []K
	index   map[K]int
	data    []V
	errors  []error
	closing bool
	done    chan struct{}
}

// New creates a request-scoped loader around a batch fetch function
func New[K comparable, V any](cfg Config, fetch BatchFunc[K, V]) *Loader[K, V] {
	wait := cfg.Wait
	if wait == 0 {
		wait = 2 * time.Millisecond
	}
	return &Loader[K, V]{
		ctx:      cfg.Ctx,
		fetch:    fetch,
		wait:     wait,
		maxBatch: cfg.MaxBatch,
	}
}

// Load fetches the value for a key, blocking until the batch it joined
// resolves
func (l *Loader[K, V]) Load(key K) (V, error) {
	return l.LoadThunk(key)()
}

// LoadThunk queues the key and returns a function that blocks until the
// value is available. Queueing many keys before forcing any thunk puts them
// all in the same batch.
func (l *Loader[K, V]) LoadThunk(key K) func() (V, error) {
	l.mu.Lock()
	if v, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return func() (V, error) { return v, nil }
	}
	if l.batch == nil {
		l.batch = &loaderBatch[K, V]{index: make(map[K]int), done: make(chan struct{})}
	}
	b := l.batch
	pos := b.keyIndex(l, key)
	l.mu.Unlock()

	return func() (V, error) {
		<-b.done

		var v V
		if pos < len(b.data) {
			v = b.data[pos]
		}

		var err error
		switch {
		case len(b.errors) == 1:
			// a single error fails the whole batch
			err = b.errors[0]
		case b.errors != nil:
			err = b.errors[pos]
		}

		if err == nil {
			l.mu.Lock()
			l.unsafeSet(key, v)
			l.mu.Unlock()
		}

		return v, err
	}
}

// LoadAll fetches the values for a set of keys, all coalesced into the same
// batch
func (l *Loader[K, V]) LoadAll(keys []K) ([]V, []error) {
	thunks := make([]func() (V, error), len(keys))
	for i, key := range keys {
		thunks[i] = l.LoadThunk(key)
	}

	values := make([]V, len(keys))
	errors := make([]error, len(keys))
	for i, thunk := range thunks {
		values[i], errors[i] = thunk()
	}
	return values, errors
}

// Prime stores a value in the cache if the key is not already present.
// Lets list queries seed the by-id cache with rows they already hold.
func (l *Loader[K, V]) Prime(key K, value V) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, found := l.cache[key]; found {
		return false
	}
	l.unsafeSet(key, value)
	return true
}

// Clear drops a key from the cache
func (l *Loader[K, V]) Clear(key K) {
	l.mu.Lock()
	delete(l.cache, key)
	l.mu.Unlock()
}

func (l *Loader[K, V]) unsafeSet(key K, value V) {
	if l.cache == nil {
		l.cache = make(map[K]V)
	}
	l.cache[key] = value
}

// keyIndex returns the key's position in the batch, adding it if needed.
// The first key added arms the batch timer; reaching maxBatch dispatches
// immediately.
func (b *loaderBatch[K, V]) keyIndex(l *Loader[K, V], key K) int {
	if pos, ok := b.index[key]; ok {
		return pos
	}

	pos := len(b.keys)
	b.keys = append(b.keys, key)
	b.index[key] = pos

	if pos == 0 {
		go b.startTimer(l)
	}

	if l.maxBatch != 0 && pos >= l.maxBatch-1 {
		if !b.closing {
			b.closing = true
			l.batch = nil
			go b.end(l)
		}
	}

	return pos
}

func (b *loaderBatch[K, V]) startTimer(l *Loader[K, V]) {
	time.Sleep(l.wait)
	l.mu.Lock()

	// the batch already dispatched by filling up
	if b.closing {
		l.mu.Unlock()
		return
	}

	l.batch = nil
	l.mu.Unlock()

	b.end(l)
}

func (b *loaderBatch[K, V]) end(l *Loader[K, V]) {
	b.data, b.errors = l.fetch(l.ctx, b.keys)
	if len(b.errors) != 1 && b.data != nil && len(b.data) != len(b.keys) {
		b.errors = []error{fmt.Errorf("batch fetch returned %d results for %d keys", len(b.data), len(b.keys))}
	}
	close(b.done)
}
