package fetcher

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached is a read-through cache over another Fetcher. Entries are keyed by
// content address, so a hit can never serve mismatched bytes: the address
// pins the content. Safe for concurrent readers.
type Cached struct {
	inner Fetcher
	cache *lru.Cache[string, []byte]
}

// NewCached wraps inner with an LRU cache holding up to size documents.
func NewCached(inner Fetcher, size int) (*Cached, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	return &Cached{inner: inner, cache: cache}, nil
}

// Fetch returns the cached bytes for address, fetching through on a miss.
// Failures are never cached. Callers always receive their own copy so a
// mutation cannot poison the cached entry.
func (c *Cached) Fetch(ctx context.Context, address string) ([]byte, error) {
	if cached, ok := c.cache.Get(address); ok {
		return clone(cached), nil
	}

	body, err := c.inner.Fetch(ctx, address)
	if err != nil {
		return nil, err
	}

	c.cache.Add(address, clone(body))

	return body, nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
