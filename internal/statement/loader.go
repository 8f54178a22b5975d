// Package statement owns the in-memory view of the transaction collection:
// fetch from the backend, sort newest-first, group by month. The view is
// rebuilt wholesale on every refetch and never patched in place, so there is
// no partial-update state to reconcile.
package statement

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"pengo/internal/cache"
	"pengo/internal/core"
)

const cacheKey = "statement"

// Source lists the authoritative transaction collection. Implemented by the
// backend API client; tests plug in fakes.
type Source interface {
	List(ctx context.Context) ([]core.Transaction, error)
}

// Statement is one immutable snapshot of the collection.
type Statement struct {
	Transactions []core.Transaction // sorted descending by date
	Grouped      core.Grouped
	FetchedAt    time.Time
}

// Loader serves statement snapshots from an LRU entry with TTL and collapses
// concurrent cache misses into a single backend fetch.
type Loader struct {
	source Source
	cache  *cache.LRU[Statement]
	group  singleflight.Group

	hits   int64
	misses int64
}

func NewLoader(source Source, ttl time.Duration) *Loader {
	return &Loader{
		source: source,
		cache:  cache.NewLRU[Statement](1, ttl),
	}
}

// Load returns the cached snapshot or fetches a fresh one. Concurrent callers
// during a miss share one fetch and one error.
func (l *Loader) Load(ctx context.Context) (Statement, error) {
	if st, ok := l.cache.Get(cacheKey); ok {
		atomic.AddInt64(&l.hits, 1)
		return st, nil
	}
	atomic.AddInt64(&l.misses, 1)

	v, err, _ := l.group.Do(cacheKey, func() (any, error) {
		txs, err := l.source.List(ctx)
		if err != nil {
			return Statement{}, fmt.Errorf("load statement: %w", err)
		}
		core.SortByDateDesc(txs)
		st := Statement{
			Transactions: txs,
			Grouped:      core.GroupByMonth(txs),
			FetchedAt:    time.Now(),
		}
		l.cache.Set(cacheKey, st)
		return st, nil
	})
	if err != nil {
		return Statement{}, err
	}
	return v.(Statement), nil
}

// Invalidate drops the snapshot; the next Load refetches. Called after every
// successful mutation so the page reload sees authoritative state.
func (l *Loader) Invalidate() {
	l.cache.Delete(cacheKey)
}

// CacheStats returns hit/miss counters for the metrics endpoint.
func (l *Loader) CacheStats() (hits, misses int64) {
	return atomic.LoadInt64(&l.hits), atomic.LoadInt64(&l.misses)
}
