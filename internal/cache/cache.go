package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"docsync/internal/analysis"
	"docsync/internal/logging"
)

// Entry is one cached analysis, valid only for its exact fingerprint.
type Entry struct {
	Path        string           `json:"path"`
	Fingerprint string           `json:"fingerprint"`
	Outcome     analysis.Outcome `json:"outcome"`
	StoredAt    time.Time        `json:"stored_at"`
}

// Stats summarizes cache effectiveness.
type Stats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// Cache is the two-layer analysis cache. The store may be nil for a purely
// in-memory cache.
type Cache struct {
	entries *lru.Cache[string, Entry]
	store   *Store
	logger  *slog.Logger

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// New builds a cache with capacity maxEntries, warming it from the store
// when one is provided.
func New(maxEntries int, store *Store, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	entries, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		entries: entries,
		store:   store,
		logger:  logger.With(logging.String(logging.FieldComponent, "cache")),
	}
	if store != nil {
		persisted, err := store.LoadAll(context.Background())
		if err != nil {
			return nil, err
		}
		// LoadAll is newest first; adding in reverse keeps the newest
		// entries at the warm end of the LRU.
		for i := len(persisted) - 1; i >= 0; i-- {
			c.entries.Add(persisted[i].Path, persisted[i])
		}
		if len(persisted) > 0 {
			c.logger.Info("cache warmed from store", logging.Int("entries", len(persisted)))
		}
	}
	return c, nil
}

// Get returns the cached outcome for path when its fingerprint matches
// exactly. Any mismatch counts as a miss and evicts the stale entry.
func (c *Cache) Get(ctx context.Context, path, fingerprint string) (*analysis.Outcome, bool) {
	entry, ok := c.entries.Get(path)
	if !ok {
		c.count(false)
		return nil, false
	}
	if entry.Fingerprint != fingerprint {
		c.entries.Remove(path)
		if c.store != nil {
			if err := c.store.Delete(ctx, path); err != nil {
				c.logger.Warn("evict stale entry", logging.String(logging.FieldPath, path), logging.Error(err))
			}
		}
		c.count(false)
		return nil, false
	}

	c.count(true)
	outcome := entry.Outcome
	outcome.FromCache = true
	outcome.StoredAt = entry.StoredAt
	return &outcome, true
}

// Put stores an outcome for a path, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, path, fingerprint string, outcome analysis.Outcome) error {
	entry := Entry{
		Path:        path,
		Fingerprint: fingerprint,
		Outcome:     outcome,
		StoredAt:    time.Now().UTC(),
	}
	c.entries.Add(path, entry)
	if c.store != nil {
		return c.store.Upsert(ctx, entry)
	}
	return nil
}

// Invalidate drops a single path.
func (c *Cache) Invalidate(ctx context.Context, path string) error {
	c.entries.Remove(path)
	if c.store != nil {
		return c.store.Delete(ctx, path)
	}
	return nil
}

// Clear drops everything.
func (c *Cache) Clear(ctx context.Context) error {
	c.entries.Purge()
	if c.store != nil {
		return c.store.DeleteAll(ctx)
	}
	return nil
}

// Stats reports counters since process start.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	hits, misses := c.hits, c.misses
	c.mu.Unlock()

	stats := Stats{
		Entries: c.entries.Len(),
		Hits:    hits,
		Misses:  misses,
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
}
