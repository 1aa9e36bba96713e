package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/newslens/newslens/pkg/models"
)

// MemoryStore keeps history in process memory. Entries are copied on Put and
// Get so callers cannot mutate stored state.
type MemoryStore struct {
	cache      *gocache.Cache
	maxEntries int
}

// NewMemoryStore creates an in-memory store. ttl <= 0 disables expiry,
// maxEntries <= 0 disables the size cap.
func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 10 * time.Minute
	}
	return &MemoryStore{
		cache:      gocache.New(expiration, cleanup),
		maxEntries: maxEntries,
	}
}

// Get returns the entry for url, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, url string) (*models.HistoryItem, error) {
	v, ok := s.cache.Get(url)
	if !ok {
		return nil, ErrNotFound
	}
	item, ok := v.(models.HistoryItem)
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

// Put stores or replaces the entry for item.URL, evicting the oldest
// entries when the size cap is exceeded.
func (s *MemoryStore) Put(_ context.Context, item *models.HistoryItem) error {
	if item == nil || item.URL == "" {
		return fmt.Errorf("history: item needs a URL")
	}
	s.cache.Set(item.URL, *item, gocache.DefaultExpiration)
	s.evictOldest()
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *MemoryStore) Recent(_ context.Context, limit int) ([]models.HistoryItem, error) {
	items := s.entries()
	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Delete removes the entry for url.
func (s *MemoryStore) Delete(_ context.Context, url string) error {
	s.cache.Delete(url)
	return nil
}

// Clear removes all entries.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.cache.Flush()
	return nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStore) Close() error { return nil }

// evictOldest trims the store back down to maxEntries, dropping the entries
// with the oldest timestamps first.
func (s *MemoryStore) evictOldest() {
	if s.maxEntries <= 0 {
		return
	}
	over := s.cache.ItemCount() - s.maxEntries
	if over <= 0 {
		return
	}
	items := s.entries()
	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	for i := 0; i < over && i < len(items); i++ {
		s.cache.Delete(items[i].URL)
	}
}

func (s *MemoryStore) entries() []models.HistoryItem {
	raw := s.cache.Items()
	items := make([]models.HistoryItem, 0, len(raw))
	for _, it := range raw {
		if item, ok := it.Object.(models.HistoryItem); ok {
			items = append(items, item)
		}
	}
	return items
}
