package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"medorder/backend/internal/domain"
)

// DefaultDraftTTL is how long an unsaved customer form survives.
const DefaultDraftTTL = 24 * time.Hour

const draftKeyPrefix = "customer-form-draft:"

// DraftKey is the fixed per-user key of the customer form draft.
func DraftKey(userID string) string {
	return draftKeyPrefix + strings.TrimSpace(userID)
}

type DraftCache interface {
	Get(ctx context.Context, key string) (*domain.CustomerDraft, bool, error)
	Set(ctx context.Context, key string, value *domain.CustomerDraft, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	draft     domain.CustomerDraft
	expiresAt time.Time
}

// MemoryDraftCache is the in-process fallback used when Redis is not configured.
type MemoryDraftCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryDraftCache() *MemoryDraftCache {
	return &MemoryDraftCache{entries: map[string]memoryEntry{}, now: time.Now}
}

func (c *MemoryDraftCache) Get(_ context.Context, key string) (*domain.CustomerDraft, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	draft := copyDraft(entry.draft)
	return &draft, true, nil
}

func (c *MemoryDraftCache) Set(_ context.Context, key string, value *domain.CustomerDraft, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{draft: copyDraft(*value), expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryDraftCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func copyDraft(d domain.CustomerDraft) domain.CustomerDraft {
	form := make(map[string]string, len(d.Form))
	for k, v := range d.Form {
		form[k] = v
	}
	d.Form = form
	return d
}
