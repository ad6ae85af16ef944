package resilience

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ResultCache stores serialized upstream results with a per-entry TTL.
// Implementations must never serve an entry past its expiry.
type ResultCache interface {
	// Get returns the cached payload for key, or ok=false on a miss
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)

	// Set stores payload under key for the given TTL
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Clear drops every cached entry
	Clear(ctx context.Context) error

	// Close releases background resources
	Close() error
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCache is an in-process ResultCache with periodic cleanup of
// expired entries.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	logger    *zap.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	clock     func() time.Time
}

// MemoryCacheOption customizes a MemoryCache
type MemoryCacheOption func(*MemoryCache)

// WithMemoryCacheLogger sets the cache logger
func WithMemoryCacheLogger(logger *zap.Logger) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.logger = logger
	}
}

// WithMemoryCacheClock overrides the time source, used in tests
func WithMemoryCacheClock(clock func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		c.clock = clock
	}
}

// NewMemoryCache creates an in-memory cache and starts its cleanup loop.
// cleanupInterval <= 0 disables background cleanup; expired entries are
// still never served.
func NewMemoryCache(cleanupInterval time.Duration, opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		entries:  make(map[string]memoryEntry),
		logger:   zap.NewNop(),
		stopChan: make(chan struct{}),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanupLoop(cleanupInterval)
	}
	return c
}

// Get implements ResultCache
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.expired(c.clock()) {
		return nil, false, nil
	}
	return entry.payload, true, nil
}

// Set implements ResultCache
func (c *MemoryCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{
		payload:   payload,
		expiresAt: c.clock().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Clear implements ResultCache
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Close stops the cleanup loop
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
	return nil
}

// Len reports the number of stored entries, expired or not
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopChan:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	now := c.clock()

	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("removed expired cache entries", zap.Int("count", removed))
	}
}
