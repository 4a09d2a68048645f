package sensei

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
)

// Cache stores raw response bodies keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is a cached response body. Backends keep it until ExpiresAt;
// after StaleAt it may only be served once the server confirms its ETag.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	StaleAt   time.Time `json:"stale_at,omitzero"`
	ETag      string    `json:"etag,omitempty"`
}

// Expired reports whether the entry is past its expiry.
func (e *CacheEntry) Expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// Fresh reports whether the entry can be served without asking the server.
func (e *CacheEntry) Fresh() bool {
	return !e.Expired() && (e.StaleAt.IsZero() || time.Now().Before(e.StaleAt))
}

// CacheOptions are settings shared by every backend.
type CacheOptions struct {
	// TTL is how long responses stay fresh. Backends drop entries once it has
	// passed, plus the revalidation window when EnableETags is set.
	TTL time.Duration
	// MaxSize bounds the memory backend when CacheConfig.Memory leaves it unset.
	MaxSize int
	// EnableETags keeps entries carrying an ETag past their TTL and
	// revalidates them with If-None-Match.
	EnableETags bool
}

// DefaultCacheOptions returns the default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		TTL:         constants.DefaultCacheTTL,
		MaxSize:     constants.DefaultCacheSize,
		EnableETags: true,
	}
}

// retention is the longest a backend should keep an entry. Zero means no cap.
func (o *CacheOptions) retention() time.Duration {
	if o.TTL <= 0 {
		return 0
	}

	if o.EnableETags {
		return o.TTL + constants.DefaultCacheRevalidateWindow
	}

	return o.TTL
}

// Policy returns the default caching policy with the options' TTL and ETag
// revalidation applied.
func (o *CacheOptions) Policy() *CachingPolicy {
	policy := DefaultCachingPolicy()
	if o == nil {
		return policy
	}

	if o.TTL > 0 {
		policy.TTL = o.TTL
	}

	if !o.EnableETags {
		policy.Revalidate = 0
	}

	return policy
}

// MemoryCache is a bounded in-process cache. When full, the entry closest to
// expiry is evicted.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	maxSize int
	maxAge  time.Duration
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	return newMemoryCache(maxSize, 0)
}

// newMemoryCache also caps every entry's lifetime at maxAge when it is positive.
func newMemoryCache(maxSize int, maxAge time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		maxAge:  maxAge,
	}
}

// Get returns a live entry or ErrCacheMiss.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.Expired() {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}

	return entry, nil
}

// Set stores entry under key.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}

	if c.maxAge > 0 {
		limit := time.Now().Add(c.maxAge)
		if entry.ExpiresAt.IsZero() || entry.ExpiresAt.After(limit) {
			capped := *entry
			capped.ExpiresAt = limit
			entry = &capped
		}
	}

	c.entries[key] = entry

	return nil
}

func (c *MemoryCache) evictLocked() {
	var (
		victim string
		soon   time.Time
	)

	for key, entry := range c.entries {
		if entry.Expired() {
			delete(c.entries, key)

			return
		}

		if victim == "" || entry.ExpiresAt.Before(soon) {
			victim = key
			soon = entry.ExpiresAt
		}
	}

	delete(c.entries, victim)
}

// Delete removes key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)

	return nil
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.Expired() {
			delete(c.entries, key)
		}
	}
}

// CacheStats counts cache activity.
type CacheStats struct {
	Hits          int64
	Misses        int64
	Sets          int64
	Invalidations int64
	Revalidations int64
}

// GetHitRate returns hits / (hits + misses).
func (s *CacheStats) GetHitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// CachingPolicy decides which responses are cached.
type CachingPolicy struct {
	CacheGET    bool
	CacheErrors bool
	TTL         time.Duration
	// Revalidate keeps entries with an ETag this long past TTL so they can be
	// revalidated with If-None-Match. Zero disables revalidation.
	Revalidate   time.Duration
	IncludePaths []string
	ExcludePaths []string
}

// DefaultCachingPolicy caches successful GETs except payment and webhook delivery data.
func DefaultCachingPolicy() *CachingPolicy {
	return &CachingPolicy{
		CacheGET:     true,
		TTL:          constants.DefaultCacheTTL,
		Revalidate:   constants.DefaultCacheRevalidateWindow,
		ExcludePaths: []string{"partner/payments", "partner/webhooks"},
	}
}

// ShouldCache reports whether a response for method/path/status may be stored.
func (p *CachingPolicy) ShouldCache(method, path string, status int) bool {
	if method != http.MethodGet || !p.CacheGET {
		return false
	}

	if status < 200 || status >= 300 {
		if !p.CacheErrors {
			return false
		}
	}

	path = strings.Trim(path, "/")

	for _, excluded := range p.ExcludePaths {
		if strings.HasPrefix(path, strings.Trim(excluded, "/")) {
			return false
		}
	}

	if len(p.IncludePaths) == 0 {
		return true
	}

	for _, included := range p.IncludePaths {
		if strings.HasPrefix(path, strings.Trim(included, "/")) {
			return true
		}
	}

	return false
}

// CacheManager layers key building, statistics and path invalidation over a Cache.
type CacheManager struct {
	cache  Cache
	logger Logger

	mu   sync.Mutex
	keys map[string]trackedKey

	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64
	revalidations atomic.Int64
}

type trackedKey struct {
	scope string
	path  string
}

// NewCacheManager wraps cache. A nil cache disables caching; a nil logger discards logs.
func NewCacheManager(cache Cache, logger Logger) *CacheManager {
	if cache == nil {
		cache = NewNoOpCache()
	}

	if logger == nil {
		logger = NoopLogger{}
	}

	return &CacheManager{
		cache:  cache,
		logger: logger,
		keys:   make(map[string]trackedKey),
	}
}

// CacheScope identifies whose view of the API a response belongs to. It
// digests the base URL, tenant and credentials so secrets never appear in keys.
func CacheScope(cfg *Config) string {
	if cfg == nil {
		return ""
	}

	identity := strings.Join([]string{cfg.BaseURL(), cfg.Tenant(), cfg.APIKey(), cfg.BearerToken()}, "\x00")
	sum := sha256.Sum256([]byte(identity))

	return hex.EncodeToString(sum[:12])
}

// GetCacheKey returns "scope@METHOD:path[:encoded-query]". An empty scope is left out.
func (m *CacheManager) GetCacheKey(scope, method, path string, query url.Values) string {
	key := method + ":/" + strings.Trim(path, "/")
	if len(query) > 0 {
		key += ":" + query.Encode()
	}

	if scope == "" {
		return key
	}

	return scope + "@" + key
}

// Get returns fresh cached data for key.
func (m *CacheManager) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := m.cache.Get(ctx, key)
	if err != nil {
		m.misses.Add(1)

		return nil, err
	}

	if !entry.Fresh() {
		m.misses.Add(1)

		return nil, fmt.Errorf("%w: %s is stale", ErrCacheMiss, key)
	}

	m.hits.Add(1)

	return entry.Data, nil
}

// Set stores data under key for ttl.
func (m *CacheManager) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return m.SetWithETag(ctx, key, data, "", ttl, 0)
}

// SetWithETag stores data and its ETag under key for ttl. When etag is set and
// revalidate is positive the entry is kept that much longer, stale.
func (m *CacheManager) SetWithETag(ctx context.Context, key string, data []byte, etag string, ttl, revalidate time.Duration) error {
	if len(data) > constants.MaxCacheValueSize {
		m.logger.Debug("Skipping oversized cache value", map[string]interface{}{"key": key, "size": len(data)})

		return nil
	}

	now := time.Now()
	entry := &CacheEntry{
		Data:      data,
		ExpiresAt: now.Add(ttl),
		ETag:      etag,
	}

	if etag != "" && revalidate > 0 {
		entry.StaleAt = entry.ExpiresAt
		entry.ExpiresAt = entry.StaleAt.Add(revalidate)
	}

	err := m.cache.Set(ctx, key, entry)
	if err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}

	m.sets.Add(1)

	m.mu.Lock()
	m.keys[key] = parseCacheKey(key)
	m.mu.Unlock()

	return nil
}

// Lookup returns the entry for key even when it is stale. Only fresh entries
// count as hits.
func (m *CacheManager) Lookup(ctx context.Context, key string) (*CacheEntry, error) {
	entry, err := m.cache.Get(ctx, key)
	if err != nil || !entry.Fresh() {
		m.misses.Add(1)
	} else {
		m.hits.Add(1)
	}

	return entry, err //nolint:wrapcheck
}

// Revalidated stores a stale entry again after the server answered 304 Not Modified.
func (m *CacheManager) Revalidated(ctx context.Context, key string, entry *CacheEntry, ttl, revalidate time.Duration) error {
	m.revalidations.Add(1)

	return m.SetWithETag(ctx, key, entry.Data, entry.ETag, ttl, revalidate)
}

// InvalidatePath removes every tracked entry of scope whose path equals, lies
// under or contains path.
func (m *CacheManager) InvalidatePath(ctx context.Context, scope, path string) {
	prefix := "/" + strings.Trim(path, "/")

	m.mu.Lock()

	var doomed []string

	for key, tracked := range m.keys {
		if tracked.scope != scope {
			continue
		}

		p := tracked.path
		if p == prefix || strings.HasPrefix(p, prefix+"/") || strings.HasPrefix(prefix, p+"/") {
			doomed = append(doomed, key)
			delete(m.keys, key)
		}
	}

	m.mu.Unlock()

	for _, key := range doomed {
		err := m.cache.Delete(ctx, key)
		if err != nil {
			m.logger.Warn("Failed to invalidate cache entry", map[string]interface{}{"key": key, "error": err.Error()})

			continue
		}

		m.invalidations.Add(1)
	}
}

// GetStats returns a snapshot of the counters.
func (m *CacheManager) GetStats() CacheStats {
	return CacheStats{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Sets:          m.sets.Load(),
		Invalidations: m.invalidations.Load(),
		Revalidations: m.revalidations.Load(),
	}
}

func parseCacheKey(key string) trackedKey {
	var tracked trackedKey

	if at := strings.Index(key, "@"); at >= 0 && at < strings.Index(key, ":") {
		tracked.scope = key[:at]
		key = key[at+1:]
	}

	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		tracked.path = key

		return tracked
	}

	tracked.path = parts[1]

	return tracked
}
