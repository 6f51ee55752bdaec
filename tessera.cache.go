package tessera

import "sync"

// CacheKey identifies a compiled template by template name and the name of
// the parser that produced it. It is comparable and usable as a map key.
type CacheKey struct {
	Template string
	Parser   string
}

// String returns "parser:template".
func (k CacheKey) String() string {
	return k.Parser + ":" + k.Template
}

// TemplateCache memoizes parsed templates.
//
// FindTemplate never fails: a miss is reported through the boolean.
// StoreTemplate is an unconditional upsert. After Close every lookup is a
// miss and stores fail with a cache error.
type TemplateCache interface {
	FindTemplate(key CacheKey) (*Template, bool)
	StoreTemplate(key CacheKey, tmpl *Template) error
	InvalidateTemplate(name string) int
	Len() int
	Close() error
}

// MemoryCache is the baseline map-backed cache. It is NOT safe for
// concurrent use; wrap it in a SyncCache when renders run in parallel.
type MemoryCache struct {
	entries map[CacheKey]*Template
	closed  bool
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[CacheKey]*Template)}
}

// FindTemplate returns the cached template for key.
func (c *MemoryCache) FindTemplate(key CacheKey) (*Template, bool) {
	if c.closed {
		return nil, false
	}
	t, ok := c.entries[key]
	return t, ok
}

// StoreTemplate stores tmpl under key, replacing any previous entry.
func (c *MemoryCache) StoreTemplate(key CacheKey, tmpl *Template) error {
	if c.closed {
		return NewCacheError(ErrMsgCacheClosed, key, nil)
	}
	c.entries[key] = tmpl
	return nil
}

// InvalidateTemplate drops the entries of every parser for name and
// returns how many were removed.
func (c *MemoryCache) InvalidateTemplate(name string) int {
	removed := 0
	for key := range c.entries {
		if key.Template == name {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached templates.
func (c *MemoryCache) Len() int {
	return len(c.entries)
}

// Close drops all entries; the cache answers misses from now on.
func (c *MemoryCache) Close() error {
	c.closed = true
	c.entries = make(map[CacheKey]*Template)
	return nil
}

// SyncCache guards a MemoryCache with a read/write mutex.
type SyncCache struct {
	mu    sync.RWMutex
	inner *MemoryCache
}

// NewSyncCache creates an empty concurrency-safe cache.
func NewSyncCache() *SyncCache {
	return &SyncCache{inner: NewMemoryCache()}
}

// FindTemplate returns the cached template for key.
func (c *SyncCache) FindTemplate(key CacheKey) (*Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.FindTemplate(key)
}

// StoreTemplate stores tmpl under key, replacing any previous entry.
func (c *SyncCache) StoreTemplate(key CacheKey, tmpl *Template) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.StoreTemplate(key, tmpl)
}

// InvalidateTemplate drops the entries of every parser for name.
func (c *SyncCache) InvalidateTemplate(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.InvalidateTemplate(name)
}

// Len returns the number of cached templates.
func (c *SyncCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner.Len()
}

// Close drops all entries.
func (c *SyncCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Close()
}
