package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/GoCodeAlone/workflow-plugin-soap/wsdl"
)

// CatalogCache stores parsed catalogs per configuration session.
type CatalogCache interface {
	// Get returns the cached catalog for locator within session, and whether
	// it was found.
	Get(ctx context.Context, session, locator string) (*wsdl.Catalog, bool, error)
	// Set stores a catalog. ttl applies to the whole session and is refreshed
	// on every Set.
	Set(ctx context.Context, session, locator string, cat *wsdl.Catalog, ttl time.Duration) error
	// Invalidate drops every catalog of a session.
	Invalidate(ctx context.Context, session string) error
}

type memorySession struct {
	expires  time.Time
	catalogs map[string]*wsdl.Catalog
}

// MemoryCache is a process-local CatalogCache.
type MemoryCache struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	now      func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{sessions: make(map[string]*memorySession), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, session, locator string) (*wsdl.Catalog, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[session]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(s.expires) {
		delete(c.sessions, session)
		return nil, false, nil
	}
	cat, ok := s.catalogs[locator]
	return cat, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, session, locator string, cat *wsdl.Catalog, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[session]
	if !ok || c.now().After(s.expires) {
		s = &memorySession{catalogs: make(map[string]*wsdl.Catalog)}
		c.sessions[session] = s
	}
	s.catalogs[locator] = cat
	s.expires = c.now().Add(ttl)
	c.sweepLocked()
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, session string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, session)
	return nil
}

func (c *MemoryCache) sweepLocked() {
	now := c.now()
	for id, s := range c.sessions {
		if now.After(s.expires) {
			delete(c.sessions, id)
		}
	}
}
