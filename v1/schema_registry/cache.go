package schema_registry

import "sync"

// Cache is a pool of registry clients keyed by base URL. Reader instances
// are often short-lived (one per inbound message batch); sharing one Client
// per registry address across them means a schema ID already resolved by
// any reader is never fetched again for the process lifetime.
//
// Cache is an explicit object rather than a package-level global so tests
// can substitute an isolated instance. Shared gives access to the default
// process-wide instance.
type Cache struct {
	mu      sync.Mutex
	clients map[string]*Client
}

// NewCache returns an empty, isolated client cache.
func NewCache() *Cache {
	return &Cache{clients: make(map[string]*Client)}
}

// Get returns the client for the configured base URL, creating it on first
// use. The first caller for a URL wins; later callers share its client and
// its schema cache regardless of their own auth or timeout settings.
func (c *Cache) Get(config Config) (*Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[config.URL]; ok {
		return client, nil
	}
	client, err := NewClient(config)
	if err != nil {
		return nil, err
	}
	c.clients[config.URL] = client
	return client, nil
}

var defaultCache = NewCache()

// Shared returns a client from the default process-wide cache. It lives
// until process exit; entries are never evicted since published schemas
// are immutable.
func Shared(config Config) (*Client, error) {
	return defaultCache.Get(config)
}
