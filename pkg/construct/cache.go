package construct

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"librarian/pkg/confidence"
)

// CacheConfig controls memoization of construction results.
type CacheConfig[In any] struct {
	// TTL is how long a stored entry stays live. Expired entries are
	// detected lazily on the next read of the same key, not swept.
	TTL time.Duration

	// MaxEntries bounds the cache. Zero means unbounded. When an insertion
	// would exceed the bound, the oldest-inserted entry is evicted first.
	MaxEntries int

	// KeyGenerator derives the cache key from the input. Nil defaults to
	// the structural JSON serialization of the input.
	KeyGenerator func(In) (string, error)
}

type cacheEntry[Out any] struct {
	result     *Result[Out]
	insertedAt time.Time
}

type cacheConstruction[In, Out any] struct {
	inner  Construction[In, Out]
	config CacheConfig[In]

	mu      sync.Mutex
	entries map[string]*cacheEntry[Out]
	order   []string // insertion order, oldest first
	now     func() time.Time
}

// WithCache memoizes a construction's results keyed by input. Hits return a
// copy of the stored result annotated with a cache:hit evidence entry; the
// wrapped construction is not re-executed while the entry is live.
//
// The lock only guards the map. Concurrent misses on the same key may both
// execute the wrapped construction; last write wins. Single-flight
// de-duplication is deliberately not provided.
func WithCache[In, Out any](inner Construction[In, Out], config CacheConfig[In]) Construction[In, Out] {
	return &cacheConstruction[In, Out]{
		inner:   inner,
		config:  config,
		entries: make(map[string]*cacheEntry[Out]),
		now:     time.Now,
	}
}

func (c *cacheConstruction[In, Out]) ID() string   { return "cache:" + c.inner.ID() }
func (c *cacheConstruction[In, Out]) Name() string { return c.inner.Name() + " (cached)" }

func (c *cacheConstruction[In, Out]) Execute(ctx context.Context, input In) (*Result[Out], error) {
	key, err := c.key(input)
	if err != nil {
		return nil, &Error{ConstructionID: c.inner.ID(), Msg: "cache key generation failed", Err: err}
	}

	if cached := c.lookup(key); cached != nil {
		out := cached.Clone()
		out.EvidenceRefs = append(out.EvidenceRefs, "cache:hit:"+keyPrefix(key))
		return out, nil
	}

	result, err := c.inner.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	c.store(key, result)

	out := result.Clone()
	out.EvidenceRefs = append(out.EvidenceRefs, "cache:miss:"+keyPrefix(key))
	return out, nil
}

func (c *cacheConstruction[In, Out]) EstimatedConfidence() confidence.Value {
	return estimateOf(c.inner)
}

func (c *cacheConstruction[In, Out]) key(input In) (string, error) {
	if c.config.KeyGenerator != nil {
		return c.config.KeyGenerator(input)
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// lookup returns the live entry for key, removing it if expired.
func (c *cacheConstruction[In, Out]) lookup(key string) *Result[Out] {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().Sub(entry.insertedAt) >= c.config.TTL {
		delete(c.entries, key)
		c.dropFromOrder(key)
		return nil
	}
	return entry.result
}

func (c *cacheConstruction[In, Out]) store(key string, result *Result[Out]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.dropFromOrder(key)
	} else if c.config.MaxEntries > 0 && len(c.entries) >= c.config.MaxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &cacheEntry[Out]{result: result.Clone(), insertedAt: c.now()}
	c.order = append(c.order, key)
}

func (c *cacheConstruction[In, Out]) dropFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func keyPrefix(key string) string {
	const n = 16
	if len(key) <= n {
		return key
	}
	return key[:n]
}
