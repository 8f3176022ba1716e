package llm

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds completed responses keyed by request fingerprint, evicting
// by LRU pressure or TTL, whichever fires first.
type Cache struct {
	lru *expirable.LRU[string, *Response]
}

// NewCache builds a cache of at most size entries living for ttl.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 256
	}
	return &Cache{
		lru: expirable.NewLRU[string, *Response](size, nil, ttl),
	}
}

func (c *Cache) Get(key string) (*Response, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

func (c *Cache) Put(key string, resp *Response) {
	if c == nil {
		return
	}
	c.lru.Add(key, resp)
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
