package cache

import (
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"

	"github.com/xeptore/ikala/ikala"
)

var DefaultMetadataTTL = 24 * time.Hour

// Cache holds the singer ID metadata loaded per root data directory. Keying
// by directory lets callers work against several corpus copies at once
// without clobbering each other's mapping.
type Cache struct {
	Metadata MetadataCache
}

func New() *Cache {
	metadataCache := ccache.New(
		ccache.Configure[*ikala.Metadata]().
			MaxSize(16).
			GetsPerPromote(3).
			ItemsToPrune(1),
	)

	return &Cache{
		Metadata: MetadataCache{
			c:   metadataCache,
			mux: sync.Mutex{},
		},
	}
}

type MetadataCache struct {
	c   *ccache.Cache[*ikala.Metadata]
	mux sync.Mutex
}

func (c *MetadataCache) Fetch(k string, ttl time.Duration, fetch func() (*ikala.Metadata, error)) (*ccache.Item[*ikala.Metadata], error) {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.c.Fetch(k, ttl, fetch)
}
