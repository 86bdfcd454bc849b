package shapefile

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/couchcryptid/water-accounting-dashboard/internal/cache"
)

// Cache keeps parsed layers keyed by the SHA-256 of the uploaded archive.
type Cache struct {
	layers *cache.LRU[string, *Layer]
	logger *slog.Logger
}

// NewCache creates a layer cache holding at most size layers.
func NewCache(size int, logger *slog.Logger) *Cache {
	return &Cache{layers: cache.NewLRU[string, *Layer](size), logger: logger}
}

// Load returns the layer for data and its content key, parsing the archive
// on a cache miss. Layers are shared and must not be modified.
func (c *Cache) Load(data []byte) (*Layer, string, error) {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if layer, ok := c.layers.Get(key); ok {
		return layer, key, nil
	}
	layer, err := ReadZip(data, c.logger)
	if err != nil {
		return nil, "", err
	}
	c.layers.Put(key, layer)
	return layer, key, nil
}

// Get returns a previously loaded layer by key.
func (c *Cache) Get(key string) (*Layer, bool) {
	return c.layers.Get(key)
}
