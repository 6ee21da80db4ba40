// Package cache holds the in-process caches used by remote workbook readers.
package cache

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Stats counts lookups served by a cache.
type Stats struct {
	Hits   int
	Misses int
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Errors from load are returned as-is and nothing is cached.
func GetOrLoad[T any](c Cache[T], key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}
