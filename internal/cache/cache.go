package cache

import "context"

// Well-known cache keys. The four list-style keys summarize aggregate views
// and are dropped after every write to the catalog.
const (
	KeyLatestProducts = "latest-products"
	KeyHighPrice      = "high-price"
	KeyCategories     = "categories"
	KeyAdminProducts  = "admin-products"

	productKeyPrefix = "product-"
)

// ListKeys returns the list-style keys invalidated after any mutation.
func ListKeys() []string {
	return []string{KeyLatestProducts, KeyHighPrice, KeyCategories, KeyAdminProducts}
}

// ProductKey returns the cache key for a single product.
func ProductKey(id string) string {
	return productKeyPrefix + id
}

// Cache is a best-effort read-through cache. Entries have no expiry and are
// removed only by Invalidate or process restart. A missing entry is never an
// error; it only forces a read from the store.
type Cache interface {
	Has(ctx context.Context, key string) bool
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	// Invalidate removes every entry whose key matches the predicate.
	Invalidate(ctx context.Context, match func(key string) bool)
}

// MatchKeys builds an Invalidate predicate matching exactly the given keys.
func MatchKeys(keys ...string) func(string) bool {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return func(key string) bool {
		_, ok := set[key]
		return ok
	}
}

// AfterMutation returns the keys to drop once a write lands: the list-style
// keys, plus the per-product keys of the ids involved when known.
func AfterMutation(ids ...string) []string {
	keys := ListKeys()
	for _, id := range ids {
		keys = append(keys, ProductKey(id))
	}
	return keys
}
