package cache

import "fmt"

// Redis key namespace for the optional warm mirror of the in-memory
// quote cache (see internal/quote.Cache, the authoritative store).
const KeyQuotePrefix = "quotes"

// KeyQuotes builds the Redis key for a fare-quote cache entry, reusing
// the same rounded-coordinate cache key the in-memory quote.Cache
// computes via quote.Key, so both caches agree on identity.
func KeyQuotes(cacheKey string) string {
	return fmt.Sprintf("%s:%s", KeyQuotePrefix, cacheKey)
}
