// Package querycache provides a two-tier (memory + disk) result cache for
// SQL queries, keyed by normalized query text and parameters.
//
// It owns key derivation, the cacheability policy, TTL expiration,
// size-bounded eviction, background sweeping, and hit/miss statistics.
// It never executes queries itself; callers wrap their executor with
// WrapExecutor or call Lookup/Store around their own execution path.
package querycache
