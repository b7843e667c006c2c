package querycache

import "strings"

// MaxQueryLength is the longest query text eligible for caching.
// Longer queries are rejected to keep key derivation and disk entries
// bounded.
const MaxQueryLength = 5000

// nonDeterministic lists SQL constructs whose results depend on when the
// query runs. A query containing any of them is never cached.
var nonDeterministic = []string{
	"NOW()",
	"CURRENT_TIMESTAMP",
	"CURRENT_DATE",
	"CURRENT_TIME",
	"RAND()",
}

// IsCacheable reports whether a query's result may be served from cache.
//
// Only deterministic, read-only queries qualify: the text must start with
// SELECT, must not reference time-of-day or random functions, and must
// not exceed MaxQueryLength.
func IsCacheable(query string) bool {
	if len(query) > MaxQueryLength {
		return false
	}

	upper := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(upper, "SELECT") {
		return false
	}

	for _, fn := range nonDeterministic {
		if strings.Contains(upper, fn) {
			return false
		}
	}
	return true
}
