package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// KeyLength is the length of a derived cache key in hex characters.
//
// 16 hex characters (64 bits of the SHA-256 digest) is a deliberate
// trade-off: collisions are possible in principle and are an accepted
// risk, not a detected condition.
const KeyLength = 16

// NormalizeQuery lower-cases the query, collapses whitespace runs to
// single spaces, and trims. Two queries that differ only in case or
// whitespace normalize to the same string.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// DeriveKey derives the cache key for a query and its parameters.
//
// The key is the first 16 hex characters of SHA-256 over the normalized
// query text with the sorted parameter list appended. It is pure and
// deterministic: the same query and parameters produce the same key in
// any process, regardless of map iteration order.
func DeriveKey(query string, params map[string]any) string {
	composed := NormalizeQuery(query)

	if len(params) > 0 {
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)

		var sb strings.Builder
		sb.WriteString(composed)
		for _, name := range names {
			sb.WriteByte('|')
			sb.WriteString(name)
			sb.WriteByte('=')
			fmt.Fprintf(&sb, "%v", params[name])
		}
		composed = sb.String()
	}

	sum := sha256.Sum256([]byte(composed))
	return hex.EncodeToString(sum[:])[:KeyLength]
}
