package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached response. Entries are scoped per token so one
// caller's private data is never served to another.
type Key struct {
	// Path is the API path (e.g. "/user/orgs").
	Path string

	// Query are the request query parameters.
	Query url.Values

	// TokenFingerprint is a short hash of the access token. The token
	// itself is never stored.
	TokenFingerprint string
}

// TokenFingerprint derives a non-reversible cache scope from an access
// token.
func TokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:12]
}

// String generates a deterministic cache key string.
//
// Example:
//
//	github:user/orgs:per_page=100:tok=3f1a9b2c44de
func (k Key) String() string {
	parts := []string{"github"}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	if k.TokenFingerprint != "" {
		parts = append(parts, "tok="+k.TokenFingerprint)
	}

	return strings.Join(parts, ":")
}
