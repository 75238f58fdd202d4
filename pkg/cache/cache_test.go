package cache

import (
	"net/http"
	"net/url"
	"testing"
)

func TestTokenFingerprint(t *testing.T) {
	fp := TokenFingerprint("ghp_secret_token")

	if len(fp) != 12 {
		t.Errorf("fingerprint length = %d, want 12", len(fp))
	}
	if fp == "ghp_secret_token" || fp == "" {
		t.Errorf("fingerprint %q must not expose or drop the token", fp)
	}

	// Deterministic, and distinct tokens get distinct scopes.
	if fp != TokenFingerprint("ghp_secret_token") {
		t.Error("fingerprint is not deterministic")
	}
	if fp == TokenFingerprint("ghp_other_token") {
		t.Error("different tokens produced the same fingerprint")
	}
}

func TestKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			"path only",
			Key{Path: "/user"},
			"github:user",
		},
		{
			"path with query and token",
			Key{
				Path:             "/user/orgs",
				Query:            url.Values{"per_page": {"100"}},
				TokenFingerprint: "3f1a9b2c44de",
			},
			"github:user/orgs:per_page=100:tok=3f1a9b2c44de",
		},
		{
			"query keys sorted",
			Key{
				Path:  "/search/issues",
				Query: url.Values{"sort": {"updated"}, "per_page": {"100"}},
			},
			"github:search/issues:per_page=100:sort=updated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestStore_SetAndGet(t *testing.T) {
	store := NewStore(8)
	key := Key{Path: "/user", TokenFingerprint: "abc123def456"}

	if entry := store.Get(key); entry != nil {
		t.Fatalf("Get on empty store = %+v, want nil", entry)
	}

	store.Set(key, []byte(`{"login":"octocat"}`), `"etag-1"`, http.StatusOK)

	entry := store.Get(key)
	if entry == nil {
		t.Fatal("Get after Set = nil")
	}
	if string(entry.Data) != `{"login":"octocat"}` {
		t.Errorf("Data = %q", entry.Data)
	}
	if entry.ETag != `"etag-1"` {
		t.Errorf("ETag = %q, want %q", entry.ETag, `"etag-1"`)
	}
	if !entry.CanRevalidate() {
		t.Error("CanRevalidate = false, want true")
	}
}

func TestStore_SkipsEntriesWithoutETag(t *testing.T) {
	store := NewStore(8)
	key := Key{Path: "/user"}

	store.Set(key, []byte(`{}`), "", http.StatusOK)

	if entry := store.Get(key); entry != nil {
		t.Errorf("entry without ETag was stored: %+v", entry)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestStore_TokenScoping(t *testing.T) {
	store := NewStore(8)

	alice := Key{Path: "/user", TokenFingerprint: TokenFingerprint("alice-token")}
	bob := Key{Path: "/user", TokenFingerprint: TokenFingerprint("bob-token")}

	store.Set(alice, []byte(`{"login":"alice"}`), `"a"`, http.StatusOK)

	if entry := store.Get(bob); entry != nil {
		t.Errorf("bob's lookup returned alice's entry: %s", entry.Data)
	}
}

func TestStore_EvictsWhenFull(t *testing.T) {
	store := NewStore(2)

	store.Set(Key{Path: "/a"}, []byte(`1`), `"e1"`, http.StatusOK)
	store.Set(Key{Path: "/b"}, []byte(`2`), `"e2"`, http.StatusOK)
	store.Set(Key{Path: "/c"}, []byte(`3`), `"e3"`, http.StatusOK)

	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}
	if store.Get(Key{Path: "/c"}) == nil {
		t.Error("most recent entry was evicted")
	}
}

func TestAddConditionalHeaders(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}

	AddConditionalHeaders(req, nil)
	if got := req.Header.Get("If-None-Match"); got != "" {
		t.Errorf("If-None-Match = %q for nil entry, want empty", got)
	}

	AddConditionalHeaders(req, &Entry{Data: []byte(`{}`)})
	if got := req.Header.Get("If-None-Match"); got != "" {
		t.Errorf("If-None-Match = %q for entry without ETag, want empty", got)
	}

	AddConditionalHeaders(req, &Entry{Data: []byte(`{}`), ETag: `"abc"`})
	if got := req.Header.Get("If-None-Match"); got != `"abc"` {
		t.Errorf("If-None-Match = %q, want %q", got, `"abc"`)
	}
}
