package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonwraymond/postboard/cache"
	"github.com/jonwraymond/postboard/tags"
)

func TestPathCache_InvalidationWhileRendering(t *testing.T) {
	mc := cache.NewMemoryCache(cache.MemoryConfig{})
	c := cache.New(mc, cache.DefaultPolicy(), nil)
	inv := c.Invalidator()
	pc := NewPathCache(c, time.Minute, nil)

	renders := 0
	h := pc.Route("posts", func(*http.Request) []tags.Tag { return []tags.Tag{tags.Path("/posts")} })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			renders++
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("page"))
			if renders == 1 {
				inv.RevalidatePath(r.Context(), "/posts")
			}
		}))

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))
		return rec
	}

	if rec := get(); rec.Body.String() != "page" || rec.Header().Get(CacheHeader) != "MISS" {
		t.Fatalf("first response = %q %s", rec.Body.String(), rec.Header().Get(CacheHeader))
	}
	if n := mc.Len(); n != 0 {
		t.Errorf("Len() = %d after a render that raced an invalidation, want 0", n)
	}

	if rec := get(); rec.Header().Get(CacheHeader) != "MISS" {
		t.Errorf("second response %s = %s, want MISS", CacheHeader, rec.Header().Get(CacheHeader))
	}
	if rec := get(); rec.Header().Get(CacheHeader) != "HIT" {
		t.Errorf("third response %s = %s, want HIT", CacheHeader, rec.Header().Get(CacheHeader))
	}
	if renders != 2 {
		t.Errorf("renders = %d, want 2", renders)
	}
}

func TestPathCache_NilCacheDisabled(t *testing.T) {
	pc := NewPathCache(nil, time.Minute, nil)
	calls := 0
	h := pc.Route("posts", func(*http.Request) []tags.Tag { return nil })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusOK)
		}))
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/posts", nil))
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
