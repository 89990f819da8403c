package server

import (
	"bytes"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/jonwraymond/postboard/auth"
	"github.com/jonwraymond/postboard/cache"
	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/tags"
)

// CacheHeader reports whether a response came from the path cache.
const CacheHeader = "X-Cache"

// PathCache caches whole anonymous GET responses. Entries are tagged with
// tags.Path of the page they back, plus any data tags, so RevalidatePath and
// RevalidateTag both evict them. A response rendered before an invalidation
// finished is served but not stored.
type PathCache struct {
	cache   *cache.Cache
	ttl     time.Duration
	metrics observe.Metrics
}

// NewPathCache creates a PathCache on c. A nil cache or non-positive ttl
// yields a PathCache that caches nothing.
func NewPathCache(c *cache.Cache, ttl time.Duration, metrics observe.Metrics) *PathCache {
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	return &PathCache{cache: c, ttl: ttl, metrics: metrics}
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// TagFunc returns the tags of the page a request reads.
type TagFunc func(r *http.Request) []tags.Tag

// Route caches the responses of the wrapped handler under name.
func (pc *PathCache) Route(name string, tagFn TagFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if pc == nil || pc.cache == nil || pc.cache.Store() == nil || pc.ttl <= 0 {
			return next
		}
		store := pc.cache.Store()
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || auth.IdentityFromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := cache.Key{"route", r.URL.RequestURI()}.String()

			if raw, hit := store.Get(ctx, key); hit {
				var cr cachedResponse
				if err := json.Unmarshal(raw, &cr); err == nil {
					pc.metrics.RecordCacheLookup(ctx, name, true)
					w.Header().Set("Content-Type", cr.ContentType)
					w.Header().Set(CacheHeader, "HIT")
					w.WriteHeader(cr.Status)
					_, _ = w.Write(cr.Body)
					return
				}
				_ = store.Delete(ctx, key)
			}
			pc.metrics.RecordCacheLookup(ctx, name, false)

			gen := pc.cache.Generation()
			var body bytes.Buffer
			w.Header().Set(CacheHeader, "MISS")
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			if ww.Status() != http.StatusOK {
				return
			}
			raw, err := json.Marshal(cachedResponse{
				Status:      http.StatusOK,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        body.Bytes(),
			})
			if err != nil {
				return
			}
			_, _ = pc.cache.SetIfCurrent(ctx, gen, key, raw, pc.ttl, tagFn(r))
		})
	}
}
