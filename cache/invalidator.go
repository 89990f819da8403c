package cache

import (
	"context"

	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/tags"
)

// Invalidator revalidates tags after a successful write.
//
// Calls are synchronous with the caller but fire-and-forget: a store failure
// is logged and counted, never returned, so stale entries age out by TTL.
type Invalidator struct {
	store Store
	mw    *observe.Middleware
	log   observe.Logger

	// exclusive runs the drops so that no guarded write interleaves.
	exclusive func(fn func())
}

// NewInvalidator creates an Invalidator for store. A nil mw records nothing.
func NewInvalidator(store Store, mw *observe.Middleware) *Invalidator {
	if mw == nil {
		mw = observe.NopMiddleware()
	}
	return &Invalidator{store: store, mw: mw, log: mw.Logger().With("invalidator")}
}

// RevalidateTag drops every entry carrying any of ts.
func (i *Invalidator) RevalidateTag(ctx context.Context, ts ...tags.Tag) {
	if i == nil || i.store == nil {
		return
	}
	set := tags.Set(ts...)
	if len(set) == 0 {
		return
	}
	drop := func() {
		for _, t := range set {
			err := i.store.InvalidateTag(ctx, t)
			i.mw.Metrics().RecordInvalidation(ctx, t.String(), err)
			if err != nil {
				i.log.Error(ctx, "tag invalidation failed", observe.F("tag", t.String()), observe.Err(err))
				continue
			}
			i.log.Debug(ctx, "tag invalidated", observe.F("tag", t.String()))
		}
	}
	if i.exclusive != nil {
		i.exclusive(drop)
		return
	}
	drop()
}

// RevalidatePath drops the route-level responses cached for each path.
func (i *Invalidator) RevalidatePath(ctx context.Context, paths ...string) {
	ts := make([]tags.Tag, len(paths))
	for n, p := range paths {
		ts[n] = tags.Path(p)
	}
	i.RevalidateTag(ctx, ts...)
}
