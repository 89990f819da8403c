package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonwraymond/postboard/tags"
)

func BenchmarkQuery_Hit(b *testing.B) {
	c := New(NewMemoryCache(MemoryConfig{}), DefaultPolicy(), nil)
	q := NewQuery(c, Key{"posts", "all"}, []tags.Tag{tags.Posts}, time.Minute,
		func(context.Context) ([]post, error) {
			return []post{{ID: "a", Title: "t"}, {ID: "b", Title: "u"}}, nil
		})
	ctx := context.Background()
	_, _ = q.Get(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = q.Get(ctx)
	}
}

func BenchmarkMemoryCache_InvalidateTag(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		c := NewMemoryCache(MemoryConfig{})
		for k := 0; k < 100; k++ {
			_ = c.Set(ctx, fmt.Sprint("k", k), []byte("v"), time.Minute, []tags.Tag{tags.Posts})
		}
		b.StartTimer()
		_ = c.InvalidateTag(ctx, tags.Posts)
	}
}
