package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/postboard/cache"
	"github.com/jonwraymond/postboard/tags"
)

func ExampleQuery_Get() {
	c := cache.New(cache.NewMemoryCache(cache.MemoryConfig{}), cache.DefaultPolicy(), nil)
	inv := c.Invalidator()
	ctx := context.Background()

	version := 1
	q := cache.NewQuery(c, cache.Key{"posts", "all"}, []tags.Tag{tags.Posts}, time.Minute,
		func(context.Context) (int, error) { return version, nil })

	v, _ := q.Get(ctx)
	fmt.Println(v)

	version = 2
	v, _ = q.Get(ctx)
	fmt.Println(v)

	inv.RevalidateTag(ctx, tags.Posts)
	v, _ = q.Get(ctx)
	fmt.Println(v)
	// Output:
	// 1
	// 1
	// 2
}
