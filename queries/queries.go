package queries

import (
	"context"
	"strconv"
	"time"

	"github.com/jonwraymond/postboard/cache"
	"github.com/jonwraymond/postboard/store"
	"github.com/jonwraymond/postboard/tags"
)

// Source is the data the cached queries read. *store.BadgerStore implements it.
type Source interface {
	ListPosts(ctx context.Context, f store.PostFilter) ([]store.PostSummary, error)
	PostSummary(ctx context.Context, id string) (*store.PostSummary, error)
	ListTopComments(ctx context.Context, postID string, limit int) ([]store.CommentView, error)
	ListComments(ctx context.Context, postID string) ([]store.CommentView, error)
	UserProfile(ctx context.Context, id string) (*store.UserProfile, error)
	ListUsers(ctx context.Context, limit, offset int) ([]store.UserProfile, error)
}

var _ Source = (*store.BadgerStore)(nil)

// Defaults.
const (
	DefaultLimit     = 10
	TopCommentsLimit = 20
)

// Revalidate holds the maximum staleness of each query family.
type Revalidate struct {
	Posts       time.Duration
	PostDetail  time.Duration
	TopComments time.Duration
	Comments    time.Duration
	User        time.Duration
	Users       time.Duration
}

// DefaultRevalidate returns the stock intervals. Comments change more often
// than post content, so their sub-query expires sooner.
func DefaultRevalidate() Revalidate {
	return Revalidate{
		Posts:       300 * time.Second,
		PostDetail:  60 * time.Second,
		TopComments: 120 * time.Second,
		Comments:    60 * time.Second,
		User:        300 * time.Second,
		Users:       600 * time.Second,
	}
}

// Builder creates cached queries over a Source.
type Builder struct {
	cache *cache.Cache
	src   Source
	ttl   Revalidate
}

// New creates a Builder. Zero durations in ttl fall back to DefaultRevalidate.
func New(c *cache.Cache, src Source, ttl Revalidate) *Builder {
	d := DefaultRevalidate()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&ttl.Posts, d.Posts)
	fill(&ttl.PostDetail, d.PostDetail)
	fill(&ttl.TopComments, d.TopComments)
	fill(&ttl.Comments, d.Comments)
	fill(&ttl.User, d.User)
	fill(&ttl.Users, d.Users)
	return &Builder{cache: c, src: src, ttl: ttl}
}

// PostsFilter selects a post listing. Published nil means both states.
// Limit 0 means DefaultLimit. Values are not range-checked here.
type PostsFilter struct {
	Published  *bool
	CategoryID string
	AuthorID   string
	Limit      int
	Offset     int
}

func (f PostsFilter) normalized() PostsFilter {
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	return f
}

// PostsKey returns the cache key for a listing. Absent filters are encoded
// with their own sentinel so "no category" never collides with a category id.
func PostsKey(f PostsFilter) cache.Key {
	f = f.normalized()

	published := "all"
	if f.Published != nil {
		published = "published-" + strconv.FormatBool(*f.Published)
	}
	category := "all-categories"
	if f.CategoryID != "" {
		category = "category-" + f.CategoryID
	}
	author := "all-authors"
	if f.AuthorID != "" {
		author = "author-" + f.AuthorID
	}

	return cache.Key{
		"posts",
		published,
		category,
		author,
		"limit-" + strconv.Itoa(f.Limit),
		"offset-" + strconv.Itoa(f.Offset),
	}
}

// PostsTags returns the invalidation tags of a listing.
func PostsTags(f PostsFilter) []tags.Tag {
	ts := []tags.Tag{tags.Posts}
	if f.Published != nil {
		if *f.Published {
			ts = append(ts, tags.PostsPublished)
		} else {
			ts = append(ts, tags.PostsDraft)
		}
	}
	if f.CategoryID != "" {
		ts = append(ts, tags.CategoryPosts(f.CategoryID))
	}
	if f.AuthorID != "" {
		ts = append(ts, tags.UserPosts(f.AuthorID))
	}
	return ts
}

// Posts returns the cached listing for f, newest first.
func (b *Builder) Posts(f PostsFilter) *cache.Query[[]store.PostSummary] {
	f = f.normalized()
	sf := store.PostFilter{
		Published:  f.Published,
		CategoryID: f.CategoryID,
		AuthorID:   f.AuthorID,
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
	return cache.NewQuery(b.cache, PostsKey(f), PostsTags(f), b.ttl.Posts,
		func(ctx context.Context) ([]store.PostSummary, error) {
			return b.src.ListPosts(ctx, sf)
		})
}

// PostQuery reads a single post and its newest top-level comments from two
// independently cached sub-queries.
type PostQuery struct {
	Meta     *cache.Query[*store.PostSummary]
	Comments *cache.Query[[]store.CommentView]
}

// Post returns the cached detail query for id.
func (b *Builder) Post(id string) *PostQuery {
	meta := cache.NewQuery(b.cache, cache.Key{"post-detail-" + id}, []tags.Tag{tags.Post(id)}, b.ttl.PostDetail,
		func(ctx context.Context) (*store.PostSummary, error) {
			return b.src.PostSummary(ctx, id)
		}).Named("post-detail")

	comments := cache.NewQuery(b.cache, cache.Key{"post-top-comments-" + id},
		[]tags.Tag{tags.PostComments(id), tags.Comments}, b.ttl.TopComments,
		func(ctx context.Context) ([]store.CommentView, error) {
			return b.src.ListTopComments(ctx, id, TopCommentsLimit)
		}).Named("post-top-comments")

	return &PostQuery{Meta: meta, Comments: comments}
}

// Get merges both sub-queries. A missing post yields (nil, nil) and the
// comment sub-query is not consulted.
func (q *PostQuery) Get(ctx context.Context) (*store.PostDetail, error) {
	meta, err := q.Meta.Get(ctx)
	if err != nil || meta == nil {
		return nil, err
	}
	comments, err := q.Comments.Get(ctx)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []store.CommentView{}
	}
	return &store.PostDetail{PostSummary: *meta, Comments: comments}, nil
}

// Comments returns every comment of a post, oldest first.
func (b *Builder) Comments(postID string) *cache.Query[[]store.CommentView] {
	return cache.NewQuery(b.cache, cache.Key{"post-comments-" + postID},
		[]tags.Tag{tags.PostComments(postID), tags.Comments}, b.ttl.Comments,
		func(ctx context.Context) ([]store.CommentView, error) {
			return b.src.ListComments(ctx, postID)
		}).Named("post-comments")
}

// User returns a user's profile with post and comment counts. A missing
// user yields (nil, nil).
func (b *Builder) User(id string) *cache.Query[*store.UserProfile] {
	return cache.NewQuery(b.cache, cache.Key{"user-profile-" + id},
		[]tags.Tag{tags.User(id), tags.UserProfile(id)}, b.ttl.User,
		func(ctx context.Context) (*store.UserProfile, error) {
			return b.src.UserProfile(ctx, id)
		}).Named("user-profile")
}

// Users returns a page of user profiles, newest first. Limit 0 means DefaultLimit.
func (b *Builder) Users(limit, offset int) *cache.Query[[]store.UserProfile] {
	if limit == 0 {
		limit = DefaultLimit
	}
	key := cache.Key{"users-list", "limit-" + strconv.Itoa(limit), "offset-" + strconv.Itoa(offset)}
	return cache.NewQuery(b.cache, key, []tags.Tag{tags.Users}, b.ttl.Users,
		func(ctx context.Context) ([]store.UserProfile, error) {
			return b.src.ListUsers(ctx, limit, offset)
		})
}
