// Package tags is the single source of cache invalidation tag names.
//
// Cache queries attach tags when they store an entry and mutations revalidate the
// same tags after a successful write. Both sides must go through the constructors
// in this package; Tag has no exported way to be built from an arbitrary string
// other than a conversion, which reviewers should treat as a smell.
package tags

import "strings"

// Tag identifies an invalidation group inside the cache store.
type Tag string

// String returns the literal tag name.
func (t Tag) String() string {
	return string(t)
}

// Static tags.
const (
	Posts          Tag = "posts"
	PostsPublished Tag = "posts-published"
	PostsDraft     Tag = "posts-draft"
	Comments       Tag = "comments"
	Users          Tag = "users"
)

// Post tags a single post's metadata.
func Post(id string) Tag { return Tag("post-" + id) }

// UserPosts tags post listings filtered by author.
func UserPosts(userID string) Tag { return Tag("user-posts-" + userID) }

// CategoryPosts tags post listings filtered by category.
func CategoryPosts(categoryID string) Tag { return Tag("category-posts-" + categoryID) }

// PostComments tags the comments of one post.
func PostComments(postID string) Tag { return Tag("post-comments-" + postID) }

// Comment tags a single comment.
func Comment(id string) Tag { return Tag("comment-" + id) }

// CommentReplies tags the replies under a comment.
func CommentReplies(commentID string) Tag { return Tag("comment-replies-" + commentID) }

// User tags a user record.
func User(id string) Tag { return Tag("user-" + id) }

// UserProfile tags a user's profile view.
func UserProfile(id string) Tag { return Tag("user-profile-" + id) }

// UserStats tags a user's aggregate counters.
func UserStats(id string) Tag { return Tag("user-stats-" + id) }

// pathPrefix keeps route tags out of the entity namespace.
const pathPrefix = "path:"

// Path tags responses cached for a route path such as "/posts/123".
// Trailing slashes are dropped so "/posts/" and "/posts" share a tag.
func Path(p string) Tag {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		p = "/"
	}
	return Tag(pathPrefix + p)
}

// IsPath reports whether t was built by Path.
func (t Tag) IsPath() bool {
	return strings.HasPrefix(string(t), pathPrefix)
}

// Set returns tags in first-seen order with duplicates and empty tags removed.
func Set(ts ...Tag) []Tag {
	out := make([]Tag, 0, len(ts))
	seen := make(map[Tag]struct{}, len(ts))
	for _, t := range ts {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Strings converts tags to their literal names.
func Strings(ts []Tag) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = string(t)
	}
	return out
}
