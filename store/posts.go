package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

// NewPost holds the fields for CreatePost.
type NewPost struct {
	Title      string
	Content    string
	Excerpt    string
	Slug       string
	Published  bool
	AuthorID   string
	CategoryID string
}

// CreatePost inserts a post. The author must exist.
func (s *BadgerStore) CreatePost(_ context.Context, in NewPost) (*Post, error) {
	now := s.now()
	p := &Post{
		ID:         s.newID(),
		Title:      in.Title,
		Content:    in.Content,
		Excerpt:    in.Excerpt,
		Slug:       in.Slug,
		Published:  in.Published,
		AuthorID:   in.AuthorID,
		CategoryID: in.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.update(func(txn *badger.Txn) error {
		if _, err := getJSON[User](txn, userPrefix+p.AuthorID); err != nil {
			return err
		}
		if p.CategoryID != "" {
			if _, err := getJSON[Category](txn, categoryPrefix+p.CategoryID); err != nil {
				return err
			}
		}
		if err := setJSON(txn, postPrefix+p.ID, p); err != nil {
			return err
		}
		return setIndex(txn, idxUserPosts+p.AuthorID+":"+p.ID)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Post returns the stored post record or ErrNotFound.
func (s *BadgerStore) Post(_ context.Context, id string) (*Post, error) {
	var p *Post
	err := s.view(func(txn *badger.Txn) error {
		var err error
		p, err = getJSON[Post](txn, postPrefix+id)
		return err
	})
	return p, err
}

// PostUpdate holds the editable post fields.
type PostUpdate struct {
	Title     string
	Content   string
	Excerpt   string
	Slug      string
	Published bool
}

// UpdatePost replaces the editable fields of a post.
func (s *BadgerStore) UpdatePost(_ context.Context, id string, in PostUpdate) (*Post, error) {
	return s.modifyPost(id, func(p *Post) {
		p.Title = in.Title
		p.Content = in.Content
		p.Excerpt = in.Excerpt
		p.Slug = in.Slug
		p.Published = in.Published
	})
}

// SetPublished sets a post's published flag.
func (s *BadgerStore) SetPublished(_ context.Context, id string, published bool) (*Post, error) {
	return s.modifyPost(id, func(p *Post) { p.Published = published })
}

func (s *BadgerStore) modifyPost(id string, fn func(p *Post)) (*Post, error) {
	var p *Post
	err := s.update(func(txn *badger.Txn) error {
		var err error
		p, err = getJSON[Post](txn, postPrefix+id)
		if err != nil {
			return err
		}
		fn(p)
		p.UpdatedAt = s.now()
		return setJSON(txn, postPrefix+id, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePost removes a post and all of its comments.
func (s *BadgerStore) DeletePost(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		return deletePostTxn(txn, id)
	})
}

func deletePostTxn(txn *badger.Txn, id string) error {
	p, err := getJSON[Post](txn, postPrefix+id)
	if err != nil {
		return err
	}
	for _, cid := range indexIDs(txn, idxPostComments+id+":") {
		if err := deleteCommentTxn(txn, cid); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if err := del(txn, idxUserPosts+p.AuthorID+":"+id); err != nil {
		return err
	}
	return del(txn, postPrefix+id)
}

// ListPosts returns post summaries matching f, newest first.
func (s *BadgerStore) ListPosts(_ context.Context, f PostFilter) ([]PostSummary, error) {
	var out []PostSummary
	err := s.view(func(txn *badger.Txn) error {
		var (
			posts []Post
			err   error
		)
		if f.AuthorID != "" {
			posts, err = postsByIDs(txn, indexIDs(txn, idxUserPosts+f.AuthorID+":"))
		} else {
			posts, err = scanJSON[Post](txn, postPrefix)
		}
		if err != nil {
			return err
		}

		matched := posts[:0]
		for _, p := range posts {
			if f.Published != nil && p.Published != *f.Published {
				continue
			}
			if f.CategoryID != "" && p.CategoryID != f.CategoryID {
				continue
			}
			matched = append(matched, p)
		}
		sort.Slice(matched, func(i, j int) bool {
			return newestFirst(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
		})
		matched = page(matched, f.Limit, f.Offset)

		out = make([]PostSummary, 0, len(matched))
		for i := range matched {
			out = append(out, summaryOf(txn, &matched[i], false))
		}
		return nil
	})
	return out, err
}

// PostSummary returns one post with author and category detail, or
// (nil, nil) when the post does not exist.
func (s *BadgerStore) PostSummary(_ context.Context, id string) (*PostSummary, error) {
	var out *PostSummary
	err := s.view(func(txn *badger.Txn) error {
		p, err := getJSON[Post](txn, postPrefix+id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		v := summaryOf(txn, p, true)
		out = &v
		return nil
	})
	return out, err
}

func postsByIDs(txn *badger.Txn, ids []string) ([]Post, error) {
	out := make([]Post, 0, len(ids))
	for _, id := range ids {
		p, err := getJSON[Post](txn, postPrefix+id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func summaryOf(txn *badger.Txn, p *Post, detailed bool) PostSummary {
	return PostSummary{
		ID:           p.ID,
		Title:        p.Title,
		Content:      p.Content,
		Excerpt:      p.Excerpt,
		Slug:         p.Slug,
		Published:    p.Published,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Author:       authorOf(txn, p.AuthorID, detailed),
		Category:     categoryOf(txn, p.CategoryID, detailed),
		CommentCount: countPrefix(txn, idxPostComments+p.ID+":"),
	}
}
