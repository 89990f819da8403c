package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

// NewComment holds the fields for CreateComment.
type NewComment struct {
	Content  string
	PostID   string
	AuthorID string
	ParentID string
}

// CreateComment inserts a comment. The post, the author and the parent
// comment (if any, on the same post) must exist.
func (s *BadgerStore) CreateComment(_ context.Context, in NewComment) (*Comment, error) {
	now := s.now()
	c := &Comment{
		ID:        s.newID(),
		Content:   in.Content,
		PostID:    in.PostID,
		AuthorID:  in.AuthorID,
		ParentID:  in.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.update(func(txn *badger.Txn) error {
		if _, err := getJSON[Post](txn, postPrefix+c.PostID); err != nil {
			return err
		}
		if _, err := getJSON[User](txn, userPrefix+c.AuthorID); err != nil {
			return err
		}
		if c.ParentID != "" {
			parent, err := getJSON[Comment](txn, commentPrefix+c.ParentID)
			if err != nil {
				return err
			}
			if parent.PostID != c.PostID {
				return ErrNotFound
			}
			if err := setIndex(txn, idxReplies+c.ParentID+":"+c.ID); err != nil {
				return err
			}
		}
		if err := setJSON(txn, commentPrefix+c.ID, c); err != nil {
			return err
		}
		if err := setIndex(txn, idxPostComments+c.PostID+":"+c.ID); err != nil {
			return err
		}
		return setIndex(txn, idxUserComments+c.AuthorID+":"+c.ID)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Comment returns the stored comment record or ErrNotFound.
func (s *BadgerStore) Comment(_ context.Context, id string) (*Comment, error) {
	var c *Comment
	err := s.view(func(txn *badger.Txn) error {
		var err error
		c, err = getJSON[Comment](txn, commentPrefix+id)
		return err
	})
	return c, err
}

// UpdateComment replaces a comment's content.
func (s *BadgerStore) UpdateComment(_ context.Context, id, content string) (*Comment, error) {
	var c *Comment
	err := s.update(func(txn *badger.Txn) error {
		var err error
		c, err = getJSON[Comment](txn, commentPrefix+id)
		if err != nil {
			return err
		}
		c.Content = content
		c.UpdatedAt = s.now()
		return setJSON(txn, commentPrefix+id, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteComment removes a comment and its replies.
func (s *BadgerStore) DeleteComment(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		return deleteCommentTxn(txn, id)
	})
}

func deleteCommentTxn(txn *badger.Txn, id string) error {
	c, err := getJSON[Comment](txn, commentPrefix+id)
	if err != nil {
		return err
	}
	for _, rid := range indexIDs(txn, idxReplies+id+":") {
		if err := deleteCommentTxn(txn, rid); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	keys := []string{
		idxPostComments + c.PostID + ":" + id,
		idxUserComments + c.AuthorID + ":" + id,
		commentPrefix + id,
	}
	if c.ParentID != "" {
		keys = append(keys, idxReplies+c.ParentID+":"+id)
	}
	for _, k := range keys {
		if err := del(txn, k); err != nil {
			return err
		}
	}
	return nil
}

// ListComments returns every comment of a post, oldest first.
func (s *BadgerStore) ListComments(_ context.Context, postID string) ([]CommentView, error) {
	var out []CommentView
	err := s.view(func(txn *badger.Txn) error {
		cs, err := commentsOf(txn, postID)
		if err != nil {
			return err
		}
		sortCommentsAsc(cs)
		out = make([]CommentView, 0, len(cs))
		for i := range cs {
			out = append(out, viewOf(txn, &cs[i]))
		}
		return nil
	})
	return out, err
}

// ListTopComments returns up to limit top-level comments of a post, newest first.
func (s *BadgerStore) ListTopComments(_ context.Context, postID string, limit int) ([]CommentView, error) {
	var out []CommentView
	err := s.view(func(txn *badger.Txn) error {
		cs, err := commentsOf(txn, postID)
		if err != nil {
			return err
		}
		top := cs[:0]
		for _, c := range cs {
			if c.ParentID == "" {
				top = append(top, c)
			}
		}
		sort.Slice(top, func(i, j int) bool {
			return newestFirst(top[i].CreatedAt, top[j].CreatedAt, top[i].ID, top[j].ID)
		})
		top = page(top, limit, 0)

		out = make([]CommentView, 0, len(top))
		for i := range top {
			v := viewOf(txn, &top[i])
			v.ReplyCount = countPrefix(txn, idxReplies+top[i].ID+":")
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func commentsOf(txn *badger.Txn, postID string) ([]Comment, error) {
	ids := indexIDs(txn, idxPostComments+postID+":")
	out := make([]Comment, 0, len(ids))
	for _, id := range ids {
		c, err := getJSON[Comment](txn, commentPrefix+id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func viewOf(txn *badger.Txn, c *Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		Content:   c.Content,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Author:    authorOf(txn, c.AuthorID, false),
	}
}
