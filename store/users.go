package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

// NewUser holds the fields for CreateUser. Empty Role defaults to RoleUser.
type NewUser struct {
	ID           string
	Email        string
	Name         string
	Image        string
	Role         Role
	PasswordHash []byte
}

// CreateUser inserts a user. The email must be unique (case-insensitive).
func (s *BadgerStore) CreateUser(_ context.Context, in NewUser) (*User, error) {
	now := s.now()
	u := &User{
		ID:           in.ID,
		Email:        normalizeEmail(in.Email),
		Name:         in.Name,
		Image:        in.Image,
		Role:         in.Role,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if u.ID == "" {
		u.ID = s.newID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}

	err := s.update(func(txn *badger.Txn) error {
		if _, err := getJSON[User](txn, userPrefix+u.ID); err == nil {
			return ErrConflict
		}
		if u.Email != "" {
			if _, err := txn.Get([]byte(idxUserEmail + u.Email)); err == nil {
				return ErrConflict
			}
			if err := txn.Set([]byte(idxUserEmail+u.Email), []byte(u.ID)); err != nil {
				return err
			}
		}
		return setJSON(txn, userPrefix+u.ID, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureUser returns the user with id, creating it from the given identity
// fields on first sight.
func (s *BadgerStore) EnsureUser(ctx context.Context, in NewUser) (*User, error) {
	u, err := s.User(ctx, in.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	u, err = s.CreateUser(ctx, in)
	if errors.Is(err, ErrConflict) {
		// Lost a race with a concurrent first request.
		return s.User(ctx, in.ID)
	}
	return u, err
}

// User returns the stored user record or ErrNotFound.
func (s *BadgerStore) User(_ context.Context, id string) (*User, error) {
	var u *User
	err := s.view(func(txn *badger.Txn) error {
		var err error
		u, err = getJSON[User](txn, userPrefix+id)
		return err
	})
	return u, err
}

// UserByEmail looks a user up by email.
func (s *BadgerStore) UserByEmail(_ context.Context, email string) (*User, error) {
	var u *User
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(idxUserEmail + normalizeEmail(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		u, err = getJSON[User](txn, userPrefix+string(id))
		return err
	})
	return u, err
}

// UserUpdate holds profile fields to change.
type UserUpdate struct {
	Name  string
	Email string
}

// UpdateUser changes a user's name and email.
func (s *BadgerStore) UpdateUser(_ context.Context, id string, in UserUpdate) (*User, error) {
	var u *User
	err := s.update(func(txn *badger.Txn) error {
		var err error
		u, err = getJSON[User](txn, userPrefix+id)
		if err != nil {
			return err
		}

		email := normalizeEmail(in.Email)
		if email != u.Email {
			if _, err := txn.Get([]byte(idxUserEmail + email)); err == nil {
				return ErrConflict
			}
			if u.Email != "" {
				if err := del(txn, idxUserEmail+u.Email); err != nil {
					return err
				}
			}
			if err := txn.Set([]byte(idxUserEmail+email), []byte(id)); err != nil {
				return err
			}
			u.Email = email
		}
		u.Name = in.Name
		u.UpdatedAt = s.now()
		return setJSON(txn, userPrefix+id, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SetPassword replaces a user's password hash.
func (s *BadgerStore) SetPassword(_ context.Context, id string, hash []byte) error {
	return s.update(func(txn *badger.Txn) error {
		u, err := getJSON[User](txn, userPrefix+id)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		u.UpdatedAt = s.now()
		return setJSON(txn, userPrefix+id, u)
	})
}

// SetRole changes a user's role.
func (s *BadgerStore) SetRole(_ context.Context, id string, role Role) (*User, error) {
	var u *User
	err := s.update(func(txn *badger.Txn) error {
		var err error
		u, err = getJSON[User](txn, userPrefix+id)
		if err != nil {
			return err
		}
		u.Role = role
		u.UpdatedAt = s.now()
		return setJSON(txn, userPrefix+id, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UserRemoval lists what DeleteUser removed besides the user record.
type UserRemoval struct {
	// PostIDs are the user's own posts.
	PostIDs []string
	// Comments are the user's comments on any post, replies included.
	Comments []Comment
}

// CommentedPostIDs returns the distinct posts the removed comments were on.
func (r UserRemoval) CommentedPostIDs() []string {
	seen := make(map[string]bool, len(r.Comments))
	var ids []string
	for _, c := range r.Comments {
		if !seen[c.PostID] {
			seen[c.PostID] = true
			ids = append(ids, c.PostID)
		}
	}
	return ids
}

// DeleteUser removes a user together with their posts and comments.
func (s *BadgerStore) DeleteUser(_ context.Context, id string) (UserRemoval, error) {
	var rm UserRemoval
	err := s.update(func(txn *badger.Txn) error {
		rm = UserRemoval{}
		u, err := getJSON[User](txn, userPrefix+id)
		if err != nil {
			return err
		}

		for _, cid := range indexIDs(txn, idxUserComments+id+":") {
			c, err := getJSON[Comment](txn, commentPrefix+cid)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := deleteCommentTxn(txn, cid); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			rm.Comments = append(rm.Comments, *c)
		}

		rm.PostIDs = indexIDs(txn, idxUserPosts+id+":")
		for _, pid := range rm.PostIDs {
			if err := deletePostTxn(txn, pid); err != nil {
				return err
			}
		}

		if u.Email != "" {
			if err := del(txn, idxUserEmail+u.Email); err != nil {
				return err
			}
		}
		return del(txn, userPrefix+id)
	})
	if err != nil {
		return UserRemoval{}, err
	}
	return rm, nil
}

// UserProfile returns a user's public profile, or (nil, nil) when missing.
func (s *BadgerStore) UserProfile(_ context.Context, id string) (*UserProfile, error) {
	var p *UserProfile
	err := s.view(func(txn *badger.Txn) error {
		u, err := getJSON[User](txn, userPrefix+id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		v := profileOf(txn, u)
		p = &v
		return nil
	})
	return p, err
}

// ListUsers returns profiles newest first.
func (s *BadgerStore) ListUsers(_ context.Context, limit, offset int) ([]UserProfile, error) {
	var out []UserProfile
	err := s.view(func(txn *badger.Txn) error {
		users, err := scanJSON[User](txn, userPrefix)
		if err != nil {
			return err
		}
		sort.Slice(users, func(i, j int) bool {
			return newestFirst(users[i].CreatedAt, users[j].CreatedAt, users[i].ID, users[j].ID)
		})
		users = page(users, limit, offset)

		out = make([]UserProfile, 0, len(users))
		for i := range users {
			out = append(out, profileOf(txn, &users[i]))
		}
		return nil
	})
	return out, err
}

func profileOf(txn *badger.Txn, u *User) UserProfile {
	return UserProfile{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Image:        u.Image,
		Bio:          u.Bio,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		PostCount:    countPrefix(txn, idxUserPosts+u.ID+":"),
		CommentCount: countPrefix(txn, idxUserComments+u.ID+":"),
	}
}

func authorOf(txn *badger.Txn, id string, withBio bool) Author {
	u, err := getJSON[User](txn, userPrefix+id)
	if err != nil {
		return Author{ID: id}
	}
	a := Author{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
	if withBio {
		a.Bio = u.Bio
	}
	return a
}
