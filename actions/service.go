package actions

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/jonwraymond/postboard/cache"
	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/store"
	"github.com/jonwraymond/postboard/tags"
)

// Store is the persistence the actions write through.
// *store.BadgerStore implements it.
type Store interface {
	Post(ctx context.Context, id string) (*store.Post, error)
	CreatePost(ctx context.Context, in store.NewPost) (*store.Post, error)
	UpdatePost(ctx context.Context, id string, in store.PostUpdate) (*store.Post, error)
	SetPublished(ctx context.Context, id string, published bool) (*store.Post, error)
	DeletePost(ctx context.Context, id string) error

	Comment(ctx context.Context, id string) (*store.Comment, error)
	CreateComment(ctx context.Context, in store.NewComment) (*store.Comment, error)
	UpdateComment(ctx context.Context, id, content string) (*store.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	User(ctx context.Context, id string) (*store.User, error)
	UpdateUser(ctx context.Context, id string, in store.UserUpdate) (*store.User, error)
	SetPassword(ctx context.Context, id string, hash []byte) error
	SetRole(ctx context.Context, id string, role store.Role) (*store.User, error)
	DeleteUser(ctx context.Context, id string) (store.UserRemoval, error)
	ListUsers(ctx context.Context, limit, offset int) ([]store.UserProfile, error)
}

var _ Store = (*store.BadgerStore)(nil)

// Revalidator is what actions call after a successful write.
// *cache.Invalidator implements it.
type Revalidator interface {
	RevalidateTag(ctx context.Context, ts ...tags.Tag)
	RevalidatePath(ctx context.Context, paths ...string)
}

var _ Revalidator = (*cache.Invalidator)(nil)

// Actor is the authenticated caller of an action.
type Actor struct {
	ID   string
	Role store.Role
}

// DefaultBcryptCost is the cost used for new password hashes.
const DefaultBcryptCost = 12

// Service runs mutations.
type Service struct {
	store      Store
	inv        Revalidator
	mw         *observe.Middleware
	bcryptCost int
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides DefaultBcryptCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

// NewService creates a Service. A nil mw records nothing.
func NewService(st Store, inv Revalidator, mw *observe.Middleware, opts ...Option) *Service {
	if mw == nil {
		mw = observe.NopMiddleware()
	}
	s := &Service{store: st, inv: inv, mw: mw, bcryptCost: DefaultBcryptCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run wraps one mutation in a span and maps store sentinels.
func (s *Service) run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return s.mw.Run(ctx, observe.Operation{Kind: "mutation", Name: name}, func(ctx context.Context) error {
		return mapStoreErr(fn(ctx))
	})
}

func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %v", ErrEmailTaken, err)
	default:
		return err
	}
}

func requireActor(a Actor) error {
	if a.ID == "" {
		return ErrUnauthorized
	}
	return nil
}

// PostInput is the editable content of a post.
type PostInput struct {
	Title      string `json:"title" validate:"required,min=1,max=200"`
	Content    string `json:"content" validate:"required"`
	Excerpt    string `json:"excerpt" validate:"max=500"`
	Published  bool   `json:"published"`
	CategoryID string `json:"categoryId"`
}

// CreatePost stores a new post authored by the actor.
func (s *Service) CreatePost(ctx context.Context, actor Actor, in PostInput) (*store.Post, error) {
	var post *store.Post
	err := s.run(ctx, "create_post", func(ctx context.Context) error {
		if err := requireActor(actor); err != nil {
			return err
		}
		if err := validateStruct(in); err != nil {
			return err
		}

		p, err := s.store.CreatePost(ctx, store.NewPost{
			Title:      in.Title,
			Content:    in.Content,
			Excerpt:    in.Excerpt,
			Slug:       Slugify(in.Title),
			Published:  in.Published,
			AuthorID:   actor.ID,
			CategoryID: in.CategoryID,
		})
		if err != nil {
			return err
		}
		post = p

		ts := []tags.Tag{tags.Posts, tags.UserPosts(actor.ID)}
		if p.CategoryID != "" {
			ts = append(ts, tags.CategoryPosts(p.CategoryID))
		}
		s.inv.RevalidateTag(ctx, ts...)
		s.inv.RevalidatePath(ctx, "/posts")
		return nil
	})
	return post, err
}

// ownPost loads a post and checks the actor wrote it.
func (s *Service) ownPost(ctx context.Context, actor Actor, id string) (*store.Post, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	p, err := s.store.Post(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != actor.ID {
		return nil, ErrForbidden
	}
	return p, nil
}

// postTags lists what a change to p can make stale.
func postTags(p *store.Post) []tags.Tag {
	ts := []tags.Tag{tags.Posts, tags.Post(p.ID), tags.UserPosts(p.AuthorID)}
	if p.CategoryID != "" {
		ts = append(ts, tags.CategoryPosts(p.CategoryID))
	}
	return ts
}

// UpdatePost replaces the content of one of the actor's posts.
func (s *Service) UpdatePost(ctx context.Context, actor Actor, id string, in PostInput) (*store.Post, error) {
	var post *store.Post
	err := s.run(ctx, "update_post", func(ctx context.Context) error {
		if err := validateStruct(in); err != nil {
			return err
		}
		if _, err := s.ownPost(ctx, actor, id); err != nil {
			return err
		}

		p, err := s.store.UpdatePost(ctx, id, store.PostUpdate{
			Title:     in.Title,
			Content:   in.Content,
			Excerpt:   in.Excerpt,
			Slug:      Slugify(in.Title),
			Published: in.Published,
		})
		if err != nil {
			return err
		}
		post = p

		s.inv.RevalidateTag(ctx, postTags(p)...)
		s.inv.RevalidatePath(ctx, "/posts", "/posts/"+id)
		return nil
	})
	return post, err
}

// DeletePost removes one of the actor's posts with its comments.
func (s *Service) DeletePost(ctx context.Context, actor Actor, id string) error {
	return s.run(ctx, "delete_post", func(ctx context.Context) error {
		p, err := s.ownPost(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := s.store.DeletePost(ctx, id); err != nil {
			return err
		}

		s.inv.RevalidateTag(ctx, append(postTags(p), tags.PostComments(id), tags.Comments)...)
		s.inv.RevalidatePath(ctx, "/posts", "/posts/"+id)
		return nil
	})
}

// TogglePublish flips the published flag of one of the actor's posts.
func (s *Service) TogglePublish(ctx context.Context, actor Actor, id string) (*store.Post, error) {
	var post *store.Post
	err := s.run(ctx, "toggle_publish", func(ctx context.Context) error {
		cur, err := s.ownPost(ctx, actor, id)
		if err != nil {
			return err
		}
		p, err := s.store.SetPublished(ctx, id, !cur.Published)
		if err != nil {
			return err
		}
		post = p

		s.inv.RevalidateTag(ctx, postTags(p)...)
		s.inv.RevalidatePath(ctx, "/posts", "/posts/"+id)
		return nil
	})
	return post, err
}

// CommentInput is a new comment. ParentID is set for replies.
type CommentInput struct {
	PostID   string `json:"postId" validate:"required"`
	ParentID string `json:"parentId"`
	Content  string `json:"content" validate:"required,min=1,max=1000"`
}

// CreateComment adds a comment by the actor.
func (s *Service) CreateComment(ctx context.Context, actor Actor, in CommentInput) (*store.Comment, error) {
	var comment *store.Comment
	err := s.run(ctx, "create_comment", func(ctx context.Context) error {
		if err := requireActor(actor); err != nil {
			return err
		}
		if err := validateStruct(in); err != nil {
			return err
		}

		c, err := s.store.CreateComment(ctx, store.NewComment{
			Content:  in.Content,
			PostID:   in.PostID,
			AuthorID: actor.ID,
			ParentID: in.ParentID,
		})
		if err != nil {
			return err
		}
		comment = c

		ts := []tags.Tag{tags.PostComments(c.PostID), tags.Comments}
		if c.ParentID != "" {
			ts = append(ts, tags.CommentReplies(c.ParentID))
		}
		s.inv.RevalidateTag(ctx, ts...)
		s.inv.RevalidatePath(ctx, "/posts/"+c.PostID)
		return nil
	})
	return comment, err
}

// CommentUpdate is the editable content of a comment.
type CommentUpdate struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

func (s *Service) ownComment(ctx context.Context, actor Actor, id string) (*store.Comment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	c, err := s.store.Comment(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != actor.ID {
		return nil, ErrForbidden
	}
	return c, nil
}

// UpdateComment edits one of the actor's comments.
func (s *Service) UpdateComment(ctx context.Context, actor Actor, id string, in CommentUpdate) (*store.Comment, error) {
	var comment *store.Comment
	err := s.run(ctx, "update_comment", func(ctx context.Context) error {
		if err := validateStruct(in); err != nil {
			return err
		}
		if _, err := s.ownComment(ctx, actor, id); err != nil {
			return err
		}
		c, err := s.store.UpdateComment(ctx, id, in.Content)
		if err != nil {
			return err
		}
		comment = c

		s.inv.RevalidateTag(ctx, tags.PostComments(c.PostID), tags.Comment(id))
		s.inv.RevalidatePath(ctx, "/posts/"+c.PostID)
		return nil
	})
	return comment, err
}

// DeleteComment removes one of the actor's comments and its replies.
func (s *Service) DeleteComment(ctx context.Context, actor Actor, id string) error {
	return s.run(ctx, "delete_comment", func(ctx context.Context) error {
		c, err := s.ownComment(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := s.store.DeleteComment(ctx, id); err != nil {
			return err
		}

		ts := []tags.Tag{tags.PostComments(c.PostID), tags.Comment(id), tags.Comments, tags.CommentReplies(id)}
		if c.ParentID != "" {
			ts = append(ts, tags.CommentReplies(c.ParentID))
		}
		s.inv.RevalidateTag(ctx, ts...)
		s.inv.RevalidatePath(ctx, "/posts/"+c.PostID)
		return nil
	})
}

// UserInput is the editable profile of the actor.
type UserInput struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Email string `json:"email" validate:"required,email"`
}

// UpdateUser edits the actor's own profile.
func (s *Service) UpdateUser(ctx context.Context, actor Actor, in UserInput) (*store.User, error) {
	var user *store.User
	err := s.run(ctx, "update_user", func(ctx context.Context) error {
		if err := requireActor(actor); err != nil {
			return err
		}
		if err := validateStruct(in); err != nil {
			return err
		}
		u, err := s.store.UpdateUser(ctx, actor.ID, store.UserUpdate{Name: in.Name, Email: in.Email})
		if err != nil {
			return err
		}
		user = u

		// Listings embed name and email.
		s.inv.RevalidateTag(ctx, tags.User(actor.ID), tags.UserProfile(actor.ID), tags.Users)
		s.inv.RevalidatePath(ctx, "/profile", "/me")
		return nil
	})
	return user, err
}

// PasswordInput changes the actor's password.
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// ChangePassword verifies the current password and stores a new bcrypt hash.
// Passwords are never cached, so nothing is revalidated.
func (s *Service) ChangePassword(ctx context.Context, actor Actor, in PasswordInput) error {
	return s.run(ctx, "change_password", func(ctx context.Context) error {
		if err := requireActor(actor); err != nil {
			return err
		}
		if err := validateStruct(in); err != nil {
			return err
		}

		u, err := s.store.User(ctx, actor.ID)
		if err != nil {
			return err
		}
		if len(u.PasswordHash) == 0 {
			// Social-login accounts have no password to change.
			return fmt.Errorf("%w: account has no password", ErrNotFound)
		}
		if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.CurrentPassword)); err != nil {
			return ErrInvalidPassword
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		return s.store.SetPassword(ctx, actor.ID, hash)
	})
}

// DeleteUser removes the actor's account with their posts and comments.
func (s *Service) DeleteUser(ctx context.Context, actor Actor) error {
	return s.run(ctx, "delete_user", func(ctx context.Context) error {
		if err := requireActor(actor); err != nil {
			return err
		}
		rm, err := s.store.DeleteUser(ctx, actor.ID)
		if err != nil {
			return err
		}

		ts := []tags.Tag{tags.User(actor.ID), tags.UserProfile(actor.ID), tags.Users, tags.Comments}
		var paths []string
		if len(rm.PostIDs) > 0 {
			ts = append(ts, tags.Posts, tags.UserPosts(actor.ID))
			paths = append(paths, "/posts")
		}
		for _, id := range rm.PostIDs {
			ts = append(ts, tags.Post(id), tags.PostComments(id))
			paths = append(paths, "/posts/"+id)
		}
		for _, c := range rm.Comments {
			ts = append(ts, tags.Comment(c.ID), tags.CommentReplies(c.ID))
			if c.ParentID != "" {
				ts = append(ts, tags.CommentReplies(c.ParentID))
			}
		}
		for _, id := range rm.CommentedPostIDs() {
			ts = append(ts, tags.PostComments(id))
			paths = append(paths, "/posts/"+id)
		}
		s.inv.RevalidatePath(ctx, paths...)
		s.inv.RevalidateTag(ctx, ts...)
		return nil
	})
}

// RoleInput assigns a role to a user.
type RoleInput struct {
	UserID string     `json:"userId" validate:"required"`
	Role   store.Role `json:"role" validate:"required,oneof=USER ADMIN OPERATOR"`
}

func requireAdmin(a Actor) error {
	if err := requireActor(a); err != nil {
		return err
	}
	if a.Role != store.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// ListRoles returns every user with their role, newest first. It reads the
// store directly so admins always see current roles.
func (s *Service) ListRoles(ctx context.Context, actor Actor) ([]store.UserProfile, error) {
	var out []store.UserProfile
	err := s.run(ctx, "list_roles", func(ctx context.Context) error {
		if err := requireAdmin(actor); err != nil {
			return err
		}
		var err error
		out, err = s.store.ListUsers(ctx, -1, 0)
		return err
	})
	return out, err
}

// UpdateRole changes a user's role. Admins cannot demote themselves.
func (s *Service) UpdateRole(ctx context.Context, actor Actor, in RoleInput) (*store.User, error) {
	var user *store.User
	err := s.run(ctx, "update_role", func(ctx context.Context) error {
		if err := requireAdmin(actor); err != nil {
			return err
		}
		if err := validateStruct(in); err != nil {
			return err
		}
		if _, err := s.store.User(ctx, in.UserID); err != nil {
			return err
		}
		if in.UserID == actor.ID && in.Role != store.RoleAdmin {
			return ErrSelfDemotion
		}

		u, err := s.store.SetRole(ctx, in.UserID, in.Role)
		if err != nil {
			return err
		}
		user = u

		s.inv.RevalidateTag(ctx, tags.User(in.UserID), tags.UserProfile(in.UserID), tags.Users)
		return nil
	})
	return user, err
}
