package store

import "time"

// Role is a user's authorization level.
type Role string

const (
	RoleUser     Role = "USER"
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleOperator:
		return true
	}
	return false
}

// User is the stored user record. It is never served as-is.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Image        string    `json:"image,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Category groups posts.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// Post is the stored post record.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Slug       string    `json:"slug"`
	Published  bool      `json:"published"`
	AuthorID   string    `json:"authorId"`
	CategoryID string    `json:"categoryId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Comment is the stored comment record. ParentID is empty for top-level comments.
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	ParentID  string    `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Author is the public projection of a user attached to posts and comments.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
	Bio   string `json:"bio,omitempty"`
}

// PostSummary is a post as it appears in listings.
type PostSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Excerpt      string    `json:"excerpt,omitempty"`
	Slug         string    `json:"slug"`
	Published    bool      `json:"published"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Author       Author    `json:"author"`
	Category     *Category `json:"category,omitempty"`
	CommentCount int       `json:"commentCount"`
}

// CommentView is a comment with its author.
type CommentView struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	ParentID   string    `json:"parentId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Author     Author    `json:"author"`
	ReplyCount int       `json:"replyCount"`
}

// PostDetail is a single post with its newest top-level comments.
type PostDetail struct {
	PostSummary
	Comments []CommentView `json:"comments"`
}

// UserProfile is the public view of a user with activity counts.
type UserProfile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Image        string    `json:"image,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	PostCount    int       `json:"postCount"`
	CommentCount int       `json:"commentCount"`
}

// PostFilter selects posts for a listing. Nil Published means both states.
type PostFilter struct {
	Published  *bool
	CategoryID string
	AuthorID   string
	Limit      int
	Offset     int
}
