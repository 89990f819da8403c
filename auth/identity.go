package auth

import (
	"time"

	"github.com/jonwraymond/postboard/store"
)

// Identity is the authenticated user of a request.
type Identity struct {
	// UserID is the token subject and the store user id.
	UserID string

	Email string
	Name  string
	Image string

	// Role comes from the token until the user is provisioned, then from the store.
	Role store.Role

	// Claims contains the raw claims from the token.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the identity holds role.
func (id *Identity) HasRole(role store.Role) bool {
	return id != nil && id.Role == role
}

// IsAdmin reports whether the identity holds the ADMIN role.
func (id *Identity) IsAdmin() bool {
	return id.HasRole(store.RoleAdmin)
}

// IsExpired reports whether the identity expired before now.
func (id *Identity) IsExpired(now time.Time) bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return now.After(id.ExpiresAt)
}

// NewUser returns the fields used to provision the identity's user record.
func (id *Identity) NewUser() store.NewUser {
	return store.NewUser{
		ID:    id.UserID,
		Email: id.Email,
		Name:  id.Name,
		Image: id.Image,
		Role:  store.RoleUser,
	}
}
