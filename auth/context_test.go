package auth

import (
	"context"
	"testing"

	"github.com/jonwraymond/postboard/store"
)

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	if got := IdentityFromContext(ctx); got != nil {
		t.Errorf("IdentityFromContext() on empty context = %v, want nil", got)
	}

	ctx = WithIdentity(ctx, &Identity{UserID: "user123", Role: store.RoleAdmin})

	got := IdentityFromContext(ctx)
	if got == nil {
		t.Fatal("IdentityFromContext() = nil, want identity")
	}
	if got.UserID != "user123" {
		t.Errorf("UserID = %v, want user123", got.UserID)
	}
	if got.Role != store.RoleAdmin {
		t.Errorf("Role = %v, want ADMIN", got.Role)
	}
}

func TestUserIDFromContext(t *testing.T) {
	ctx := context.Background()

	if got := UserIDFromContext(ctx); got != "" {
		t.Errorf("UserIDFromContext() = %v, want empty", got)
	}

	ctx = WithIdentity(ctx, &Identity{UserID: "user123"})
	if got := UserIDFromContext(ctx); got != "user123" {
		t.Errorf("UserIDFromContext() = %v, want user123", got)
	}
}
