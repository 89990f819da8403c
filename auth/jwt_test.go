package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/postboard/store"
)

var (
	testSecret = []byte("test-secret-at-least-32-bytes-long!!")
	testNow    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func signToken(t testing.TB, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return tok
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":     "user-1",
		"email":   "alice@example.com",
		"name":    "Alice",
		"picture": "https://example.com/a.png",
		"role":    "ADMIN",
		"iss":     "postboard",
		"iat":     testNow.Add(-time.Minute).Unix(),
		"exp":     testNow.Add(time.Hour).Unix(),
	}
}

func newTestJWT(t testing.TB) *JWTAuthenticator {
	t.Helper()
	a, err := NewJWTAuthenticator(JWTConfig{
		Secret: testSecret,
		Issuer: "postboard",
		Now:    func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}
	return a
}

func bearer(tok string) *AuthRequest {
	return &AuthRequest{Headers: http.Header{"Authorization": {"Bearer " + tok}}}
}

func TestNewJWTAuthenticator(t *testing.T) {
	if _, err := NewJWTAuthenticator(JWTConfig{}); err == nil {
		t.Error("NewJWTAuthenticator() without secret should fail")
	}

	a := newTestJWT(t)
	if a.Name() != "jwt" {
		t.Errorf("Name() = %v, want jwt", a.Name())
	}
	if a.config.CookieName != "session-token" || a.config.RoleClaim != "role" {
		t.Errorf("defaults = %+v", a.config)
	}
}

func TestJWTAuthenticator_Valid(t *testing.T) {
	a := newTestJWT(t)

	id, err := a.Authenticate(context.Background(), bearer(signToken(t, testSecret, validClaims())))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", id.UserID)
	}
	if id.Email != "alice@example.com" || id.Name != "Alice" || id.Image != "https://example.com/a.png" {
		t.Errorf("profile fields = %+v", id)
	}
	if id.Role != store.RoleAdmin {
		t.Errorf("Role = %q, want ADMIN", id.Role)
	}
	if !id.ExpiresAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v", id.ExpiresAt)
	}
	if !id.IssuedAt.Equal(testNow.Add(-time.Minute)) {
		t.Errorf("IssuedAt = %v", id.IssuedAt)
	}
}

func TestJWTAuthenticator_Cookie(t *testing.T) {
	a := newTestJWT(t)
	req := &AuthRequest{Cookies: []*http.Cookie{{Name: "session-token", Value: signToken(t, testSecret, validClaims())}}}

	id, err := a.Authenticate(context.Background(), req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", id.UserID)
	}
}

func TestJWTAuthenticator_Rejections(t *testing.T) {
	a := newTestJWT(t)

	with := func(mut func(c jwt.MapClaims)) string {
		c := validClaims()
		mut(c)
		return signToken(t, testSecret, c)
	}

	tests := []struct {
		name string
		req  *AuthRequest
		want error
	}{
		{"no credentials", &AuthRequest{}, ErrMissingCredentials},
		{"wrong scheme", &AuthRequest{Headers: http.Header{"Authorization": {"Basic abc"}}}, ErrMissingCredentials},
		{"malformed", bearer("not-a-jwt"), ErrTokenMalformed},
		{"expired", bearer(with(func(c jwt.MapClaims) { c["exp"] = testNow.Add(-time.Minute).Unix() })), ErrTokenExpired},
		{"no expiry", bearer(with(func(c jwt.MapClaims) { delete(c, "exp") })), ErrInvalidCredentials},
		{"wrong issuer", bearer(with(func(c jwt.MapClaims) { c["iss"] = "someone-else" })), ErrInvalidCredentials},
		{"no subject", bearer(with(func(c jwt.MapClaims) { delete(c, "sub") })), ErrInvalidCredentials},
		{"wrong secret", bearer(signToken(t, []byte("another-secret-of-sufficient-size!!"), validClaims())), ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := a.Authenticate(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.want)
			}
			if id != nil {
				t.Errorf("Authenticate() identity = %+v, want nil", id)
			}
		})
	}
}

func TestJWTAuthenticator_RoleClaim(t *testing.T) {
	a := newTestJWT(t)

	tests := []struct {
		name  string
		value any
		want  store.Role
	}{
		{"operator", "OPERATOR", store.RoleOperator},
		{"unknown", "ROOT", store.RoleUser},
		{"lowercase", "admin", store.RoleUser},
		{"not a string", 7, store.RoleUser},
		{"absent", nil, store.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClaims()
			if tt.value == nil {
				delete(c, "role")
			} else {
				c["role"] = tt.value
			}
			id, err := a.Authenticate(context.Background(), bearer(signToken(t, testSecret, c)))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if id.Role != tt.want {
				t.Errorf("Role = %q, want %q", id.Role, tt.want)
			}
		})
	}
}
