package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthRequest_GetHeader(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		key     string
		want    string
	}{
		{"nil headers", nil, "Authorization", ""},
		{"missing", http.Header{}, "Authorization", ""},
		{"present", http.Header{"Authorization": {"Bearer abc"}}, "Authorization", "Bearer abc"},
		{"canonicalized", http.Header{"X-Custom": {"v"}}, "x-custom", "v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &AuthRequest{Headers: tt.headers}
			if got := req.GetHeader(tt.key); got != tt.want {
				t.Errorf("GetHeader(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestRequestFromHTTP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer abc")
	r.AddCookie(&http.Cookie{Name: "session-token", Value: "tok"})

	req := RequestFromHTTP(r)
	if got := req.GetHeader("Authorization"); got != "Bearer abc" {
		t.Errorf("GetHeader() = %q", got)
	}
	if got := req.GetCookie("session-token"); got != "tok" {
		t.Errorf("GetCookie() = %q, want tok", got)
	}
	if got := req.GetCookie("other"); got != "" {
		t.Errorf("GetCookie(other) = %q, want empty", got)
	}
}

func TestAuthenticatorFunc(t *testing.T) {
	f := AuthenticatorFunc(func(_ context.Context, req *AuthRequest) (*Identity, error) {
		return &Identity{UserID: req.GetHeader("X-User")}, nil
	})

	if f.Name() != "func" {
		t.Errorf("Name() = %q, want func", f.Name())
	}
	id, err := f.Authenticate(context.Background(), &AuthRequest{Headers: http.Header{"X-User": {"u1"}}})
	if err != nil || id.UserID != "u1" {
		t.Errorf("Authenticate() = (%v, %v)", id, err)
	}
}
