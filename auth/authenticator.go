package auth

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials of a request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: ErrMissingCredentials when the request carries none; another
//   sentinel from this package when the credentials are rejected.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Authenticate returns the identity carried by req.
	Authenticate(ctx context.Context, req *AuthRequest) (*Identity, error)
}

// AuthRequest contains the information needed for authentication.
type AuthRequest struct {
	// Headers contains the HTTP headers.
	Headers http.Header

	// Cookies contains the request cookies.
	Cookies []*http.Cookie
}

// RequestFromHTTP builds an AuthRequest from an HTTP request.
func RequestFromHTTP(r *http.Request) *AuthRequest {
	return &AuthRequest{Headers: r.Header, Cookies: r.Cookies()}
}

// GetHeader returns the first value for a header, or empty string.
func (r *AuthRequest) GetHeader(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// GetCookie returns the value of the named cookie, or empty string.
func (r *AuthRequest) GetCookie(name string) string {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, req *AuthRequest) (*Identity, error)

// Name returns "func".
func (f AuthenticatorFunc) Name() string { return "func" }

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, req *AuthRequest) (*Identity, error) {
	return f(ctx, req)
}
