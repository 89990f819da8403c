package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/postboard/store"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Secret is the HMAC key shared with the token issuer.
	Secret []byte

	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string

	// Audience is the expected token audience (aud claim). Empty skips the check.
	Audience string

	// HeaderName is the header containing the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the prefix before the token in the header.
	// Default: "Bearer "
	TokenPrefix string

	// CookieName is the session cookie read when the header is absent.
	// Default: "session-token"
	CookieName string

	// RoleClaim is the claim carrying the user's role.
	// Default: "role"
	RoleClaim string

	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration

	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

// JWTAuthenticator validates HMAC-signed session tokens.
type JWTAuthenticator struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a new JWT authenticator.
func NewJWTAuthenticator(config JWTConfig) (*JWTAuthenticator, error) {
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("auth: jwt secret is required")
	}
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	if config.CookieName == "" {
		config.CookieName = "session-token"
	}
	if config.RoleClaim == "" {
		config.RoleClaim = "role"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(config.Leeway),
		jwt.WithTimeFunc(config.Now),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{config: config, parser: jwt.NewParser(opts...)}, nil
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// token returns the raw token from the header, or from the cookie.
func (a *JWTAuthenticator) token(req *AuthRequest) string {
	if header := req.GetHeader(a.config.HeaderName); header != "" {
		if tok, ok := strings.CutPrefix(header, a.config.TokenPrefix); ok {
			return strings.TrimSpace(tok)
		}
	}
	return req.GetCookie(a.config.CookieName)
}

// Authenticate validates the session token.
func (a *JWTAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*Identity, error) {
	raw := a.token(req)
	if raw == "" {
		return nil, ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.config.Secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrTokenMalformed
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	id := a.buildIdentity(claims)
	if id.UserID == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidCredentials)
	}
	return id, nil
}

func (a *JWTAuthenticator) buildIdentity(claims jwt.MapClaims) *Identity {
	id := &Identity{
		Role:   store.RoleUser,
		Claims: make(map[string]any, len(claims)),
	}
	for k, v := range claims {
		id.Claims[k] = v
	}

	id.UserID, _ = claims.GetSubject()
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	id.Image, _ = claims["picture"].(string)

	if r, ok := claims[a.config.RoleClaim].(string); ok && store.Role(r).Valid() {
		id.Role = store.Role(r)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	return id
}

var _ Authenticator = (*JWTAuthenticator)(nil)
