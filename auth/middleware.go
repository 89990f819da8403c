package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/store"
)

// Provisioner returns the stored user for an identity, creating it on first
// sight. *store.BadgerStore implements it.
type Provisioner interface {
	EnsureUser(ctx context.Context, in store.NewUser) (*store.User, error)
}

var _ Provisioner = (*store.BadgerStore)(nil)

// ErrorHandler writes the response for a rejected request. err wraps
// ErrUnauthenticated or ErrForbidden, or is an internal error.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware attaches identities to requests and guards routes.
type Middleware struct {
	authn   Authenticator
	users   Provisioner
	log     observe.Logger
	onError ErrorHandler
}

// NewMiddleware creates a Middleware. A nil onError writes plain status codes.
func NewMiddleware(authn Authenticator, users Provisioner, log observe.Logger, onError ErrorHandler) *Middleware {
	if log == nil {
		log = observe.NopLogger()
	}
	if onError == nil {
		onError = plainError
	}
	return &Middleware{authn: authn, users: users, log: log.With("auth"), onError: onError}
}

func plainError(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	case errors.Is(err, ErrForbidden):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// Authenticate attaches the identity of a valid token to the request context.
// Requests without a valid token continue anonymously.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := m.authn.Authenticate(ctx, RequestFromHTTP(r))
		switch {
		case err == nil:
			ctx = WithIdentity(ctx, id)
		case errors.Is(err, ErrMissingCredentials):
		default:
			m.log.Debug(ctx, "token rejected", observe.F("authenticator", m.authn.Name()), observe.Err(err))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects anonymous requests and provisions the user record.
// The identity's role is replaced by the stored role.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := IdentityFromContext(ctx)
		if id == nil {
			m.onError(w, r, ErrUnauthenticated)
			return
		}

		if m.users != nil {
			u, err := m.users.EnsureUser(ctx, id.NewUser())
			if err != nil {
				m.log.Error(ctx, "provision user failed", observe.F("user_id", id.UserID), observe.Err(err))
				m.onError(w, r, err)
				return
			}
			provisioned := *id
			provisioned.Role = u.Role
			ctx = WithIdentity(ctx, &provisioned)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose identity lacks role. Use it after
// RequireUser so the stored role is checked.
func (m *Middleware) RequireRole(role store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				m.onError(w, r, ErrUnauthenticated)
				return
			}
			if !id.HasRole(role) {
				m.log.Warn(r.Context(), "role required",
					observe.F("user_id", id.UserID),
					observe.F("role", string(id.Role)),
					observe.F("required", string(role)),
				)
				m.onError(w, r, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
