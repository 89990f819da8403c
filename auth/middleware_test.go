package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonwraymond/postboard/store"
)

type fakeUsers struct {
	role  store.Role
	err   error
	calls int
	last  store.NewUser
}

func (f *fakeUsers) EnsureUser(_ context.Context, in store.NewUser) (*store.User, error) {
	f.calls++
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &store.User{ID: in.ID, Email: in.Email, Name: in.Name, Role: f.role}, nil
}

// headerAuth trusts X-User and X-Role; tests only.
var headerAuth = AuthenticatorFunc(func(_ context.Context, req *AuthRequest) (*Identity, error) {
	user := req.GetHeader("X-User")
	if user == "" {
		return nil, ErrMissingCredentials
	}
	if user == "bad" {
		return nil, ErrTokenExpired
	}
	return &Identity{UserID: user, Role: store.Role(req.GetHeader("X-Role"))}, nil
})

func whoami() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(id.UserID + "/" + string(id.Role)))
	})
}

func serve(h http.Handler, user, role string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if user != "" {
		r.Header.Set("X-User", user)
	}
	if role != "" {
		r.Header.Set("X-Role", role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestMiddleware_Authenticate(t *testing.T) {
	m := NewMiddleware(headerAuth, nil, nil, nil)
	h := m.Authenticate(whoami())

	tests := []struct {
		name string
		user string
		want string
	}{
		{"anonymous", "", "anonymous"},
		{"rejected token", "bad", "anonymous"},
		{"valid", "u1", "u1/USER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role := ""
			if tt.user == "u1" {
				role = "USER"
			}
			rec := serve(h, tt.user, role)
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_RequireUser(t *testing.T) {
	users := &fakeUsers{role: store.RoleAdmin}
	m := NewMiddleware(headerAuth, users, nil, nil)
	h := m.Authenticate(m.RequireUser(whoami()))

	if rec := serve(h, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}
	if users.calls != 0 {
		t.Errorf("EnsureUser calls = %d, want 0", users.calls)
	}

	// The stored role overrides the token role.
	rec := serve(h, "u1", "USER")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "u1/ADMIN" {
		t.Errorf("body = %q, want u1/ADMIN", got)
	}
	if users.last.ID != "u1" || users.last.Role != store.RoleUser {
		t.Errorf("EnsureUser input = %+v", users.last)
	}
}

func TestMiddleware_RequireUser_ProvisionError(t *testing.T) {
	users := &fakeUsers{err: errors.New("disk full")}
	var handled error
	m := NewMiddleware(headerAuth, users, nil, func(w http.ResponseWriter, _ *http.Request, err error) {
		handled = err
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	h := m.Authenticate(m.RequireUser(whoami()))

	rec := serve(h, "u1", "USER")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if handled == nil || handled.Error() != "disk full" {
		t.Errorf("handled error = %v", handled)
	}
}

func TestMiddleware_RequireRole(t *testing.T) {
	m := NewMiddleware(headerAuth, nil, nil, nil)
	h := m.Authenticate(m.RequireRole(store.RoleAdmin)(whoami()))

	tests := []struct {
		name       string
		user, role string
		wantStatus int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"user", "u1", "USER", http.StatusForbidden},
		{"operator", "u1", "OPERATOR", http.StatusForbidden},
		{"admin", "u1", "ADMIN", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(h, tt.user, tt.role); rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
