package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jonwraymond/postboard/actions"
	"github.com/jonwraymond/postboard/auth"
	"github.com/jonwraymond/postboard/cache"
	"github.com/jonwraymond/postboard/health"
	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/queries"
	"github.com/jonwraymond/postboard/resilience"
	"github.com/jonwraymond/postboard/store"
)

// Deps are the components the server routes to. Queries, Actions and
// Authenticator are required.
type Deps struct {
	Queries       *queries.Builder
	Actions       *actions.Service
	Authenticator auth.Authenticator
	Users         auth.Provisioner

	// PathCache backs the route-level response cache. It shares invalidation
	// ordering with the cache Actions revalidates. Nil disables it.
	PathCache *cache.Cache

	// Limiters guards the api, auth and admin paths. Nil disables rate limiting.
	Limiters *resilience.Limiters

	// Health is mounted at /healthz, /readyz and /health when set.
	Health *health.Aggregator

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	Middleware *observe.Middleware
}

// Options tunes the HTTP surface.
type Options struct {
	CORSOrigins []string
	PathTTL     time.Duration
}

// Server is the HTTP front of postboard.
type Server struct {
	deps    Deps
	opts    Options
	log     observe.Logger
	authMW  *auth.Middleware
	paths   *PathCache
	handler http.Handler
}

// New builds the router.
func New(deps Deps, opts Options) *Server {
	if deps.Middleware == nil {
		deps.Middleware = observe.NopMiddleware()
	}
	s := &Server{
		deps: deps,
		opts: opts,
		log:  deps.Middleware.Logger().With("server"),
	}
	s.authMW = auth.NewMiddleware(deps.Authenticator, deps.Users, deps.Middleware.Logger(), s.writeError)
	s.paths = NewPathCache(deps.PathCache, opts.PathTTL, deps.Middleware.Metrics())
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.deps.Limiters != nil {
		r.Use(resilience.Guard(s.deps.Limiters, s.deps.Middleware.Metrics()))
	}
	r.Use(s.authMW.Authenticate)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusNotFound, CodeNotFound, "resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed", nil)
	})

	if s.deps.Health != nil {
		health.Mount(r, s.deps.Health)
	}
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics)
	}

	requireUser := s.authMW.RequireUser

	r.Route("/api", func(r chi.Router) {
		r.Route("/posts", func(r chi.Router) {
			r.With(s.paths.Route("route.posts", postsPageTags)).Get("/", s.listPosts)
			r.With(requireUser).Post("/", s.createPost)

			r.Route("/{id}", func(r chi.Router) {
				r.With(s.paths.Route("route.post", postPageTags)).Get("/", s.getPost)
				r.With(s.paths.Route("route.post_comments", postPageTags)).Get("/comments", s.listComments)

				r.Group(func(r chi.Router) {
					r.Use(requireUser)
					r.Put("/", s.updatePost)
					r.Delete("/", s.deletePost)
					r.Post("/publish", s.togglePublish)
					r.Post("/comments", s.createComment)
				})
			})
		})

		r.Route("/comments/{id}", func(r chi.Router) {
			r.Use(requireUser)
			r.Put("/", s.updateComment)
			r.Delete("/", s.deleteComment)
		})

		r.Get("/users", s.listUsers)
		r.Get("/users/{id}", s.getUser)

		r.Route("/me", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", s.getMe)
			r.Patch("/", s.updateMe)
			r.Delete("/", s.deleteMe)
			r.Post("/password", s.changePassword)
		})

		r.Route("/admin/roles", func(r chi.Router) {
			r.Use(requireUser, s.authMW.RequireRole(store.RoleAdmin))
			r.Get("/", s.listRoles)
			r.Patch("/", s.updateRole)
		})
	})

	return r
}
