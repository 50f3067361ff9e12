package http

import (
	"net/http"

	"github.com/atinyakov/GophNotes/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// RouterOptions configures the cross-cutting middleware of NewRouter.
type RouterOptions struct {
	// AllowedOrigins lists CORS origins. Empty disables CORS handling.
	AllowedOrigins []string
	// Tokens validates bearer tokens. Nil accepts client certificates only.
	Tokens middleware.TokenParser
	// PublicLimiter throttles the public note endpoint. Nil disables it.
	PublicLimiter *middleware.RateLimiter
}

// NewRouter constructs and returns an HTTP handler that serves
// the GophNotes API.
//
// Routes:
//
//	POST   /api/register          → authHandler.Register
//	POST   /api/login             → authHandler.Login
//	GET    /api/public/note/{id}  → noteHandler.GetPublic (rate limited)
//	POST   /api/notes             → noteHandler.Create
//	GET    /api/notes             → noteHandler.List
//	GET    /api/notes/{id}        → noteHandler.Get
//	PUT    /api/notes/{id}        → noteHandler.Update
//	PATCH  /api/notes/{id}        → noteHandler.PartialUpdate
//	DELETE /api/notes/{id}        → noteHandler.Delete
//
// The /api/notes routes require an authenticated principal.
func NewRouter(
	authHandler *AuthHandler,
	noteHandler *NoteHandler,
	logger *zap.Logger,
	opts RouterOptions,
) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", PasswordHeader},
			ExposedHeaders: []string{"Location"},
			MaxAge:         86400,
		}).Handler)
	}
	r.Use(chiMiddleware.AllowContentType("application/json", "application/merge-patch+json"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			if opts.PublicLimiter != nil {
				r.Use(opts.PublicLimiter.Handler)
			}
			r.Get("/public/note/{id}", noteHandler.GetPublic)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.Tokens))
			r.Route("/notes", func(r chi.Router) {
				r.Post("/", noteHandler.Create)
				r.Get("/", noteHandler.List)
				r.Get("/{id}", noteHandler.Get)
				r.Put("/{id}", noteHandler.Update)
				r.Patch("/{id}", noteHandler.PartialUpdate)
				r.Delete("/{id}", noteHandler.Delete)
			})
		})
	})

	return r
}
