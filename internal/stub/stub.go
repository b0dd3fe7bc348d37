// Package stub is an in-process stand-in for the three backends the
// client talks to: the marketplace REST API, the Supabase auth
// endpoints, and the Supabase storage endpoints. It keeps everything
// in memory and speaks the same wire formats, including the error
// envelope, so the client code paths run unchanged against it.
//
// It exists for local development and integration tests; it is not a
// real backend and holds no data across restarts.
package stub

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const tokenTTL = time.Hour

// Server carries the shared state behind the HTTP surface.
type Server struct {
	cat    *catalog
	secret []byte
	now    func() time.Time
}

// New builds an empty server. secret signs the access tokens it
// issues.
func New(secret string) *Server {
	return &Server{
		cat:    newCatalog(),
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Handler mounts every route. Trailing slashes are stripped so
// clients that append them still land on the same handlers.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.listItems)
			r.With(s.requireUser).Post("/", s.createItem)
			r.With(s.requireUser).Get("/user/favorites", s.listFavorites)
			r.With(s.requireUser).Get("/user/view-history", s.listViewHistory)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getItem)
				r.With(s.requireUser).Put("/", s.updateItem)
				r.With(s.requireUser).Delete("/", s.deleteItem)
				r.With(s.requireUser).Post("/view", s.recordView)
				r.With(s.requireUser).Post("/favorite", s.toggleFavorite)
				r.With(s.optionalUser).Get("/stats", s.itemStats)
			})
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/", s.getProfile)
			r.Put("/", s.updateProfile)
			r.Post("/avatar", s.uploadAvatar)
		})

		r.Route("/moderation/admin", func(r chi.Router) {
			r.Use(s.requireUser, s.requireAdmin)
			r.Get("/review-queue", s.reviewQueue)
			r.Post("/review", s.submitReview)
			r.Get("/stats", s.moderationStats)
		})
	})

	r.Route("/auth/v1", func(r chi.Router) {
		r.Use(requireAPIKey)
		r.Post("/signup", s.authSignUp)
		r.Post("/token", s.authToken)
		r.Post("/logout", s.authSignOut)
		r.Put("/user", s.authUpdateUser)
	})

	r.Route("/storage/v1/object", func(r chi.Router) {
		r.Get("/public/{bucket}/*", s.serveObject)
		r.With(requireAPIKey).Post("/{bucket}/*", s.putObject)
	})

	return r
}
