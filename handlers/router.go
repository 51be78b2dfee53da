package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kevinaaaquil/bookreviews/logger"
	"github.com/kevinaaaquil/bookreviews/middleware"
	"github.com/kevinaaaquil/bookreviews/service"
	"golang.org/x/oauth2"
)

// Deps is everything the router needs to serve the API.
type Deps struct {
	Log           *logger.Logger
	Dev           bool
	CORSOrigin    string
	Store         service.Store
	Sessions      *middleware.Sessions
	Books         *service.Books
	Reviews       *service.Reviews
	Lookup        *service.MetadataLookup
	OAuth         *oauth2.Config
	UserInfoURL   string
	MaxCoverBytes int64
}

func NewRouter(d Deps) http.Handler {
	rs := responder{log: d.Log, dev: d.Dev}
	if d.UserInfoURL == "" {
		d.UserInfoURL = googleUserInfoURL
	}
	if d.Lookup == nil {
		d.Lookup = service.NewMetadataLookup()
	}
	if d.CORSOrigin == "" {
		d.CORSOrigin = "*"
	}
	authHandler := &AuthHandler{
		responder:   rs,
		OAuth:       d.OAuth,
		UserInfoURL: d.UserInfoURL,
		Users:       d.Store,
		Sessions:    d.Sessions,
	}
	booksHandler := &BooksHandler{
		responder:     rs,
		Books:         d.Books,
		Reviews:       d.Reviews,
		Lookup:        d.Lookup,
		MaxCoverBytes: d.MaxCoverBytes,
	}
	reviewsHandler := &ReviewsHandler{responder: rs, Reviews: d.Reviews}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(d.Sessions.Middleware)
	r.Use(middleware.AccessLog(d.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.CORSOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "not found: the requested URL was not found on this server")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Book Review API is running."))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.Google)
		r.Get("/google/callback", authHandler.GoogleCallback)
		r.Get("/logout", authHandler.Logout)
		r.With(middleware.RequireSession).Get("/user", authHandler.CurrentUser)
	})

	r.Route("/books", func(r chi.Router) {
		r.Get("/", booksHandler.List)
		r.Get("/{id}", booksHandler.Get)
		r.Get("/{id}/reviews", booksHandler.ListReviews)
		r.Get("/{id}/cover", booksHandler.Cover)
		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			r.Post("/", booksHandler.Create)
			r.Put("/{id}", booksHandler.Update)
			r.Delete("/{id}", booksHandler.Delete)
			r.Post("/{id}/reviews", booksHandler.CreateReview)
			r.Put("/{id}/cover", booksHandler.PutCover)
			r.Get("/lookup/{isbn}", booksHandler.LookupISBN)
		})
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Put("/{id}", reviewsHandler.Update)
		r.Delete("/{id}", reviewsHandler.Delete)
	})

	return r
}
