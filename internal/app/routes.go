package app

import (
	"net/http"

	"github.com/complaintdesk/internal/handler"
	"github.com/complaintdesk/internal/middleware"
	"github.com/complaintdesk/internal/model"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.config.Cors.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.BearerToken)

	r.Get("/api/health", handler.Health(app.store, app.queue))

	authHandler := handler.NewAuthHandler(app.logger, app.accounts)
	complaintHandler := handler.NewComplaintHandler(app.logger, app.complaints, app.config.MaxPhotoBytes())

	// One per-IP budget shared by every unauthenticated POST.
	public := middleware.PerMinute(app.config.RateLimitPerMinute)

	for _, wf := range model.Workflows {
		r.Route("/api/auth/"+string(wf)+"-admin", func(r chi.Router) {
			r.Use(public)
			r.Post("/signup", authHandler.Signup(wf))
			r.Post("/login", authHandler.Login(wf))
		})

		r.Route("/api/"+string(wf)+"-complaints", func(r chi.Router) {
			r.With(public).Post("/", complaintHandler.Submit(wf))
			r.Get("/", complaintHandler.List(wf))
			r.Patch("/{id}/status", complaintHandler.UpdateStatus(wf))
		})
	}

	return r
}
