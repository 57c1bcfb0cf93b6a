package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/imsulglobal/community-portal/internal/config"
	"github.com/imsulglobal/community-portal/internal/logger"
	"github.com/imsulglobal/community-portal/internal/service"
)

// Handlers bundles everything NewRouter needs to wire the routes.
type Handlers struct {
	Workshops  *WorkshopHandler
	Volunteers *VolunteerHandler
	Articles   *ArticleHandler
	Newsletter *NewsletterHandler
	Home       *HomeHandler
	Auth       *AuthHandler
	AuthSvc    *service.AuthService
}

// NewRouter assembles the chi router with the public site, the staff
// surface under /admin, and the operational endpoints.
func NewRouter(cfg *config.Config, h Handlers, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(logger.Middleware(log))
	r.Use(CORS)
	r.Use(Metrics)

	limit := RateLimit(cfg.RateLimit.Enabled, cfg.RateLimit.Requests, cfg.RateLimit.Window, log)

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/home", h.Home.Page)

	r.Get("/workshops", h.Workshops.List)
	r.Get("/workshops/{id}", h.Workshops.Get)
	r.With(limit).Post("/workshops/{id}/enroll", h.Workshops.Enroll)

	r.Get("/volunteer-positions", h.Volunteers.List)
	r.Get("/volunteer-positions/{id}", h.Volunteers.Get)
	r.With(limit).Post("/volunteer-positions/{id}/apply", h.Volunteers.Apply)

	r.Get("/articles", h.Articles.List)
	r.Get("/articles/{slug}", h.Articles.Get)

	r.With(limit).Post("/newsletter/subscribe", h.Newsletter.Subscribe)
	r.With(limit).Post("/newsletter/unsubscribe", h.Newsletter.Unsubscribe)

	r.With(limit).Post("/auth/login", h.Auth.Login)

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireStaff(h.AuthSvc))

		r.Post("/workshops", h.Workshops.Create)
		r.Get("/workshops", h.Workshops.AdminList)
		r.Put("/workshops/{id}", h.Workshops.Update)
		r.Delete("/workshops/{id}", h.Workshops.Delete)
		r.Post("/workshops/{id}/close", h.Workshops.Close)
		r.Post("/workshops/{id}/reopen", h.Workshops.Reopen)
		r.Get("/workshops/{id}/enrollments", h.Workshops.ListEnrollments)
		r.Get("/workshops/{id}/enrollments/export", h.Workshops.Export)
		r.Patch("/enrollments/{id}/status", h.Workshops.Transition)
		r.Post("/enrollments/status", h.Workshops.BulkTransition)
		r.Delete("/enrollments/{id}", h.Workshops.DeleteEnrollment)

		r.Post("/volunteer-positions", h.Volunteers.Create)
		r.Get("/volunteer-positions", h.Volunteers.AdminList)
		r.Put("/volunteer-positions/{id}", h.Volunteers.Update)
		r.Delete("/volunteer-positions/{id}", h.Volunteers.Delete)
		r.Post("/volunteer-positions/{id}/close", h.Volunteers.Close)
		r.Post("/volunteer-positions/{id}/reopen", h.Volunteers.Reopen)
		r.Get("/volunteer-positions/{id}/applications", h.Volunteers.ListApplications)
		r.Get("/volunteer-positions/{id}/applications/export", h.Volunteers.Export)
		r.Patch("/applications/{id}/status", h.Volunteers.Transition)
		r.Post("/applications/status", h.Volunteers.BulkTransition)
		r.Delete("/applications/{id}", h.Volunteers.DeleteApplication)

		r.Post("/articles", h.Articles.Create)
		r.Get("/articles", h.Articles.AdminList)
		r.Put("/articles/{id}", h.Articles.Update)
		r.Delete("/articles/{id}", h.Articles.Delete)

		r.Get("/newsletter/subscribers", h.Newsletter.List)
	})

	return r
}
