// Package handler implements the HTTP handlers for the travel planner API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, plan.go, user.go) but share the same Server struct so
// they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/travel-planner/backend/internal/domain"
)

// PlanServicer defines the business operations the plan handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database, the LLM, or the service layer.
type PlanServicer interface {
	Generate(ctx context.Context, email string, req domain.PlanRequest) (domain.TravelPlan, error)
	List(ctx context.Context, email string) ([]domain.TravelPlan, error)
	Get(ctx context.Context, email string, id int64) (domain.TravelPlan, error)
}

// UserServicer defines the user operations the handlers depend on.
type UserServicer interface {
	Me(ctx context.Context, email string) (domain.User, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	plans PlanServicer
	users UserServicer
	log   *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(plans PlanServicer, users UserServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{plans: plans, users: users, log: log}
}

// Middlewares are applied to the authenticated /api routes.
type Middlewares struct {
	// Authenticate must place the verified email in the request context.
	Authenticate func(http.Handler) http.Handler
	// LimitGenerate throttles POST /api/plans/generate. Optional.
	LimitGenerate func(http.Handler) http.Handler
}

// Routes registers every endpoint on r.
//
//	GET  /healthz
//	GET  /openapi.yaml
//	POST /api/plans/generate
//	GET  /api/plans
//	GET  /api/plans/{id}
//	GET  /api/users/me
func (s *Server) Routes(r chi.Router, mw Middlewares) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api", func(r chi.Router) {
		if mw.Authenticate != nil {
			r.Use(mw.Authenticate)
		}
		r.Route("/plans", func(r chi.Router) {
			r.With(optional(mw.LimitGenerate)...).Post("/generate", s.GeneratePlan)
			r.Get("/", s.ListPlans)
			r.Get("/{id}", s.GetPlan)
		})
		r.Get("/users/me", s.GetMe)
	})
}

func optional(mw func(http.Handler) http.Handler) []func(http.Handler) http.Handler {
	if mw == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{mw}
}
