package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/travel-planner/backend/internal/auth"
)

// GeneratePlan handles POST /api/plans/generate.
// The owner is always the authenticated caller, never a body field.
func (s *Server) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var body GeneratePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return
		}
		requestError(w, "malformed JSON body")
		return
	}

	plan, err := s.plans.Generate(r.Context(), email, requestToPlanRequest(body))
	if err != nil {
		s.serviceError(w, r, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, planToResponse(plan))
}

// ListPlans handles GET /api/plans.
// Responds with [] (never null) when the caller has no plans.
func (s *Server) ListPlans(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	plans, err := s.plans.List(r.Context(), email)
	if err != nil {
		s.serviceError(w, r, err, "plans not found")
		return
	}
	writeJSON(w, http.StatusOK, plansToResponse(plans))
}

// GetPlan handles GET /api/plans/{id}.
func (s *Server) GetPlan(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		requestError(w, "plan id must be a positive integer")
		return
	}

	plan, err := s.plans.Get(r.Context(), email, id)
	if err != nil {
		s.serviceError(w, r, err, "plan not found")
		return
	}
	writeJSON(w, http.StatusOK, planToResponse(plan))
}
