package handler

import (
	"net/http"

	"github.com/pkordes/travel-planner/backend/internal/auth"
)

// GetMe handles GET /api/users/me.
// Responds 404 until the caller has generated a first plan.
func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	u, err := s.users.Me(r.Context(), email)
	if err != nil {
		s.serviceError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, userToResponse(u))
}
