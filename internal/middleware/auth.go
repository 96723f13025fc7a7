package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/travel-planner/backend/internal/auth"
)

// TokenVerifier validates a bearer token and returns its email claim.
// *auth.Verifier satisfies it.
type TokenVerifier interface {
	VerifyEmail(token string) (string, error)
}

// NewAuthenticator returns a middleware that requires a valid
// "Authorization: Bearer <jwt>" header. The verified email is stored in the
// request context (see auth.EmailFromContext). Missing or invalid tokens get
// 401 with the standard error envelope; verification details are logged,
// never returned.
func NewAuthenticator(v TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			email, err := v.VerifyEmail(token)
			if err != nil {
				log.WarnContext(r.Context(), "token rejected", "error", err)
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithEmail(r.Context(), email)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
