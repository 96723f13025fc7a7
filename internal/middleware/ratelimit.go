package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pkordes/travel-planner/backend/internal/auth"
)

// Limiter decides whether one more call for key is allowed.
// *ratelimit.FixedWindowLimiter satisfies it.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewRateLimiter returns a middleware that throttles callers by their verified
// email. It must run after NewAuthenticator. Limiter errors reject the
// request, the same as an exhausted quota.
func NewRateLimiter(l Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, _ := auth.EmailFromContext(r.Context())
			ok, err := l.Allow(r.Context(), email)
			if err != nil {
				log.ErrorContext(r.Context(), "rate limiter unavailable", "error", err)
			}
			if !ok {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many plan generation requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
