package auth

import "context"

type ctxKey struct{}

// WithEmail returns a copy of ctx carrying the verified email claim.
func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKey{}, email)
}

// EmailFromContext returns the verified email placed by WithEmail.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(ctxKey{}).(string)
	return email, ok && email != ""
}
