package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const ctxAdminKey contextKey = "admin"

// TokenValidator verifies admin bearer tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (subject, role string, err error)
}

// AdminAuth authenticates requests by the Bearer token issued at login and
// puts the admin's name into the request context.
func AdminAuth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			subject, _, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), subject)))
		})
	}
}

// AdminFromCtx returns the authenticated admin name or "".
func AdminFromCtx(ctx context.Context) string {
	name, _ := ctx.Value(ctxAdminKey).(string)
	return name
}

// WithAdmin returns a context carrying the given admin name.
func WithAdmin(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxAdminKey, name)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
