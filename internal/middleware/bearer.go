package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const contextKeyToken contextKey = "bearerToken"

// BearerToken copies the token of an "Authorization: Bearer <token>" header
// into the request context. Requests without one pass through with an empty
// token; rejecting them is left to the access guard.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := parseBearer(r.Header.Get("Authorization")); token != "" {
			r = r.WithContext(context.WithValue(r.Context(), contextKeyToken, token))
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFromContext returns the bearer token stored by BearerToken.
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyToken).(string)
	return v
}

func parseBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
