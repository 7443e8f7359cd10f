package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

// principalContextKey is the context key for the authenticated principal
const principalContextKey contextKey = "principal"

// PrincipalFromContext retrieves the authenticated principal from the context
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// Middleware creates HTTP middleware that enforces bearer-token
// authentication and injects the verified caller into the request context.
func Middleware(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := parseBearer(r.Header.Get("Authorization"))
			if err != nil {
				logger.Warn("rejected request without valid bearer token",
					"path", r.URL.Path,
					"error", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			uid, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Warn("token verification failed",
					"path", r.URL.Path,
					"error", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, &Principal{UID: uid})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseBearer extracts the token from an Authorization header
func parseBearer(header string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", &Error{
			Type:    ErrInvalidToken,
			Message: "authorization header is not a bearer token",
		}
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", &Error{
			Type:    ErrInvalidToken,
			Message: "empty bearer token",
		}
	}
	return token, nil
}
