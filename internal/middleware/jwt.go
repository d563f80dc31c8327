// internal/middleware/jwt.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"inkframe/internal/gateway"

	"github.com/google/uuid"
)

// TokenValidator verifies a bearer token and returns its claims.
// *gateway.AuthService satisfies it.
type TokenValidator interface {
	ValidateToken(tokenString string) (*gateway.Claims, error)
}

// AuthMiddleware validates the Authorization bearer token and stores
// the caller's user ID and token in the request context. Requests
// without a valid token are rejected with 401.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := SetUserIDInContext(r.Context(), claims.UserID)
			ctx = setTokenInContext(ctx, tokenString)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Define a custom context key type to avoid collisions
type contextKey string

const (
	userIDKey contextKey = "user_id"
	tokenKey  contextKey = "token"
)

// SetUserIDInContext saves the user ID in the request context
func SetUserIDInContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext retrieves the user ID from the context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}

func setTokenInContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// GetTokenFromContext retrieves the raw bearer token from the context
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}
