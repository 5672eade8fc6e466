package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	TenantContextKey = ContextKey("tenantID")
	UserContextKey   = ContextKey("userID")
)

type tenantClaims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	jwt.RegisteredClaims
}

// TenantAuthMiddleware authenticates the Bearer JWT and places the tenant id
// into the request context. Every engine operation downstream is scoped by it.
func TenantAuthMiddleware(accessSecret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims := &tenantClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(accessSecret), nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			tenantID, err := uuid.Parse(claims.TenantID)
			if err != nil {
				logger.WarnContext(r.Context(), "Token carries no valid tenant id")
				http.Error(w, "Invalid tenant", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), TenantContextKey, tenantID)
			if userID, err := uuid.Parse(claims.UserID); err == nil {
				ctx = context.WithValue(ctx, UserContextKey, userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tenantFromContext retrieves the authenticated tenant id.
func tenantFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(TenantContextKey).(uuid.UUID)
	return tenantID, ok
}

// userFromContext retrieves the authenticated user id, if the token carried one.
func userFromContext(ctx context.Context) uuid.UUID {
	userID, _ := ctx.Value(UserContextKey).(uuid.UUID)
	return userID
}
