// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-pipeline/internal/types"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const (
	actorIDKey ContextKey = "actorID"
	roleKey    ContextKey = "actorRole"
)

// TokenValidator is an interface for validating JWT tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (Principal, error)
}

// Principal is the authenticated identity carried by a token.
type Principal interface {
	GetActorID() uuid.UUID
	GetRole() types.Role
}

// AuthMiddleware creates middleware that validates bearer tokens and adds the
// actor id and role to the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				deny(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			// Handle case-insensitive "Bearer" prefix
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				deny(w, http.StatusUnauthorized, "unauthorized", "malformed authorization header")
				return
			}

			principal, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
			if err != nil {
				deny(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			ctx := WithActor(r.Context(), principal.GetActorID(), principal.GetRole())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose role is not in roles.
// It must run after AuthMiddleware.
func RequireRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(roleKey).(types.Role)
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, role) {
				deny(w, http.StatusForbidden, "forbidden", fmt.Sprintf("role %s may not call this endpoint", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithActor stores an authenticated actor in ctx.
func WithActor(ctx context.Context, actorID uuid.UUID, role types.Role) context.Context {
	ctx = context.WithValue(ctx, actorIDKey, actorID)
	return context.WithValue(ctx, roleKey, role)
}

// GetActorID extracts the authenticated actor id from the request context.
func GetActorID(r *http.Request) (uuid.UUID, error) {
	id, ok := r.Context().Value(actorIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("actor ID not found in request context")
	}
	return id, nil
}

// GetRole extracts the authenticated actor role from the request context.
func GetRole(r *http.Request) (types.Role, error) {
	role, ok := r.Context().Value(roleKey).(types.Role)
	if !ok {
		return "", fmt.Errorf("actor role not found in request context")
	}
	return role, nil
}

func deny(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
