// Package auth authenticates API callers with bearer tokens or API keys.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Authentication methods recorded on an Identity
const (
	MethodJWT    = "jwt"
	MethodAPIKey = "apikey"
)

// Identity is the authenticated caller
type Identity struct {
	UserID string
	Email  string
	Role   string
	Method string
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller stored by the middleware
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok
}

// UserID returns the authenticated user ID, or "" for anonymous requests
func UserID(ctx context.Context) string {
	if id, ok := FromContext(ctx); ok {
		return id.UserID
	}
	return ""
}

// Middleware authenticates requests. Either manager may be nil to turn
// that method off.
type Middleware struct {
	jwt      *JWTManager
	apiKeys  *APIKeyManager
	optional bool
}

// NewMiddleware creates the authentication middleware. When optional is
// set, requests without credentials pass through anonymously; requests
// with bad credentials are still rejected.
func NewMiddleware(jwtManager *JWTManager, apiKeyManager *APIKeyManager, optional bool) *Middleware {
	return &Middleware{jwt: jwtManager, apiKeys: apiKeyManager, optional: optional}
}

// Handler wraps next with authentication
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && m.jwt != nil {
			claims, err := m.jwt.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			id := &Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role, Method: MethodJWT}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
			return
		}

		if key := r.Header.Get("X-API-Key"); key != "" && m.apiKeys != nil {
			apiKey, err := m.apiKeys.Verify(key)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			id := &Identity{UserID: apiKey.UserID, Method: MethodAPIKey}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
			return
		}

		if m.optional {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "no valid authentication provided")
	})
}

// RequireRole rejects callers whose token does not carry role
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok || id.Role != role {
				writeError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
		"code":    status,
	})
}
