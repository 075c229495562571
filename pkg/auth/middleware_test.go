package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMiddleware(optional bool) (*Middleware, *JWTManager, *APIKeyManager) {
	jwtManager := NewJWTManager("test-secret", time.Hour)
	apiKeyManager := NewAPIKeyManager()
	return NewMiddleware(jwtManager, apiKeyManager, optional), jwtManager, apiKeyManager
}

func serve(h http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_JWT_Valid(t *testing.T) {
	middleware, jwtManager, _ := newTestMiddleware(false)

	token, err := jwtManager.Generate("user123", "user@example.com", "admin")
	require.NoError(t, err)

	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "user123", id.UserID)
		assert.Equal(t, "user@example.com", id.Email)
		assert.Equal(t, "admin", id.Role)
		assert.Equal(t, MethodJWT, id.Method)
		w.WriteHeader(http.StatusOK)
	}))

	rr := serve(handler, "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_JWT_Invalid(t *testing.T) {
	middleware, _, _ := newTestMiddleware(true)

	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called for invalid token")
	}))

	// bad credentials are rejected even when authentication is optional
	rr := serve(handler, "Authorization", "Bearer invalid-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["error"])
	assert.EqualValues(t, http.StatusUnauthorized, body["code"])
}

func TestMiddleware_APIKey_Valid(t *testing.T) {
	middleware, _, apiKeyManager := newTestMiddleware(false)

	apiKey, err := apiKeyManager.Generate("user456", "CI key", nil)
	require.NoError(t, err)

	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user456", UserID(r.Context()))
		id, _ := FromContext(r.Context())
		assert.Equal(t, MethodAPIKey, id.Method)
		w.WriteHeader(http.StatusOK)
	}))

	rr := serve(handler, "X-API-Key", apiKey.Key)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMiddleware_APIKey_Invalid(t *testing.T) {
	middleware, _, _ := newTestMiddleware(false)

	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called for invalid API key")
	}))

	rr := serve(handler, "X-API-Key", "invalid-key")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_NoCredentials(t *testing.T) {
	t.Run("required", func(t *testing.T) {
		middleware, _, _ := newTestMiddleware(false)
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("Handler should not be called without authentication")
		}))

		rr := serve(handler, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("optional", func(t *testing.T) {
		middleware, _, _ := newTestMiddleware(true)
		handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, UserID(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		rr := serve(handler, "", "")
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestMiddleware_DisabledJWT(t *testing.T) {
	keys := NewAPIKeyManager()
	middleware := NewMiddleware(nil, keys, false)

	handler := middleware.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("bearer tokens must not authenticate without a JWT manager")
	}))

	rr := serve(handler, "Authorization", "Bearer anything")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequireRole(t *testing.T) {
	middleware, jwtManager, _ := newTestMiddleware(false)

	adminToken, err := jwtManager.Generate("admin123", "admin@example.com", "admin")
	require.NoError(t, err)
	userToken, err := jwtManager.Generate("user123", "user@example.com", "user")
	require.NoError(t, err)

	handler := middleware.Handler(
		RequireRole("admin")(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}),
		),
	)

	t.Run("admin access", func(t *testing.T) {
		rr := serve(handler, "Authorization", "Bearer "+adminToken)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("user denied", func(t *testing.T) {
		rr := serve(handler, "Authorization", "Bearer "+userToken)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
