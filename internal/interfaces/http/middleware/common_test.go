package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corsRouter(cfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestCORSWithConfig(t *testing.T) {
	tests := []struct {
		name          string
		origins       []string
		origin        string
		method        string
		expectStatus  int
		expectAllowed string
		expectCreds   string
	}{
		{name: "empty whitelist sets no headers", origin: "https://shop.example.com", method: http.MethodGet, expectStatus: http.StatusOK},
		{name: "whitelisted origin", origins: []string{"https://shop.example.com"}, origin: "https://shop.example.com", method: http.MethodGet, expectStatus: http.StatusOK, expectAllowed: "https://shop.example.com", expectCreds: "true"},
		{name: "unknown origin", origins: []string{"https://shop.example.com"}, origin: "https://evil.example.com", method: http.MethodGet, expectStatus: http.StatusOK},
		{name: "wildcard drops credentials", origins: []string{"*"}, origin: "https://any.example.com", method: http.MethodGet, expectStatus: http.StatusOK, expectAllowed: "*"},
		{name: "preflight from allowed origin", origins: []string{"https://shop.example.com"}, origin: "https://shop.example.com", method: http.MethodOptions, expectStatus: http.StatusNoContent, expectAllowed: "https://shop.example.com", expectCreds: "true"},
		{name: "preflight from unknown origin", origins: []string{"https://shop.example.com"}, origin: "https://evil.example.com", method: http.MethodOptions, expectStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCORSConfig()
			cfg.AllowOrigins = tt.origins
			router := corsRouter(cfg)

			req := httptest.NewRequest(tt.method, "/test", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectStatus, w.Code)
			assert.Equal(t, tt.expectAllowed, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.expectCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			if tt.expectAllowed != "" {
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), TenantHeaderKey)
				assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var ginID, ctxID string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		ginID = c.GetString(logger.GinRequestIDKey)
		ctxID = logger.ScopeFrom(c.Request.Context()).RequestID
		c.Status(http.StatusOK)
	})

	t.Run("propagates caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "req-abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-abc", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-abc", ginID)
		assert.Equal(t, "req-abc", ctxID)
	})

	t.Run("generates id when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, ginID)
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		long := make([]byte, 200)
		for i := range long {
			long[i] = 'x'
		}
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, string(long))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.NotEqual(t, string(long), w.Header().Get(RequestIDHeader))
	})
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestTimeout(t *testing.T) {
	t.Run("sets a deadline", func(t *testing.T) {
		var hasDeadline bool
		router := gin.New()
		router.Use(Timeout(time.Minute))
		router.GET("/test", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.True(t, hasDeadline)
	})

	t.Run("zero disables", func(t *testing.T) {
		var hasDeadline bool
		router := gin.New()
		router.Use(Timeout(0))
		router.GET("/test", func(c *gin.Context) {
			_, hasDeadline = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.False(t, hasDeadline)
	})
}
