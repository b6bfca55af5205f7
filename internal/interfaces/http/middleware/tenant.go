package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gin keys and headers for caller identity
const (
	TenantIDKey     = "tenant_id"
	UserIDKey       = "user_id"
	TenantHeaderKey = "X-Tenant-ID"
	UserHeaderKey   = "X-User-ID"
)

type TenantMiddlewareConfig struct {
	// DefaultTenantID is used when the request carries no tenant header.
	// uuid.Nil makes the header mandatory.
	DefaultTenantID uuid.UUID
	// SkipPaths are served without a tenant, including everything below them.
	SkipPaths []string
	Logger    *zap.Logger
}

func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/metrics", "/api/v1/health"},
	}
}

func (cfg TenantMiddlewareConfig) skips(path string) bool {
	return slices.ContainsFunc(cfg.SkipPaths, func(p string) bool {
		return path == p || strings.HasPrefix(path, p+"/")
	})
}

// headerUUID parses an optional UUID header. ok is false when it is present
// but malformed or the nil UUID.
func headerUUID(c *gin.Context, name string) (id uuid.UUID, ok bool) {
	raw := strings.TrimSpace(c.GetHeader(name))
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	return id, err == nil && id != uuid.Nil
}

// TenantMiddleware resolves the tenant from X-Tenant-ID and the acting user
// from X-User-ID. Both land in the gin context and the request's log scope.
func TenantMiddleware(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.skips(c.Request.URL.Path) {
			c.Next()
			return
		}

		tenantID, ok := headerUUID(c, TenantHeaderKey)
		if !ok {
			respondUnauthorized(c, "Invalid tenant ID format")
			return
		}
		if tenantID == uuid.Nil {
			tenantID = cfg.DefaultTenantID
		}
		if tenantID == uuid.Nil {
			respondUnauthorized(c, "Tenant identification required")
			return
		}
		userID, ok := headerUUID(c, UserHeaderKey)
		if !ok {
			respondUnauthorized(c, "Invalid user ID format")
			return
		}

		scope := logger.Scope{TenantID: tenantID.String()}
		c.Set(TenantIDKey, scope.TenantID)
		if userID != uuid.Nil {
			scope.UserID = userID.String()
			c.Set(UserIDKey, scope.UserID)
		}

		ctx := c.Request.Context()
		ctx, log := logger.Annotate(ctx, logger.FromContextOr(ctx, cfg.Logger), scope)
		c.Request = c.Request.WithContext(ctx)
		if _, ok := c.Get(logger.GinLoggerKey); ok {
			c.Set(logger.GinLoggerKey, log)
		}
		c.Next()
	}
}

func respondUnauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// GetTenantID returns the resolved tenant, "" outside TenantMiddleware.
func GetTenantID(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}

// GetTenantUUID returns uuid.Nil when no tenant was resolved.
func GetTenantUUID(c *gin.Context) (uuid.UUID, error) {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(tenantID)
}

// GetUserUUID returns the acting user, uuid.Nil when anonymous.
func GetUserUUID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetString(UserIDKey))
	if err != nil {
		return uuid.Nil
	}
	return id
}
