package router

import (
	"net/http"

	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ImportHandlers are the handlers mounted under /imports.
type ImportHandlers struct {
	Imports  *handler.ImportHandler
	Profiles *handler.ProfileHandler
	History  *handler.HistoryHandler
}

// UploadGuards protect the endpoints that accept files or start runs.
// A zero MaxBodySize and a nil Limiter disable the respective guard.
type UploadGuards struct {
	MaxBodySize int64
	Limiter     *middleware.RateLimiter
}

func (g UploadGuards) wrap(h gin.HandlerFunc) []gin.HandlerFunc {
	var chain []gin.HandlerFunc
	if g.Limiter != nil {
		chain = append(chain, middleware.RateLimitByTenant(g.Limiter))
	}
	return append(chain, middleware.BodyLimit(g.MaxBodySize), h)
}

func route(method, path string, handlers ...gin.HandlerFunc) Route {
	return Route{Method: method, Path: path, Handlers: handlers}
}

// NewImportRoutes is the /imports API: preview and run, the run history,
// and the profile CRUD under /imports/profiles.
func NewImportRoutes(h ImportHandlers, guards UploadGuards) Group {
	return Group{
		Prefix: "/imports",
		Routes: []Route{
			route(http.MethodPost, "/preview", guards.wrap(h.Imports.Preview)...),
			route(http.MethodPost, "/run", guards.wrap(h.Imports.Run)...),
			route(http.MethodPost, "/run-from-storage", guards.wrap(h.Imports.RunFromStorage)...),
			route(http.MethodGet, "/history", h.History.List),
			route(http.MethodGet, "/history/:id", h.History.Get),
			route(http.MethodGet, "/history/:id/errors.csv", h.History.DownloadErrors),
		},
		Children: []Group{{
			Prefix: "/profiles",
			Routes: []Route{
				route(http.MethodPost, "", h.Profiles.Create),
				route(http.MethodGet, "", h.Profiles.List),
				route(http.MethodGet, "/:id", h.Profiles.Get),
				route(http.MethodPut, "/:id", h.Profiles.Update),
				route(http.MethodDelete, "/:id", h.Profiles.Delete),
				route(http.MethodPost, "/:id/activate", h.Profiles.Activate),
				route(http.MethodPost, "/:id/deactivate", h.Profiles.Deactivate),
			},
		}},
	}
}
