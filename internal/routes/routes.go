package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"route_mapper/internal/config"
	"route_mapper/internal/middleware"
	"route_mapper/internal/repository"
	"route_mapper/internal/storage"
)

// SetupRouter wires every endpoint onto one engine. Mutating endpoints are
// guarded by JWT auth when it is enabled; reads and media stay public.
func SetupRouter(cfg *config.Config, db *gorm.DB, store *storage.Store) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginlog.SetLogger())

	repo := repository.New(db, store, cfg.Limits)
	guard := writeGuard(cfg)

	RouteRoutes(r, repo, guard)
	PointRoutes(r, cfg, repo, guard)
	AuthRoutes(r, cfg, repo)

	r.Static("/media", store.Root())

	return r
}

func writeGuard(cfg *config.Config) gin.HandlerFunc {
	if cfg.AuthEnabled {
		return middleware.RequireAuth()
	}
	return func(c *gin.Context) { c.Next() }
}
