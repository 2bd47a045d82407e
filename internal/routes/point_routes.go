package routes

import (
	"github.com/gin-gonic/gin"

	"route_mapper/internal/config"
	"route_mapper/internal/controllers"
	"route_mapper/internal/repository"
)

func PointRoutes(r *gin.Engine, cfg *config.Config, repo *repository.Repository, guard gin.HandlerFunc) {
	ct := &controllers.PointController{Repo: repo}
	ic := &controllers.ImageController{Repo: repo, Policy: cfg.Policy}

	r.GET("/points", ct.List)
	r.POST("/points", guard, ct.Create)
	r.GET("/points/:id", ct.Get)
	r.PUT("/points/:id", guard, ct.Update)
	r.DELETE("/points/:id", guard, ct.Delete)

	r.POST("/points/:id/upload_image", guard, ic.Upload)
}
