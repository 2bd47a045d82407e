package routes

import (
	"github.com/gin-gonic/gin"

	"route_mapper/internal/config"
	"route_mapper/internal/controllers"
	"route_mapper/internal/repository"
)

func AuthRoutes(r *gin.Engine, cfg *config.Config, repo *repository.Repository) {
	if !cfg.AuthEnabled {
		return
	}
	ct := &controllers.AuthController{Repo: repo}
	r.POST("/auth/login", ct.Login)
}
