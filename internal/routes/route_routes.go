package routes

import (
	"github.com/gin-gonic/gin"

	"route_mapper/internal/controllers"
	"route_mapper/internal/repository"
)

func RouteRoutes(r *gin.Engine, repo *repository.Repository, guard gin.HandlerFunc) {
	ct := &controllers.RouteController{Repo: repo}

	r.GET("/routes", ct.List)
	r.POST("/routes", guard, ct.Create)
	r.GET("/routes/:id", ct.Get)
	r.PUT("/routes/:id", guard, ct.Update)
	r.PATCH("/routes/:id", guard, ct.Update)
	r.DELETE("/routes/:id", guard, ct.Delete)
}
