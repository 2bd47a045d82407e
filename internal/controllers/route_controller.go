package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"route_mapper/internal/repository"
)

// RouteController handles the /routes resource.
type RouteController struct {
	Repo *repository.Repository
}

// List returns all routes with nested points and images.
func (ct *RouteController) List(c *gin.Context) {
	routes, err := ct.Repo.ListRoutes()
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		out = append(out, toRouteResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// Create makes a route, optionally with an initial ordered points list.
func (ct *RouteController) Create(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	fields, desired, _, perr := parseRoutePayload(data, false)
	if perr != nil {
		logrus.WithError(perr).Warn("CreateRoute: invalid payload")
		respondError(c, perr)
		return
	}

	route, err := ct.Repo.CreateRoute(fields, desired)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRouteResponse(route))
}

// Get returns a single route.
func (ct *RouteController) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return
	}
	route, err := ct.Repo.GetRoute(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRouteResponse(route))
}

// Update changes route fields and, when the payload carries a points list,
// replaces the point set through reconciliation. Serves both PUT and PATCH.
func (ct *RouteController) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	fields, desired, replacePoints, perr := parseRoutePayload(data, true)
	if perr != nil {
		logrus.WithError(perr).WithField("route_id", id).Warn("UpdateRoute: invalid payload")
		respondError(c, perr)
		return
	}

	route, err := ct.Repo.UpdateRoute(id, fields, desired, replacePoints)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRouteResponse(route))
}

// Delete removes a route with all its points and images.
func (ct *RouteController) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return
	}
	if err := ct.Repo.DeleteRoute(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}
