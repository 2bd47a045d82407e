package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"route_mapper/internal/repository"
)

// PointController handles direct single-entity access to points. Route
// updates with a points list go through reconciliation instead; these
// endpoints never reorder siblings.
type PointController struct {
	Repo *repository.Repository
}

func (ct *PointController) List(c *gin.Context) {
	points, err := ct.Repo.ListPoints()
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]PointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, toPointResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

// Create appends one point to the route named by route_id in the body.
func (ct *PointController) Create(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	routeID, fields, perr := parseSinglePointPayload(data, false)
	if perr != nil {
		logrus.WithError(perr).Warn("CreatePoint: invalid payload")
		respondError(c, perr)
		return
	}

	point, err := ct.Repo.CreatePoint(routeID, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPointResponse(point))
}

func (ct *PointController) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid point id"})
		return
	}
	point, err := ct.Repo.GetPoint(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPointResponse(point))
}

func (ct *PointController) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid point id"})
		return
	}

	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	_, fields, perr := parseSinglePointPayload(data, true)
	if perr != nil {
		logrus.WithError(perr).WithField("point_id", id).Warn("UpdatePoint: invalid payload")
		respondError(c, perr)
		return
	}

	point, err := ct.Repo.UpdatePoint(id, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPointResponse(point))
}

func (ct *PointController) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid point id"})
		return
	}
	if err := ct.Repo.DeletePoint(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
