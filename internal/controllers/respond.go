package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"

	"route_mapper/internal/apperr"
	"route_mapper/internal/models"
)

// ImageResponse is the wire shape of one stored image
type ImageResponse struct {
	ID       uint   `json:"id"`
	ImageURL string `json:"image_url"`
}

// PointResponse is the wire shape of a point with its images
type PointResponse struct {
	ID          uint            `json:"id"`
	RouteID     uint            `json:"route_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Lat         decimal.Decimal `json:"lat"`
	Lon         decimal.Decimal `json:"lon"`
	Order       int             `json:"order"`
	Images      []ImageResponse `json:"images"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RouteResponse is the wire shape of a route; Geometry carries the derived
// LINESTRING as a GeoJSON string.
type RouteResponse struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Geometry    string          `json:"geometry,omitempty"`
	Points      []PointResponse `json:"points"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toImageResponse(img models.PointImage) ImageResponse {
	return ImageResponse{ID: img.ID, ImageURL: "/media/" + img.Path}
}

func toImageResponses(images []models.PointImage) []ImageResponse {
	out := make([]ImageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, toImageResponse(img))
	}
	return out
}

func toPointResponse(point models.Point) PointResponse {
	return PointResponse{
		ID:          point.ID,
		RouteID:     point.RouteID,
		Name:        point.Name,
		Description: point.Description,
		Lat:         point.Lat,
		Lon:         point.Lon,
		Order:       point.Position,
		Images:      toImageResponses(point.Images),
		CreatedAt:   point.CreatedAt,
		UpdatedAt:   point.UpdatedAt,
	}
}

func toRouteResponse(route models.Route) RouteResponse {
	points := make([]PointResponse, 0, len(route.Points))
	for _, p := range route.Points {
		points = append(points, toPointResponse(p))
	}
	jsonGeom, err := convertWKBToGeoJSON(route.Geometry)
	if err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Warn("could not encode route geometry")
	}
	return RouteResponse{
		ID:          route.ID,
		Name:        route.Name,
		Description: route.Description,
		Geometry:    jsonGeom,
		Points:      points,
		CreatedAt:   route.CreatedAt,
		UpdatedAt:   route.UpdatedAt,
	}
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := geojson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// respondError maps the error taxonomy onto HTTP statuses. Validation
// details are always returned as a list so the client can fix every problem
// in one round trip.
func respondError(c *gin.Context, err error) {
	if e := apperr.As(err); e != nil {
		switch e.Kind {
		case apperr.Validation:
			c.JSON(http.StatusBadRequest, gin.H{"error": e.Message, "details": e.Details})
		case apperr.QuotaExceeded:
			c.JSON(http.StatusBadRequest, gin.H{"error": e.Message})
		case apperr.NotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": e.Message})
		case apperr.ProtectedField:
			c.JSON(http.StatusConflict, gin.H{"error": e.Message})
		default:
			logrus.WithError(e).Error("internal error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": e.Message})
		}
		return
	}
	logrus.WithError(err).Error("unclassified error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
