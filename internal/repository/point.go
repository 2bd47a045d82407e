package repository

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"route_mapper/internal/apperr"
	"route_mapper/internal/models"
	"route_mapper/internal/reconcile"
)

// CreatePoint appends a single point to a route, taking the next position.
func (r *Repository) CreatePoint(routeID uint, fields reconcile.PointFields) (models.Point, error) {
	tx := r.db.Begin()
	if tx.Error != nil {
		return models.Point{}, apperr.NewStorage(tx.Error)
	}

	var route models.Route
	if err := lockForUpdate(tx).First(&route, routeID).Error; err != nil {
		tx.Rollback()
		return models.Point{}, notFoundOr(err, "route")
	}

	var count int64
	if err := tx.Model(&models.Point{}).Where("route_id = ?", routeID).Count(&count).Error; err != nil {
		tx.Rollback()
		return models.Point{}, apperr.NewStorage(err)
	}
	if int(count) >= r.limits.MaxPointsPerRoute {
		tx.Rollback()
		return models.Point{}, apperr.NewQuotaExceeded(fmt.Sprintf(
			"maximum %d points per route", r.limits.MaxPointsPerRoute))
	}

	point := models.Point{
		RouteID:     routeID,
		Name:        reconcile.StringOr(fields.Name, ""),
		Description: reconcile.StringOr(fields.Description, ""),
		Lat:         fields.Lat,
		Lon:         fields.Lon,
		Position:    int(count),
	}
	if err := tx.Create(&point).Error; err != nil {
		tx.Rollback()
		return models.Point{}, apperr.NewStorage(err)
	}

	if err := r.refreshGeometry(tx, routeID); err != nil {
		tx.Rollback()
		return models.Point{}, apperr.NewStorage(err)
	}

	if err := tx.Commit().Error; err != nil {
		return models.Point{}, apperr.NewStorage(err)
	}

	return r.GetPoint(point.ID)
}

// GetPoint loads one point with its images in insertion order.
func (r *Repository) GetPoint(id uint) (models.Point, error) {
	var point models.Point
	if err := r.db.Preload("Images", byCreation).First(&point, id).Error; err != nil {
		return models.Point{}, notFoundOr(err, "point")
	}
	return point, nil
}

// ListPoints returns all points with their images.
func (r *Repository) ListPoints() ([]models.Point, error) {
	var points []models.Point
	err := r.db.Preload("Images", byCreation).
		Order("route_id ASC, position ASC").Find(&points).Error
	if err != nil {
		return nil, apperr.NewStorage(err)
	}
	return points, nil
}

// UpdatePoint mutates name/description/lat/lon of a single point. Position,
// identity and images are never touched here.
func (r *Repository) UpdatePoint(id uint, fields reconcile.PointFields) (models.Point, error) {
	tx := r.db.Begin()
	if tx.Error != nil {
		return models.Point{}, apperr.NewStorage(tx.Error)
	}

	var point models.Point
	if err := tx.First(&point, id).Error; err != nil {
		tx.Rollback()
		return models.Point{}, notFoundOr(err, "point")
	}

	updates := map[string]interface{}{
		"lat": fields.Lat,
		"lon": fields.Lon,
	}
	if fields.Name != nil {
		updates["name"] = *fields.Name
	}
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if err := tx.Model(&point).Updates(updates).Error; err != nil {
		tx.Rollback()
		return models.Point{}, apperr.NewStorage(err)
	}

	if err := r.refreshGeometry(tx, point.RouteID); err != nil {
		tx.Rollback()
		return models.Point{}, apperr.NewStorage(err)
	}

	if err := tx.Commit().Error; err != nil {
		return models.Point{}, apperr.NewStorage(err)
	}

	return r.GetPoint(id)
}

// DeletePoint removes one point, its image rows and backing payload files.
// Remaining points keep their positions; order is preserved by position sort.
func (r *Repository) DeletePoint(id uint) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return apperr.NewStorage(tx.Error)
	}

	var point models.Point
	if err := tx.First(&point, id).Error; err != nil {
		tx.Rollback()
		return notFoundOr(err, "point")
	}

	removedFiles, err := r.deletePointCascade(tx, id)
	if err != nil {
		tx.Rollback()
		return apperr.NewStorage(err)
	}

	if err := r.refreshGeometry(tx, point.RouteID); err != nil {
		tx.Rollback()
		return apperr.NewStorage(err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperr.NewStorage(err)
	}

	for _, rel := range removedFiles {
		if err := r.store.Remove(rel); err != nil {
			logrus.WithError(err).WithField("path", rel).Warn("DeletePoint: could not remove payload file")
		}
	}
	if err := r.store.RemovePointDir(id); err != nil {
		logrus.WithError(err).WithField("point_id", id).Warn("DeletePoint: could not remove point directory")
	}
	return nil
}
