package repository

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"route_mapper/internal/apperr"
	"route_mapper/internal/models"
	"route_mapper/internal/reconcile"
)

// RouteFields are the client-mutable attributes of a route. Nil means
// "leave unchanged" on update.
type RouteFields struct {
	Name        *string
	Description *string
}

// CreateRoute creates a route plus one point per desired entry, with
// position taken from the entry's index. Desired entry ids are ignored on
// create; every entry is a fresh point with no images.
func (r *Repository) CreateRoute(fields RouteFields, desired []reconcile.DesiredPoint) (models.Route, error) {
	if len(desired) > r.limits.MaxPointsPerRoute {
		return models.Route{}, apperr.NewValidation(fmt.Sprintf(
			"a route cannot have more than %d points (got %d)",
			r.limits.MaxPointsPerRoute, len(desired)))
	}

	route := models.Route{}
	if fields.Name != nil {
		route.Name = *fields.Name
	}
	if fields.Description != nil {
		route.Description = *fields.Description
	}

	tx := r.db.Begin()
	if tx.Error != nil {
		return models.Route{}, apperr.NewStorage(tx.Error)
	}

	if err := tx.Create(&route).Error; err != nil {
		tx.Rollback()
		return models.Route{}, apperr.NewStorage(err)
	}

	for idx, d := range desired {
		point := models.Point{
			RouteID:     route.ID,
			Name:        reconcile.StringOr(d.Fields.Name, ""),
			Description: reconcile.StringOr(d.Fields.Description, ""),
			Lat:         d.Fields.Lat,
			Lon:         d.Fields.Lon,
			Position:    idx,
		}
		if err := tx.Create(&point).Error; err != nil {
			tx.Rollback()
			return models.Route{}, apperr.NewStorage(err)
		}
	}

	if err := r.refreshGeometry(tx, route.ID); err != nil {
		tx.Rollback()
		return models.Route{}, apperr.NewStorage(err)
	}

	if err := tx.Commit().Error; err != nil {
		return models.Route{}, apperr.NewStorage(err)
	}

	return r.GetRoute(route.ID)
}

// GetRoute loads one route with its ordered points and their images.
func (r *Repository) GetRoute(id uint) (models.Route, error) {
	var route models.Route
	err := r.db.Preload("Points", byPosition).Preload("Points.Images", byCreation).
		First(&route, id).Error
	if err != nil {
		return models.Route{}, notFoundOr(err, "route")
	}
	return route, nil
}

// ListRoutes returns all routes with their ordered points and images.
func (r *Repository) ListRoutes() ([]models.Route, error) {
	var routes []models.Route
	err := r.db.Preload("Points", byPosition).Preload("Points.Images", byCreation).
		Order("id ASC").Find(&routes).Error
	if err != nil {
		return nil, apperr.NewStorage(err)
	}
	return routes, nil
}

// UpdateRoute updates mutable route fields and, when desired is non-nil (an
// empty slice meaning "delete all points" is distinct from nil meaning
// "leave points untouched"), reconciles the point set against it. Everything
// happens in one transaction; payload files of deleted points are removed
// only after commit so a rollback never loses data.
func (r *Repository) UpdateRoute(id uint, fields RouteFields, desired []reconcile.DesiredPoint, replacePoints bool) (models.Route, error) {
	tx := r.db.Begin()
	if tx.Error != nil {
		return models.Route{}, apperr.NewStorage(tx.Error)
	}

	var route models.Route
	if err := lockForUpdate(tx).First(&route, id).Error; err != nil {
		tx.Rollback()
		return models.Route{}, notFoundOr(err, "route")
	}

	if fields.Name != nil {
		route.Name = *fields.Name
	}
	if fields.Description != nil {
		route.Description = *fields.Description
	}
	if err := tx.Save(&route).Error; err != nil {
		tx.Rollback()
		return models.Route{}, apperr.NewStorage(err)
	}

	var removedFiles []string
	if replacePoints {
		var existing []models.Point
		if err := tx.Where("route_id = ?", id).Order("position ASC").Find(&existing).Error; err != nil {
			tx.Rollback()
			return models.Route{}, apperr.NewStorage(err)
		}
		existingIDs := make([]uint, len(existing))
		for i, p := range existing {
			existingIDs[i] = p.ID
		}

		plan, err := reconcile.Build(existingIDs, desired, r.limits.MaxPointsPerRoute)
		if err != nil {
			tx.Rollback()
			return models.Route{}, apperr.NewValidation(err.Error())
		}
		for _, d := range desired {
			if d.ID > 0 && !containsID(existingIDs, d.ID) {
				logrus.WithFields(logrus.Fields{"route_id": id, "point_id": d.ID}).
					Warn("UpdateRoute: desired point id unknown for this route, treating as create")
			}
		}

		for _, u := range plan.Updates {
			updates := map[string]interface{}{
				"lat":      u.Fields.Lat,
				"lon":      u.Fields.Lon,
				"position": u.Position,
			}
			// absent name/description keys keep their current values
			if u.Fields.Name != nil {
				updates["name"] = *u.Fields.Name
			}
			if u.Fields.Description != nil {
				updates["description"] = *u.Fields.Description
			}
			if err := tx.Model(&models.Point{}).Where("id = ?", u.ID).Updates(updates).Error; err != nil {
				tx.Rollback()
				return models.Route{}, apperr.NewStorage(err)
			}
		}

		for _, cr := range plan.Creates {
			point := models.Point{
				RouteID:     id,
				Name:        reconcile.StringOr(cr.Fields.Name, ""),
				Description: reconcile.StringOr(cr.Fields.Description, ""),
				Lat:         cr.Fields.Lat,
				Lon:         cr.Fields.Lon,
				Position:    cr.Position,
			}
			if err := tx.Create(&point).Error; err != nil {
				tx.Rollback()
				return models.Route{}, apperr.NewStorage(err)
			}
		}

		for _, pointID := range plan.DeleteIDs {
			files, err := r.deletePointCascade(tx, pointID)
			if err != nil {
				tx.Rollback()
				return models.Route{}, apperr.NewStorage(err)
			}
			removedFiles = append(removedFiles, files...)
		}

		if err := r.refreshGeometry(tx, id); err != nil {
			tx.Rollback()
			return models.Route{}, apperr.NewStorage(err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return models.Route{}, apperr.NewStorage(err)
	}

	for _, rel := range removedFiles {
		if err := r.store.Remove(rel); err != nil {
			logrus.WithError(err).WithField("path", rel).Warn("UpdateRoute: could not remove payload file")
		}
	}

	return r.GetRoute(id)
}

// DeleteRoute removes a route, its points, their image rows and the backing
// payload files.
func (r *Repository) DeleteRoute(id uint) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return apperr.NewStorage(tx.Error)
	}

	var route models.Route
	if err := tx.First(&route, id).Error; err != nil {
		tx.Rollback()
		return notFoundOr(err, "route")
	}

	var points []models.Point
	if err := tx.Where("route_id = ?", id).Find(&points).Error; err != nil {
		tx.Rollback()
		return apperr.NewStorage(err)
	}

	var removedFiles []string
	pointIDs := make([]uint, 0, len(points))
	for _, p := range points {
		files, err := r.deletePointCascade(tx, p.ID)
		if err != nil {
			tx.Rollback()
			return apperr.NewStorage(err)
		}
		removedFiles = append(removedFiles, files...)
		pointIDs = append(pointIDs, p.ID)
	}

	if err := tx.Unscoped().Delete(&models.Route{}, id).Error; err != nil {
		tx.Rollback()
		return apperr.NewStorage(err)
	}

	if err := tx.Commit().Error; err != nil {
		return apperr.NewStorage(err)
	}

	for _, rel := range removedFiles {
		if err := r.store.Remove(rel); err != nil {
			logrus.WithError(err).WithField("path", rel).Warn("DeleteRoute: could not remove payload file")
		}
	}
	for _, pointID := range pointIDs {
		if err := r.store.RemovePointDir(pointID); err != nil {
			logrus.WithError(err).WithField("point_id", pointID).Warn("DeleteRoute: could not remove point directory")
		}
	}
	return nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
