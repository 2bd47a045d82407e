package repository

import (
	"encoding/binary"
	"errors"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"route_mapper/internal/apperr"
	"route_mapper/internal/config"
	"route_mapper/internal/models"
	"route_mapper/internal/storage"
)

// Repository owns transactional persistence of routes, points and images,
// including cascade deletes of image rows and their backing payload files.
type Repository struct {
	db     *gorm.DB
	store  *storage.Store
	limits config.Limits
}

func New(db *gorm.DB, store *storage.Store, limits config.Limits) *Repository {
	return &Repository{db: db, store: store, limits: limits}
}

// byPosition orders preloaded points by their list position
func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// byCreation orders preloaded images by insertion order
func byCreation(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// lockForUpdate takes a row lock so concurrent quota checks serialize.
// sqlite has no FOR UPDATE; its single-writer transactions already cover it.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NewNotFound(resource)
	}
	return apperr.NewStorage(err)
}

// routeGeometry builds a WKB LINESTRING (SRID 4326) from the ordered points.
// Fewer than two points yields no geometry.
func routeGeometry(points []models.Point) ([]byte, error) {
	if len(points) < 2 {
		return nil, nil
	}
	coords := make([]geom.Coord, 0, len(points))
	for _, p := range points {
		lon, _ := p.Lon.Float64()
		lat, _ := p.Lat.Float64()
		coords = append(coords, geom.Coord{lon, lat})
	}
	ls, err := geom.NewLineString(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, err
	}
	ls.SetSRID(4326)
	return wkb.Marshal(ls, binary.LittleEndian)
}

// refreshGeometry recomputes the route geometry from its current points
// inside the given transaction.
func (r *Repository) refreshGeometry(tx *gorm.DB, routeID uint) error {
	var points []models.Point
	if err := tx.Where("route_id = ?", routeID).Order("position ASC").Find(&points).Error; err != nil {
		return err
	}
	g, err := routeGeometry(points)
	if err != nil {
		return err
	}
	return tx.Model(&models.Route{}).Where("id = ?", routeID).Update("geometry", g).Error
}

// deletePointCascade removes a point and its image rows inside tx, returning
// the relative payload paths so the caller can remove the files after commit.
func (r *Repository) deletePointCascade(tx *gorm.DB, pointID uint) ([]string, error) {
	var images []models.PointImage
	if err := tx.Where("point_id = ?", pointID).Find(&images).Error; err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(images))
	for _, img := range images {
		paths = append(paths, img.Path)
	}
	if err := tx.Unscoped().Where("point_id = ?", pointID).Delete(&models.PointImage{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Unscoped().Delete(&models.Point{}, pointID).Error; err != nil {
		return nil, err
	}
	return paths, nil
}
