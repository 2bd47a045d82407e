package repository

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"route_mapper/internal/apperr"
	"route_mapper/internal/models"
)

// StoreImages persists a batch of already-validated uploads for one point.
// The quota is re-checked under a row lock inside the same transaction as
// the writes, so two concurrent batches cannot jointly exceed the limit.
// The batch is all-or-nothing: any failure removes every file written so far
// and rolls back every row.
func (r *Repository) StoreImages(pointID uint, files []*multipart.FileHeader) ([]models.PointImage, error) {
	tx := r.db.Begin()
	if tx.Error != nil {
		return nil, apperr.NewStorage(tx.Error)
	}

	var point models.Point
	if err := lockForUpdate(tx).First(&point, pointID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("point")
		}
		return nil, apperr.NewStorage(err)
	}

	var count int64
	if err := tx.Model(&models.PointImage{}).Where("point_id = ?", pointID).Count(&count).Error; err != nil {
		tx.Rollback()
		return nil, apperr.NewStorage(err)
	}

	max := r.limits.MaxImagesPerPoint
	if int(count) >= max {
		tx.Rollback()
		return nil, apperr.NewQuotaExceeded(fmt.Sprintf("maximum %d images per point", max))
	}
	if int(count)+len(files) > max {
		tx.Rollback()
		return nil, apperr.NewQuotaExceeded(fmt.Sprintf(
			"can only upload %d more images (max %d per point)", max-int(count), max))
	}

	var written []string
	fail := func(err error) ([]models.PointImage, error) {
		tx.Rollback()
		for _, rel := range written {
			if rerr := r.store.Remove(rel); rerr != nil {
				logrus.WithError(rerr).WithField("path", rel).Warn("StoreImages: could not remove partial write")
			}
		}
		return nil, err
	}

	created := make([]models.PointImage, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return fail(apperr.NewStorage(err))
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		rel, name, size, err := r.store.Save(pointID, ext, src)
		src.Close()
		if err != nil {
			return fail(apperr.NewStorage(err))
		}
		written = append(written, rel)

		img := models.PointImage{
			PointID:  pointID,
			FileName: name,
			Path:     rel,
			Size:     size,
			MimeType: fh.Header.Get("Content-Type"),
		}
		if err := tx.Create(&img).Error; err != nil {
			return fail(apperr.NewStorage(err))
		}
		created = append(created, img)
	}

	if err := tx.Commit().Error; err != nil {
		for _, rel := range written {
			if rerr := r.store.Remove(rel); rerr != nil {
				logrus.WithError(rerr).WithField("path", rel).Warn("StoreImages: could not remove partial write")
			}
		}
		return nil, apperr.NewStorage(err)
	}

	return created, nil
}
