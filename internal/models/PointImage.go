package models

import (
	"gorm.io/gorm"
)

// PointImage is one stored image payload belonging to a point.
// FileName is generated (uuid + original extension); the client filename is
// never trusted. Path is relative to the media root.
type PointImage struct {
	gorm.Model

	PointID  uint   `json:"point_id" gorm:"index"`
	FileName string `json:"file_name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}
