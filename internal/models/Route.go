package models

import (
	"gorm.io/gorm"
)

// Route represents a named path composed of ordered geographic points
// Name and description are optional; timestamps are managed by GORM
type Route struct {
	gorm.Model

	Name        string `json:"name"`
	Description string `json:"description"`

	// Geometry stored as a WKB LINESTRING (SRID 4326), rebuilt from the
	// ordered points whenever the point set changes. Never client-settable.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	// Associations
	Points []Point `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"points,omitempty"`
}
