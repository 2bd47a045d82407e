package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// lat/lon serialize as plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Point represents a stop along a route
// Position is the 0-based index within the route's point list; it is derived
// from list position on write and never taken from the client.
// Lat/Lon are kept as exact decimals (numeric(18,15)).
type Point struct {
	gorm.Model

	Name        string          `json:"name"`
	Description string          `json:"description"`
	Lat         decimal.Decimal `json:"lat" gorm:"type:numeric(18,15)"`
	Lon         decimal.Decimal `json:"lon" gorm:"type:numeric(18,15)"`

	// "order" is a reserved word in SQL, so the column is named position
	Position int `json:"order" gorm:"column:position"`

	// Foreign key to route
	RouteID uint `json:"route_id" gorm:"index"`

	// Images ordered by creation, max 4 live at once
	Images []PointImage `gorm:"foreignKey:PointID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
}
