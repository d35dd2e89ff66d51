package models

import "carpool/src/types"

// RoutePrice is a manually curated per-seat price for a city pair. City names
// are stored normalized (trimmed, lowercase); lookups match the normalized
// pair of a quoted trip.
type RoutePrice struct {
	ID         uint    `gorm:"primarykey" json:"id"`
	OriginCity string  `gorm:"uniqueIndex:idx_route_price_pair" json:"origin_city,omitempty"`
	DestCity   string  `gorm:"uniqueIndex:idx_route_price_pair" json:"dest_city,omitempty"`
	Price      float64 `json:"price,omitempty"`
	Active     bool    `gorm:"default:true" json:"active"`

	types.Timestamps
}
