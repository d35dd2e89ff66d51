package models

import (
	"carpool/src/types"
	"time"
)

type Ride struct {
	ID             uint             `gorm:"primarykey" json:"id"`
	OwnerID        uint             `json:"owner_id,omitempty"`
	OriginName     string           `json:"origin_name,omitempty"`
	OriginLat      float64          `json:"origin_lat,omitempty"`
	OriginLng      float64          `json:"origin_lng,omitempty"`
	DestName       string           `json:"dest_name,omitempty"`
	DestLat        float64          `json:"dest_lat,omitempty"`
	DestLng        float64          `json:"dest_lng,omitempty"`
	DateTime       *time.Time       `json:"date_time,omitempty"`
	PricePerSeat   float64          `json:"price_per_seat,omitempty"`
	SeatsTotal     uint             `json:"seats_total,omitempty"`
	SeatsAvailable uint             `json:"seats_available"`
	Status         types.RideStatus `gorm:"default:'open'" json:"status,omitempty"`

	Owner    *User      `gorm:"foreignKey:owner_id" json:"owner,omitempty"`
	Bookings []*Booking `json:"bookings,omitempty"`

	types.Timestamps
}
