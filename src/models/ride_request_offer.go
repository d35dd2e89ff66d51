package models

import "carpool/src/types"

type RideRequestOffer struct {
	ID            uint              `gorm:"primarykey" json:"id"`
	RideRequestID uint              `gorm:"uniqueIndex:idx_offer_request_driver_ride" json:"ride_request_id,omitempty"`
	DriverID      uint              `gorm:"uniqueIndex:idx_offer_request_driver_ride" json:"driver_id,omitempty"`
	RideID        uint              `gorm:"uniqueIndex:idx_offer_request_driver_ride" json:"ride_id,omitempty"`
	SeatsOffered  uint              `json:"seats_offered,omitempty"`
	PricePerSeat  float64           `json:"price_per_seat,omitempty"`
	Status        types.OfferStatus `gorm:"default:'pending'" json:"status,omitempty"`

	RideRequest *RideRequest `json:"ride_request,omitempty"`
	Driver      *User        `gorm:"foreignKey:driver_id" json:"driver,omitempty"`
	Ride        *Ride        `gorm:"foreignKey:ride_id" json:"ride,omitempty"`

	types.Timestamps
}
