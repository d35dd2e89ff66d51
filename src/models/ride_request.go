package models

import (
	"carpool/src/types"
	"time"
)

type RideRequest struct {
	ID          uint                `gorm:"primarykey" json:"id"`
	PassengerID uint                `json:"passenger_id,omitempty"`
	Mode        types.RequestMode   `gorm:"default:'OFFER'" json:"mode,omitempty"`
	Status      types.RequestStatus `gorm:"default:'PENDING'" json:"status,omitempty"`
	OriginName  string              `json:"origin_name,omitempty"`
	OriginLat   float64             `json:"origin_lat,omitempty"`
	OriginLng   float64             `json:"origin_lng,omitempty"`
	DestName    string              `json:"dest_name,omitempty"`
	DestLat     float64             `json:"dest_lat,omitempty"`
	DestLng     float64             `json:"dest_lng,omitempty"`
	DateTime    *time.Time          `json:"date_time,omitempty"`
	SeatsNeeded uint                `json:"seats_needed,omitempty"`
	DriverID    *uint               `json:"driver_id,omitempty"`
	BookingID   *uint               `json:"booking_id,omitempty"`

	// JIT mode only: the payment that gated this request's creation.
	PaymentIntentId *string `gorm:"uniqueIndex" json:"payment_intent_id,omitempty"`
	AmountCaptured  int64   `json:"amount_captured,omitempty"`
	QuotedPrice     float64 `json:"quoted_price,omitempty"`

	Passenger *User               `gorm:"foreignKey:passenger_id" json:"passenger,omitempty"`
	Driver    *User               `gorm:"foreignKey:driver_id" json:"driver,omitempty"`
	Offers    []*RideRequestOffer `json:"offers,omitempty"`

	types.Timestamps
}
