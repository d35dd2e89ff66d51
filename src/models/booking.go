package models

import "carpool/src/types"

type Booking struct {
	ID              uint                `gorm:"primarykey" json:"id"`
	RideID          uint                `json:"ride_id,omitempty"`
	PassengerID     uint                `json:"passenger_id,omitempty"`
	SeatsBooked     uint                `json:"seats_booked,omitempty"`
	Status          types.BookingStatus `gorm:"default:'pending'" json:"status,omitempty"`
	PaymentStatus   types.PaymentStatus `gorm:"default:'unpaid'" json:"payment_status,omitempty"`
	PaymentIntentId *string             `json:"payment_intent_id,omitempty"`

	Ride      *Ride `gorm:"foreignKey:ride_id" json:"ride,omitempty"`
	Passenger *User `gorm:"foreignKey:passenger_id" json:"passenger,omitempty"`

	types.Timestamps
}
