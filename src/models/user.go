package models

import "carpool/src/types"

type User struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Email string `gorm:"uniqueIndex" json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`

	Rides    []*Ride    `gorm:"foreignKey:owner_id" json:"rides,omitempty"`
	Bookings []*Booking `gorm:"foreignKey:passenger_id" json:"bookings,omitempty"`

	types.Timestamps
}
