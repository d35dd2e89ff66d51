package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type RideStatus string

const (
	RIDE_OPEN      RideStatus = "open"
	RIDE_ONGOING   RideStatus = "ongoing"
	RIDE_COMPLETED RideStatus = "completed"
	RIDE_CANCELED  RideStatus = "cancelled"
)

type BookingStatus string

const (
	BOOKING_PENDING            BookingStatus = "pending"
	BOOKING_ACCEPTED           BookingStatus = "accepted"
	BOOKING_PAYMENT_PENDING    BookingStatus = "payment_pending"
	BOOKING_CANCELED_PASSENGER BookingStatus = "cancelled_by_passenger"
	BOOKING_CANCELED_DRIVER    BookingStatus = "cancelled_by_driver"
	BOOKING_COMPLETED          BookingStatus = "completed"
)

// Terminal reports whether a booking status can never change again.
func (s BookingStatus) Terminal() bool {
	return s == BOOKING_CANCELED_PASSENGER || s == BOOKING_CANCELED_DRIVER || s == BOOKING_COMPLETED
}

type PaymentStatus string

const (
	PAYMENT_UNPAID   PaymentStatus = "unpaid"
	PAYMENT_PENDING  PaymentStatus = "pending"
	PAYMENT_PAID     PaymentStatus = "paid"
	PAYMENT_FAILED   PaymentStatus = "failed"
	PAYMENT_REFUNDED PaymentStatus = "refunded"
)

type RequestMode string

const (
	REQUEST_MODE_OFFER RequestMode = "OFFER"
	REQUEST_MODE_JIT   RequestMode = "JIT"
)

type RequestStatus string

const (
	REQUEST_PENDING  RequestStatus = "PENDING"
	REQUEST_OFFERING RequestStatus = "OFFERING"
	REQUEST_ACCEPTED RequestStatus = "ACCEPTED"
	REQUEST_CANCELED RequestStatus = "CANCELLED"
	REQUEST_EXPIRED  RequestStatus = "EXPIRED"
)

func (s RequestStatus) Terminal() bool {
	return s == REQUEST_CANCELED || s == REQUEST_EXPIRED
}

type OfferStatus string

const (
	OFFER_PENDING  OfferStatus = "pending"
	OFFER_ACCEPTED OfferStatus = "accepted"
	OFFER_REJECTED OfferStatus = "rejected"
	OFFER_CANCELED OfferStatus = "cancelled"
)

type PaymentRecordStatus string

const (
	PAYMENT_RECORD_PENDING   PaymentRecordStatus = "pending"
	PAYMENT_RECORD_SUCCEEDED PaymentRecordStatus = "succeeded"
	PAYMENT_RECORD_FAILED    PaymentRecordStatus = "failed"
	PAYMENT_RECORD_REFUNDED  PaymentRecordStatus = "refunded"
)

// CancelSource identifies who initiated a booking cancellation. It is part of
// the refund idempotency key.
type CancelSource string

const (
	CANCEL_BY_PASSENGER CancelSource = "passenger"
	CANCEL_BY_DRIVER    CancelSource = "driver"
	CANCEL_BY_SYSTEM    CancelSource = "system"
)

type RoutePoint struct {
	Name string  `json:"name" binding:"required"`
	Lat  float64 `json:"lat" binding:"required,latitude"`
	Lng  float64 `json:"lng" binding:"required,longitude"`
}

type CreateRideRequestBody struct {
	Origin       RoutePoint `json:"origin" binding:"required"`
	Destination  RoutePoint `json:"destination" binding:"required"`
	DateTime     string     `json:"date_time" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	PricePerSeat float64    `json:"price_per_seat" binding:"required,gt=0"`
	SeatsTotal   uint       `json:"seats_total" binding:"required,gt=0"`
}

type UpdateRideRequestBody struct {
	Origin       *RoutePoint `json:"origin,omitempty"`
	Destination  *RoutePoint `json:"destination,omitempty"`
	DateTime     *string     `json:"date_time,omitempty" binding:"omitempty,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	PricePerSeat *float64    `json:"price_per_seat,omitempty" binding:"omitempty,gt=0"`
	SeatsTotal   *uint       `json:"seats_total,omitempty" binding:"omitempty,gt=0"`
}

type CreateBookingRequestBody struct {
	Seats uint `json:"seats" binding:"required,gt=0"`
}

type CreateRideRequestRequestBody struct {
	Origin      RoutePoint `json:"origin" binding:"required"`
	Destination RoutePoint `json:"destination" binding:"required"`
	DateTime    string     `json:"date_time" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	Seats       uint       `json:"seats" binding:"required,gt=0"`
}

type UpdateRideRequestRequestBody struct {
	Origin      *RoutePoint `json:"origin,omitempty"`
	Destination *RoutePoint `json:"destination,omitempty"`
	DateTime    *string     `json:"date_time,omitempty" binding:"omitempty,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	Seats       *uint       `json:"seats,omitempty" binding:"omitempty,gt=0"`
}

type CreateOfferRequestBody struct {
	RideID       uint     `json:"ride_id" binding:"required"`
	Seats        *uint    `json:"seats,omitempty" binding:"omitempty,gt=0"`
	PricePerSeat *float64 `json:"price_per_seat,omitempty" binding:"omitempty,gt=0"`
}

// DispatchAcceptRequestBody is the server-to-server accept payload from the
// dispatcher. RideID is optional: without it a ride is materialized from the
// accepted terms.
type DispatchAcceptRequestBody struct {
	DriverID     uint     `json:"driver_id" binding:"required"`
	RideID       *uint    `json:"ride_id,omitempty"`
	PricePerSeat *float64 `json:"price_per_seat,omitempty" binding:"omitempty,gt=0"`
}

type CreateJITIntentRequestBody struct {
	Origin      RoutePoint `json:"origin" binding:"required"`
	Destination RoutePoint `json:"destination" binding:"required"`
	DateTime    string     `json:"date_time" binding:"required,bookabledate" time_format:"2006-01-02 15:04:05 -07:00"`
	Seats       uint       `json:"seats" binding:"required,gt=0"`
	BasePrice   *float64   `json:"base_price,omitempty" binding:"omitempty,gt=0"`
	Currency    string     `json:"currency,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type OfferURIParams struct {
	RequestID uint `uri:"id" binding:"required"`
	OfferID   uint `uri:"offerId" binding:"required"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TripMetadata is the trip payload carried on a JIT payment intent. The
// RideRequest is materialized from these fields once the intent succeeds.
type TripMetadata struct {
	PassengerID  uint    `json:"passenger_id"`
	OriginName   string  `json:"origin_name"`
	OriginLat    float64 `json:"origin_lat"`
	OriginLng    float64 `json:"origin_lng"`
	DestName     string  `json:"dest_name"`
	DestLat      float64 `json:"dest_lat"`
	DestLng      float64 `json:"dest_lng"`
	DateTime     string  `json:"date_time"`
	Seats        uint    `json:"seats"`
	PricePerSeat float64 `json:"price_per_seat"`
	Currency     string  `json:"currency"`
}
