package utils

import (
	"carpool/src/apperrors"
	"carpool/src/db"
	"carpool/src/models"
	"carpool/src/types"
	"errors"
	"log"

	"gorm.io/gorm"
)

// CreateBooking records a passenger's intent to ride. No seats are reserved
// here: the decrement happens only when the driver confirms.
func CreateBooking(passengerId uint, rideId uint, seats uint) (*models.Booking, error) {
	var booking models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var ride models.Ride
		if err := tx.
			Model(&models.Ride{}).
			Where("id = ?", rideId).
			First(&ride).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("ride not found")
			}
			return err
		}
		if ride.OwnerID == passengerId {
			return apperrors.Invalid("cannot book a seat on your own ride")
		}
		if ride.Status != types.RIDE_OPEN {
			return apperrors.Conflict("ride is not open for booking, current status %s", ride.Status)
		}
		if seats > ride.SeatsTotal {
			return apperrors.Invalid("requested %d seats but the ride only has %d", seats, ride.SeatsTotal)
		}
		booking = models.Booking{
			RideID:        rideId,
			PassengerID:   passengerId,
			SeatsBooked:   seats,
			Status:        types.BOOKING_PENDING,
			PaymentStatus: types.PAYMENT_UNPAID,
		}
		return tx.Create(&booking).Error
	})
	if err != nil {
		log.Printf("CreateBooking failed: %s\n", err.Error())
		return nil, err
	}
	NotifyBookingUpdate(&booking, "booking.created")
	return &booking, nil
}

// ConfirmBooking is the seat-reservation point: the driver approves a pending
// booking and the ride's seat counter is decremented in the same transaction,
// guarded by a conditional single-statement update so concurrent confirms
// cannot oversell.
func ConfirmBooking(driverId uint, bookingId uint) (*models.Booking, error) {
	var booking models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadBookingWithRide(tx, bookingId, &booking); err != nil {
			return err
		}
		if booking.Ride.OwnerID != driverId {
			return apperrors.Forbidden("not the ride owner")
		}
		if booking.Status != types.BOOKING_PENDING {
			return apperrors.Conflict("booking cannot be confirmed in status %s", booking.Status)
		}
		res := tx.
			Model(&models.Booking{}).
			Where("id = ? AND status = ?", bookingId, types.BOOKING_PENDING).
			Update("status", types.BOOKING_ACCEPTED)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("booking cannot be confirmed in status %s", booking.Status)
		}
		res = tx.
			Model(&models.Ride{}).
			Where("id = ? AND seats_available >= ?", booking.RideID, booking.SeatsBooked).
			UpdateColumn("seats_available", gorm.Expr("seats_available - ?", booking.SeatsBooked))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("not enough seats available")
		}
		booking.Status = types.BOOKING_ACCEPTED
		return nil
	})
	if err != nil {
		log.Printf("ConfirmBooking failed: %s\n", err.Error())
		return nil, err
	}
	NotifyBookingUpdate(&booking, "booking.accepted")
	return &booking, nil
}

// RejectBooking declines a pending booking. Nothing was reserved, so nothing
// is restored.
func RejectBooking(driverId uint, bookingId uint) (*models.Booking, error) {
	var booking models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadBookingWithRide(tx, bookingId, &booking); err != nil {
			return err
		}
		if booking.Ride.OwnerID != driverId {
			return apperrors.Forbidden("not the ride owner")
		}
		if booking.Status != types.BOOKING_PENDING {
			return apperrors.Conflict("booking cannot be rejected in status %s", booking.Status)
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("id = ?", bookingId).
			Update("status", types.BOOKING_CANCELED_DRIVER).
			Error; err != nil {
			return err
		}
		booking.Status = types.BOOKING_CANCELED_DRIVER
		return nil
	})
	if err != nil {
		log.Printf("RejectBooking failed: %s\n", err.Error())
		return nil, err
	}
	NotifyBookingUpdate(&booking, "booking.rejected")
	return &booking, nil
}

// CancelBooking cancels a non-terminal booking on behalf of the passenger or
// the driver. Seats reserved at confirmation are restored (capped at the
// ride's total); a paid booking is refunded first and the cancellation is
// aborted entirely if refund initiation fails.
func CancelBooking(actorId uint, bookingId uint, source types.CancelSource) (*models.Booking, error) {
	var booking models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadBookingWithRide(tx, bookingId, &booking); err != nil {
			return err
		}
		switch source {
		case types.CANCEL_BY_PASSENGER:
			if booking.PassengerID != actorId {
				return apperrors.Forbidden("not the booking owner")
			}
		case types.CANCEL_BY_DRIVER:
			if booking.Ride.OwnerID != actorId {
				return apperrors.Forbidden("not the ride owner")
			}
		}
		return cancelBookingTx(tx, &booking, booking.Ride, source, true)
	})
	if err != nil {
		log.Printf("CancelBooking failed: %s\n", err.Error())
		return nil, err
	}
	NotifyBookingUpdate(&booking, "booking."+string(booking.Status))
	return &booking, nil
}

// cancelBookingTx performs the cancellation inside the caller's transaction.
// Refund initiation happens before any status write: if the provider call
// fails the transaction rolls back and the booking stays untouched.
func cancelBookingTx(tx *gorm.DB, booking *models.Booking, ride *models.Ride, source types.CancelSource, restoreSeats bool) error {
	if booking.Status.Terminal() {
		return apperrors.Conflict("booking is already in terminal status %s", booking.Status)
	}
	seatsWereReserved := booking.Status == types.BOOKING_ACCEPTED || booking.Status == types.BOOKING_PAYMENT_PENDING

	if booking.PaymentStatus == types.PAYMENT_PAID {
		if err := InitiateRefund(tx, booking, source); err != nil {
			return err
		}
		booking.PaymentStatus = types.PAYMENT_REFUNDED
	}

	target := types.BOOKING_CANCELED_PASSENGER
	if source == types.CANCEL_BY_DRIVER {
		target = types.BOOKING_CANCELED_DRIVER
	}
	if err := tx.
		Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		Updates(map[string]any{
			"status":         target,
			"payment_status": booking.PaymentStatus,
		}).
		Error; err != nil {
		return err
	}
	booking.Status = target

	if restoreSeats && seatsWereReserved {
		restored := ride.SeatsAvailable + booking.SeatsBooked
		if restored > ride.SeatsTotal {
			restored = ride.SeatsTotal
		}
		if err := tx.
			Model(&models.Ride{}).
			Where("id = ?", ride.ID).
			UpdateColumn("seats_available", restored).
			Error; err != nil {
			return err
		}
		ride.SeatsAvailable = restored
	}
	return nil
}

func loadBookingWithRide(tx *gorm.DB, bookingId uint, booking *models.Booking) error {
	if err := tx.
		Model(&models.Booking{}).
		Where("id = ?", bookingId).
		Preload("Ride").
		First(booking).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("booking not found")
		}
		return err
	}
	if booking.Ride == nil {
		return apperrors.NotFound("ride not found for booking %d", bookingId)
	}
	return nil
}
