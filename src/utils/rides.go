package utils

import (
	"carpool/src/apperrors"
	"carpool/src/config"
	"carpool/src/db"
	"carpool/src/models"
	"carpool/src/types"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

func CreateRide(userId uint, params *types.CreateRideRequestBody) (*models.Ride, error) {
	dateTime, err := time.Parse(config.TIME_PARSE_FORMAT, params.DateTime)
	if err != nil {
		log.Printf("Error parsing date_time: %s\n", err.Error())
		return nil, apperrors.Invalid("invalid date_time format")
	}
	ride := models.Ride{
		OwnerID:        userId,
		OriginName:     params.Origin.Name,
		OriginLat:      params.Origin.Lat,
		OriginLng:      params.Origin.Lng,
		DestName:       params.Destination.Name,
		DestLat:        params.Destination.Lat,
		DestLng:        params.Destination.Lng,
		DateTime:       &dateTime,
		PricePerSeat:   params.PricePerSeat,
		SeatsTotal:     params.SeatsTotal,
		SeatsAvailable: params.SeatsTotal,
		Status:         types.RIDE_OPEN,
	}
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&ride).Error
	})
	if err != nil {
		log.Printf("CreateRide failed: %s\n", err.Error())
		return nil, err
	}
	return &ride, nil
}

// UpdateRide mutates route, time and price freely while the ride is open. A
// seatsTotal change propagates a clamped adjustment to seatsAvailable so the
// 0 <= available <= total invariant survives resizes in both directions.
func UpdateRide(userId uint, rideId uint, params *types.UpdateRideRequestBody) (*models.Ride, error) {
	var ride models.Ride
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
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
		if ride.OwnerID != userId {
			return apperrors.Forbidden("not the ride owner")
		}
		if ride.Status != types.RIDE_OPEN {
			return apperrors.Conflict("ride cannot be updated in status %s", ride.Status)
		}
		if params.Origin != nil {
			ride.OriginName = params.Origin.Name
			ride.OriginLat = params.Origin.Lat
			ride.OriginLng = params.Origin.Lng
		}
		if params.Destination != nil {
			ride.DestName = params.Destination.Name
			ride.DestLat = params.Destination.Lat
			ride.DestLng = params.Destination.Lng
		}
		if params.DateTime != nil {
			dateTime, err := time.Parse(config.TIME_PARSE_FORMAT, *params.DateTime)
			if err != nil {
				return apperrors.Invalid("invalid date_time format")
			}
			ride.DateTime = &dateTime
		}
		if params.PricePerSeat != nil {
			ride.PricePerSeat = *params.PricePerSeat
		}
		if params.SeatsTotal != nil && *params.SeatsTotal != ride.SeatsTotal {
			newTotal := *params.SeatsTotal
			adjusted := int(ride.SeatsAvailable) + int(newTotal) - int(ride.SeatsTotal)
			if adjusted < 0 {
				adjusted = 0
			}
			if adjusted > int(newTotal) {
				adjusted = int(newTotal)
			}
			ride.SeatsTotal = newTotal
			ride.SeatsAvailable = uint(adjusted)
		}
		return tx.Save(&ride).Error
	})
	if err != nil {
		log.Printf("UpdateRide failed: %s\n", err.Error())
		return nil, err
	}
	return &ride, nil
}

func StartRide(userId uint, rideId uint) (*models.Ride, error) {
	ride, err := transitionRide(userId, rideId, types.RIDE_ONGOING, types.RIDE_OPEN)
	if err != nil {
		return nil, err
	}
	NotifyRideUpdate(ride, "ride.started")
	return ride, nil
}

// CompleteRide moves an ongoing ride to completed and cascades completion to
// every non-terminal booking on it.
func CompleteRide(userId uint, rideId uint) (*models.Ride, error) {
	var ride models.Ride
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadOwnedRide(tx, rideId, userId, &ride); err != nil {
			return err
		}
		if ride.Status != types.RIDE_ONGOING {
			return apperrors.Conflict("ride cannot be completed in status %s", ride.Status)
		}
		if err := tx.
			Model(&models.Ride{}).
			Where("id = ?", rideId).
			Update("status", types.RIDE_COMPLETED).
			Error; err != nil {
			return err
		}
		ride.Status = types.RIDE_COMPLETED
		return tx.
			Model(&models.Booking{}).
			Where("ride_id = ?", rideId).
			Where("status IN ?", nonTerminalBookingStatuses()).
			Update("status", types.BOOKING_COMPLETED).
			Error
	})
	if err != nil {
		log.Printf("CompleteRide failed: %s\n", err.Error())
		return nil, err
	}
	NotifyRideUpdate(&ride, "ride.completed")
	return &ride, nil
}

// CancelRide cancels an open or ongoing ride and driver-cancels every
// non-terminal booking on it, refunding the paid ones. A failed refund aborts
// the whole cancellation.
func CancelRide(userId uint, rideId uint) (*models.Ride, error) {
	var ride models.Ride
	var affected []models.Booking
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadOwnedRide(tx, rideId, userId, &ride); err != nil {
			return err
		}
		if ride.Status != types.RIDE_OPEN && ride.Status != types.RIDE_ONGOING {
			return apperrors.Conflict("ride cannot be cancelled in status %s", ride.Status)
		}
		if err := tx.
			Model(&models.Booking{}).
			Where("ride_id = ?", rideId).
			Where("status IN ?", nonTerminalBookingStatuses()).
			Find(&affected).
			Error; err != nil {
			return err
		}
		for i := range affected {
			if err := cancelBookingTx(tx, &affected[i], &ride, types.CANCEL_BY_DRIVER, false); err != nil {
				return err
			}
		}
		if err := tx.
			Model(&models.Ride{}).
			Where("id = ?", rideId).
			Update("status", types.RIDE_CANCELED).
			Error; err != nil {
			return err
		}
		ride.Status = types.RIDE_CANCELED
		return nil
	})
	if err != nil {
		log.Printf("CancelRide failed: %s\n", err.Error())
		return nil, err
	}
	NotifyRideUpdate(&ride, "ride.cancelled")
	for i := range affected {
		NotifyBookingUpdate(&affected[i], "booking.cancelled_by_driver")
	}
	return &ride, nil
}

func transitionRide(userId uint, rideId uint, target types.RideStatus, from types.RideStatus) (*models.Ride, error) {
	var ride models.Ride
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadOwnedRide(tx, rideId, userId, &ride); err != nil {
			return err
		}
		if ride.Status != from {
			return apperrors.Conflict("ride cannot transition to %s from status %s", target, ride.Status)
		}
		if err := tx.
			Model(&models.Ride{}).
			Where("id = ?", rideId).
			Where("status = ?", from).
			Update("status", target).
			Error; err != nil {
			return err
		}
		ride.Status = target
		return nil
	})
	if err != nil {
		log.Printf("Ride transition to %s failed: %s\n", target, err.Error())
		return nil, err
	}
	return &ride, nil
}

func loadOwnedRide(tx *gorm.DB, rideId uint, userId uint, ride *models.Ride) error {
	if err := tx.
		Model(&models.Ride{}).
		Where("id = ?", rideId).
		First(ride).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("ride not found")
		}
		return err
	}
	if ride.OwnerID != userId {
		return apperrors.Forbidden("not the ride owner")
	}
	return nil
}

func nonTerminalBookingStatuses() []types.BookingStatus {
	return []types.BookingStatus{
		types.BOOKING_PENDING,
		types.BOOKING_ACCEPTED,
		types.BOOKING_PAYMENT_PENDING,
	}
}
