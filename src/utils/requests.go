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

func CreateRideRequest(passengerId uint, params *types.CreateRideRequestRequestBody) (*models.RideRequest, error) {
	dateTime, err := time.Parse(config.TIME_PARSE_FORMAT, params.DateTime)
	if err != nil {
		return nil, apperrors.Invalid("invalid date_time format")
	}
	request := models.RideRequest{
		PassengerID: passengerId,
		Mode:        types.REQUEST_MODE_OFFER,
		Status:      types.REQUEST_PENDING,
		OriginName:  params.Origin.Name,
		OriginLat:   params.Origin.Lat,
		OriginLng:   params.Origin.Lng,
		DestName:    params.Destination.Name,
		DestLat:     params.Destination.Lat,
		DestLng:     params.Destination.Lng,
		DateTime:    &dateTime,
		SeatsNeeded: params.Seats,
	}
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&request).Error
	})
	if err != nil {
		log.Printf("CreateRideRequest failed: %s\n", err.Error())
		return nil, err
	}
	BroadcastRequestAsync(&request)
	return &request, nil
}

func UpdateRideRequest(passengerId uint, requestId uint, params *types.UpdateRideRequestRequestBody) (*models.RideRequest, error) {
	var request models.RideRequest
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadRequest(tx, requestId, &request); err != nil {
			return err
		}
		if request.PassengerID != passengerId {
			return apperrors.Forbidden("not the request owner")
		}
		if request.Status != types.REQUEST_PENDING && request.Status != types.REQUEST_OFFERING {
			return apperrors.Conflict("request cannot be updated in status %s", request.Status)
		}
		if params.Origin != nil {
			request.OriginName = params.Origin.Name
			request.OriginLat = params.Origin.Lat
			request.OriginLng = params.Origin.Lng
		}
		if params.Destination != nil {
			request.DestName = params.Destination.Name
			request.DestLat = params.Destination.Lat
			request.DestLng = params.Destination.Lng
		}
		if params.DateTime != nil {
			dateTime, err := time.Parse(config.TIME_PARSE_FORMAT, *params.DateTime)
			if err != nil {
				return apperrors.Invalid("invalid date_time format")
			}
			request.DateTime = &dateTime
		}
		if params.Seats != nil {
			request.SeatsNeeded = *params.Seats
		}
		return tx.Save(&request).Error
	})
	if err != nil {
		log.Printf("UpdateRideRequest failed: %s\n", err.Error())
		return nil, err
	}
	return &request, nil
}

func CancelRideRequest(passengerId uint, requestId uint) (*models.RideRequest, error) {
	var request models.RideRequest
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadRequest(tx, requestId, &request); err != nil {
			return err
		}
		if request.PassengerID != passengerId {
			return apperrors.Forbidden("not the request owner")
		}
		if request.Status != types.REQUEST_PENDING && request.Status != types.REQUEST_OFFERING {
			return apperrors.Conflict("request cannot be cancelled in status %s", request.Status)
		}
		if err := rejectPendingOffers(tx, requestId, 0); err != nil {
			return err
		}
		if err := InitiateRequestRefund(tx, &request, types.CANCEL_BY_PASSENGER); err != nil {
			return err
		}
		if err := tx.
			Model(&models.RideRequest{}).
			Where("id = ?", requestId).
			Update("status", types.REQUEST_CANCELED).
			Error; err != nil {
			return err
		}
		request.Status = types.REQUEST_CANCELED
		return nil
	})
	if err != nil {
		log.Printf("CancelRideRequest failed: %s\n", err.Error())
		return nil, err
	}
	CancelBroadcastAsync(request.ID)
	return &request, nil
}

// CreateOffer lets a driver propose one of their open rides for a pending
/// request. Uniqueness is on (request, driver, ride): a rejected or cancelled
// offer from the same pair is revived instead of duplicated.
func CreateOffer(driverId uint, requestId uint, params *types.CreateOfferRequestBody) (*models.RideRequestOffer, error) {
	var offer models.RideRequestOffer
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var request models.RideRequest
		if err := loadRequest(tx, requestId, &request); err != nil {
			return err
		}
		if request.Status != types.REQUEST_PENDING && request.Status != types.REQUEST_OFFERING {
			return apperrors.Conflict("request is not open for offers, current status %s", request.Status)
		}
		var ride models.Ride
		if err := tx.
			Model(&models.Ride{}).
			Where("id = ?", params.RideID).
			First(&ride).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("ride not found")
			}
			return err
		}
		if ride.OwnerID != driverId {
			return apperrors.Forbidden("not the ride owner")
		}
		if ride.Status != types.RIDE_OPEN {
			return apperrors.Conflict("ride is not open, current status %s", ride.Status)
		}

		seats := request.SeatsNeeded
		if params.Seats != nil {
			seats = *params.Seats
		}
		if seats < request.SeatsNeeded {
			return apperrors.Invalid("offer must cover the %d seat(s) needed", request.SeatsNeeded)
		}
		if seats > ride.SeatsAvailable {
			return apperrors.Invalid("offered %d seats but only %d available", seats, ride.SeatsAvailable)
		}
		price := ride.PricePerSeat
		if params.PricePerSeat != nil {
			price = *params.PricePerSeat
		}

		err := tx.
			Model(&models.RideRequestOffer{}).
			Where(&models.RideRequestOffer{RideRequestID: requestId, DriverID: driverId, RideID: ride.ID}).
			First(&offer).
			Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil {
			if offer.Status == types.OFFER_PENDING || offer.Status == types.OFFER_ACCEPTED {
				return apperrors.Conflict("an offer for this request already exists with status %s", offer.Status)
			}
			offer.SeatsOffered = seats
			offer.PricePerSeat = price
			offer.Status = types.OFFER_PENDING
			if err := tx.Save(&offer).Error; err != nil {
				return err
			}
		} else {
			offer = models.RideRequestOffer{
				RideRequestID: requestId,
				DriverID:      driverId,
				RideID:        ride.ID,
				SeatsOffered:  seats,
				PricePerSeat:  price,
				Status:        types.OFFER_PENDING,
			}
			if err := tx.Create(&offer).Error; err != nil {
				return err
			}
		}
		if request.Status == types.REQUEST_PENDING {
			return tx.
				Model(&models.RideRequest{}).
				Where("id = ?", requestId).
				Update("status", types.REQUEST_OFFERING).
				Error
		}
		return nil
	})
	if err != nil {
		log.Printf("CreateOffer failed: %s\n", err.Error())
		return nil, err
	}
	return &offer, nil
}

// AcceptOffer commits the five-effect match in one transaction: the chosen
// offer is accepted, the request marked ACCEPTED, a pre-accepted booking
// created, the ride's seats decremented, and every other pending offer
// rejected. A retried accept of the already-chosen offer returns the prior
// result with idempotent=true.
func AcceptOffer(passengerId uint, requestId uint, offerId uint) (*models.RideRequestOffer, *models.Booking, bool, error) {
	var offer models.RideRequestOffer
	var booking models.Booking
	idempotent := false
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.RideRequestOffer{}).
			Where("id = ?", offerId).
			Preload("RideRequest").
			Preload("Ride").
			First(&offer).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("offer not found")
			}
			return err
		}
		if offer.RideRequestID != requestId {
			return apperrors.Invalid("offer does not belong to this request")
		}
		request := offer.RideRequest
		if request.PassengerID != passengerId {
			return apperrors.Forbidden("not the request owner")
		}
		if offer.Status == types.OFFER_ACCEPTED && request.Status == types.REQUEST_ACCEPTED {
			idempotent = true
			if request.BookingID != nil {
				return tx.
					Model(&models.Booking{}).
					Where("id = ?", *request.BookingID).
					First(&booking).
					Error
			}
			return nil
		}
		if offer.Status != types.OFFER_PENDING {
			return apperrors.Conflict("offer cannot be accepted in status %s", offer.Status)
		}
		if request.Status != types.REQUEST_PENDING && request.Status != types.REQUEST_OFFERING {
			return apperrors.Conflict("request cannot be matched in status %s", request.Status)
		}

		res := tx.
			Model(&models.Ride{}).
			Where("id = ? AND seats_available >= ?", offer.RideID, request.SeatsNeeded).
			UpdateColumn("seats_available", gorm.Expr("seats_available - ?", request.SeatsNeeded))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("not enough seats available on the offered ride")
		}
		booking = models.Booking{
			RideID:        offer.RideID,
			PassengerID:   passengerId,
			SeatsBooked:   request.SeatsNeeded,
			Status:        types.BOOKING_ACCEPTED,
			PaymentStatus: types.PAYMENT_UNPAID,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.RideRequestOffer{}).
			Where("id = ?", offerId).
			Update("status", types.OFFER_ACCEPTED).
			Error; err != nil {
			return err
		}
		offer.Status = types.OFFER_ACCEPTED
		if err := tx.
			Model(&models.RideRequest{}).
			Where("id = ?", requestId).
			Updates(map[string]any{
				"status":     types.REQUEST_ACCEPTED,
				"driver_id":  offer.DriverID,
				"booking_id": booking.ID,
			}).
			Error; err != nil {
			return err
		}
		return rejectPendingOffers(tx, requestId, offerId)
	})
	if err != nil {
		log.Printf("AcceptOffer failed: %s\n", err.Error())
		return nil, nil, false, err
	}
	if !idempotent {
		NotifyBookingUpdate(&booking, "booking.accepted")
	}
	return &offer, &booking, idempotent, nil
}

func RejectOffer(passengerId uint, requestId uint, offerId uint) (*models.RideRequestOffer, error) {
	return closeOffer(requestId, offerId, types.OFFER_REJECTED, func(offer *models.RideRequestOffer) error {
		if offer.RideRequest.PassengerID != passengerId {
			return apperrors.Forbidden("not the request owner")
		}
		return nil
	})
}

func CancelOffer(driverId uint, requestId uint, offerId uint) (*models.RideRequestOffer, error) {
	return closeOffer(requestId, offerId, types.OFFER_CANCELED, func(offer *models.RideRequestOffer) error {
		if offer.DriverID != driverId {
			return apperrors.Forbidden("not the offer owner")
		}
		return nil
	})
}

func closeOffer(requestId uint, offerId uint, target types.OfferStatus, authorize func(*models.RideRequestOffer) error) (*models.RideRequestOffer, error) {
	var offer models.RideRequestOffer
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.RideRequestOffer{}).
			Where("id = ?", offerId).
			Preload("RideRequest").
			First(&offer).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("offer not found")
			}
			return err
		}
		if offer.RideRequestID != requestId {
			return apperrors.Invalid("offer does not belong to this request")
		}
		if err := authorize(&offer); err != nil {
			return err
		}
		if offer.Status != types.OFFER_PENDING {
			return apperrors.Conflict("offer cannot transition to %s from status %s", target, offer.Status)
		}
		if err := tx.
			Model(&models.RideRequestOffer{}).
			Where("id = ?", offerId).
			Update("status", target).
			Error; err != nil {
			return err
		}
		offer.Status = target
		return nil
	})
	if err != nil {
		log.Printf("Offer transition to %s failed: %s\n", target, err.Error())
		return nil, err
	}
	return &offer, nil
}

// AcceptRideRequest is the dispatcher's direct-accept path. It is idempotent:
// a replay for an already-accepted request returns the prior result instead
// of re-mutating; terminal requests are rejected as conflicts. For JIT
// requests the ride, the pre-paid booking and the payment row materialize in
// the same transaction.
func AcceptRideRequest(requestId uint, params *types.DispatchAcceptRequestBody) (*models.RideRequest, *models.Booking, bool, error) {
	var request models.RideRequest
	var booking models.Booking
	idempotent := false
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadRequest(tx, requestId, &request); err != nil {
			return err
		}
		if request.Status == types.REQUEST_ACCEPTED {
			idempotent = true
			if request.BookingID != nil {
				return tx.
					Model(&models.Booking{}).
					Where("id = ?", *request.BookingID).
					First(&booking).
					Error
			}
			return nil
		}
		if request.Status.Terminal() {
			return apperrors.Conflict("request cannot be accepted in status %s", request.Status)
		}
		var driver models.User
		if err := tx.
			Model(&models.User{}).
			Where("id = ?", params.DriverID).
			First(&driver).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Invalid("unknown driver %d", params.DriverID)
			}
			return err
		}

		price := request.QuotedPrice
		if params.PricePerSeat != nil {
			price = *params.PricePerSeat
		}

		var ride models.Ride
		if params.RideID != nil {
			if err := tx.
				Model(&models.Ride{}).
				Where("id = ?", *params.RideID).
				First(&ride).
				Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound("ride not found")
				}
				return err
			}
			if ride.OwnerID != params.DriverID {
				return apperrors.Forbidden("ride does not belong to the accepting driver")
			}
			if ride.Status != types.RIDE_OPEN {
				return apperrors.Conflict("ride is not open, current status %s", ride.Status)
			}
			res := tx.
				Model(&models.Ride{}).
				Where("id = ? AND seats_available >= ?", ride.ID, request.SeatsNeeded).
				UpdateColumn("seats_available", gorm.Expr("seats_available - ?", request.SeatsNeeded))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperrors.Conflict("not enough seats available")
			}
		} else {
			ride = models.Ride{
				OwnerID:        params.DriverID,
				OriginName:     request.OriginName,
				OriginLat:      request.OriginLat,
				OriginLng:      request.OriginLng,
				DestName:       request.DestName,
				DestLat:        request.DestLat,
				DestLng:        request.DestLng,
				DateTime:       request.DateTime,
				PricePerSeat:   price,
				SeatsTotal:     request.SeatsNeeded,
				SeatsAvailable: 0,
				Status:         types.RIDE_OPEN,
			}
			if err := tx.Create(&ride).Error; err != nil {
				return err
			}
		}

		booking = models.Booking{
			RideID:        ride.ID,
			PassengerID:   request.PassengerID,
			SeatsBooked:   request.SeatsNeeded,
			Status:        types.BOOKING_ACCEPTED,
			PaymentStatus: types.PAYMENT_UNPAID,
		}
		if request.Mode == types.REQUEST_MODE_JIT {
			booking.PaymentStatus = types.PAYMENT_PAID
			booking.PaymentIntentId = request.PaymentIntentId
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		if request.Mode == types.REQUEST_MODE_JIT && request.PaymentIntentId != nil {
			if err := upsertPaymentForBooking(tx, &request, &booking); err != nil {
				return err
			}
		}
		if err := tx.
			Model(&models.RideRequest{}).
			Where("id = ?", requestId).
			Updates(map[string]any{
				"status":     types.REQUEST_ACCEPTED,
				"driver_id":  params.DriverID,
				"booking_id": booking.ID,
			}).
			Error; err != nil {
			return err
		}
		request.Status = types.REQUEST_ACCEPTED
		request.DriverID = &params.DriverID
		request.BookingID = &booking.ID
		return rejectPendingOffers(tx, requestId, 0)
	})
	if err != nil {
		log.Printf("AcceptRideRequest failed: %s\n", err.Error())
		return nil, nil, false, err
	}
	if !idempotent {
		NotifyBookingUpdate(&booking, "booking.accepted")
	}
	return &request, &booking, idempotent, nil
}

// ExpireStaleRequests marks unmatched requests past their departure time as
// EXPIRED and rejects their pending offers. Run on a schedule. Each request
// expires in its own transaction: a paid JIT request is refunded to the
// passenger first, and a failed refund leaves that request untouched for the
// next sweep without blocking the rest of the batch.
func ExpireStaleRequests() {
	db := db.GetDb()
	var stale []models.RideRequest
	if err := db.
		Model(&models.RideRequest{}).
		Where("status IN ?", []types.RequestStatus{types.REQUEST_PENDING, types.REQUEST_OFFERING}).
		Where("date_time < ?", time.Now()).
		Find(&stale).
		Error; err != nil {
		log.Printf("ExpireStaleRequests failed: %s\n", err.Error())
		return
	}
	expired := 0
	for i := range stale {
		r := &stale[i]
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := rejectPendingOffers(tx, r.ID, 0); err != nil {
				return err
			}
			if err := InitiateRequestRefund(tx, r, types.CANCEL_BY_SYSTEM); err != nil {
				return err
			}
			return tx.
				Model(&models.RideRequest{}).
				Where("id = ?", r.ID).
				Update("status", types.REQUEST_EXPIRED).
				Error
		})
		if err != nil {
			log.Printf("Expiry of request %d failed: %s\n", r.ID, err.Error())
			continue
		}
		expired++
	}
	if expired > 0 {
		log.Printf("Expired %d stale ride request(s)\n", expired)
	}
}

// rejectPendingOffers closes every still-pending offer on a request except
// the one being kept (0 keeps none).
func rejectPendingOffers(tx *gorm.DB, requestId uint, keepOfferId uint) error {
	q := tx.
		Model(&models.RideRequestOffer{}).
		Where("ride_request_id = ?", requestId).
		Where("status = ?", types.OFFER_PENDING)
	if keepOfferId > 0 {
		q = q.Where("id <> ?", keepOfferId)
	}
	return q.Update("status", types.OFFER_REJECTED).Error
}

func loadRequest(tx *gorm.DB, requestId uint, request *models.RideRequest) error {
	if err := tx.
		Model(&models.RideRequest{}).
		Where("id = ?", requestId).
		First(request).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("ride request not found")
		}
		return err
	}
	return nil
}
