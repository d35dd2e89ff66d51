package utils

import (
	"carpool/src/apperrors"
	"carpool/src/config"
	"carpool/src/db"
	"carpool/src/lib"
	"carpool/src/models"
	"carpool/src/pricing"
	"carpool/src/types"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const routePriceCacheTTL = 10 * time.Minute

// LookupRoutePrice returns the active fixed price for a normalized city pair,
// or nil when none is configured. Hits are cached in redis; without redis the
// lookup goes straight to the database every time.
func LookupRoutePrice(originCity, destCity string) *float64 {
	origin := pricing.NormalizeCity(originCity)
	dest := pricing.NormalizeCity(destCity)
	cacheKey := fmt.Sprintf("routeprice:%s:%s", origin, dest)

	rdb := lib.GetRedisClient()
	if rdb != nil {
		if cached, err := rdb.Get(context.Background(), cacheKey).Result(); err == nil {
			if price, err := strconv.ParseFloat(cached, 64); err == nil {
				return &price
			}
		}
	}

	var route models.RoutePrice
	err := db.GetDb().
		Model(&models.RoutePrice{}).
		Where("origin_city = ? AND dest_city = ? AND active = ?", origin, dest, true).
		First(&route).
		Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("LookupRoutePrice failed: %s\n", err.Error())
		}
		return nil
	}
	if rdb != nil {
		if err := rdb.Set(context.Background(), cacheKey, strconv.FormatFloat(route.Price, 'f', -1, 64), routePriceCacheTTL).Err(); err != nil {
			log.Printf("[redis] Error caching route price: %s\n", err.Error())
		}
	}
	return &route.Price
}

// CreateJITIntent quotes a near-departure trip and creates the payment intent
// that gates the ride request. The request itself is not created here; it
// materializes from the intent's metadata when the payment succeeds. The
// idempotency key is derived from the passenger and the quoted terms, so the
// same trip quoted twice reuses the same intent.
func CreateJITIntent(passengerId uint, params *types.CreateJITIntentRequestBody) (*models.Payment, *stripe.PaymentIntent, error) {
	departure, err := time.Parse(config.TIME_PARSE_FORMAT, params.DateTime)
	if err != nil {
		return nil, nil, apperrors.Invalid("invalid date_time format")
	}
	now := time.Now()
	if !pricing.WithinSurgeWindow(departure, now) {
		return nil, nil, apperrors.Invalid("departure is more than 2 hours away, post a ride request instead")
	}

	base := config.JITBasePrice()
	if params.BasePrice != nil {
		base = *params.BasePrice
	}
	override := LookupRoutePrice(params.Origin.Name, params.Destination.Name)
	quote := pricing.Resolve(pricing.Quote{
		OriginLat:     params.Origin.Lat,
		OriginLng:     params.Origin.Lng,
		DestLat:       params.Destination.Lat,
		DestLng:       params.Destination.Lng,
		Seats:         params.Seats,
		BasePrice:     base,
		OverridePrice: override,
		Departure:     departure,
		BookedAt:      now,
	})
	amount := pricing.AmountCents(quote.PricePerSeat, params.Seats)
	if amount <= 0 {
		return nil, nil, apperrors.Invalid("resolved amount is not payable")
	}
	currency := params.Currency
	if currency == "" {
		currency = "usd"
	}
	fee := int64(math.Round(float64(amount) * config.PlatformFeeFraction()))

	trip := types.TripMetadata{
		PassengerID:  passengerId,
		OriginName:   params.Origin.Name,
		OriginLat:    params.Origin.Lat,
		OriginLng:    params.Origin.Lng,
		DestName:     params.Destination.Name,
		DestLat:      params.Destination.Lat,
		DestLng:      params.Destination.Lng,
		DateTime:     params.DateTime,
		Seats:        params.Seats,
		PricePerSeat: quote.PricePerSeat,
		Currency:     currency,
	}
	tripJSON, err := json.Marshal(&trip)
	if err != nil {
		return nil, nil, err
	}
	idemKey := fmt.Sprintf("jit_%d_%s", passengerId, Sha256Hex(fmt.Sprintf("%d|%s|%s", amount, currency, tripJSON)))

	intentParams := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		Metadata: map[string]string{
			"kind": "jit_request",
			"trip": string(tripJSON),
		},
	}
	intentParams.IdempotencyKey = stripe.String(idemKey)
	intent, err := lib.GetPayments().CreateIntent(intentParams)
	if err != nil {
		log.Printf("CreateJITIntent provider call failed: %s\n", err.Error())
		return nil, nil, apperrors.Dependency("payment provider rejected the intent")
	}

	meta := types.JSONB{"kind": "jit_request"}
	var tripMap map[string]any
	if err := json.Unmarshal(tripJSON, &tripMap); err == nil {
		meta["trip"] = tripMap
	}
	payment := models.Payment{
		PaymentIntentId:  intent.ID,
		AmountCents:      amount,
		PlatformFeeCents: fee,
		Currency:         currency,
		Status:           types.PAYMENT_RECORD_PENDING,
		Metadata:         &meta,
	}
	err = db.GetDb().Transaction(func(tx *gorm.DB) error {
		res := tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "payment_intent_id"}},
				DoNothing: true,
			}).
			Create(&payment)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tx.
				Model(&models.Payment{}).
				Where("payment_intent_id = ?", intent.ID).
				First(&payment).
				Error
		}
		return nil
	})
	if err != nil {
		log.Printf("CreateJITIntent failed recording payment: %s\n", err.Error())
		return nil, nil, err
	}
	return &payment, intent, nil
}

func GetPaymentIntent(id string) (*stripe.PaymentIntent, error) {
	intent, err := lib.GetPayments().RetrieveIntent(id)
	if err != nil {
		log.Printf("GetPaymentIntent failed: %s\n", err.Error())
		return nil, apperrors.Dependency("payment provider lookup failed")
	}
	return intent, nil
}

// ApplyPaymentEvent folds a payment_intent.succeeded or .payment_failed event
// into local state. The fold is idempotent: replays land on rows already in
// the target state and change nothing, and terminal bookings are never
// resurrected by a late event.
func ApplyPaymentEvent(intent *stripe.PaymentIntent, succeeded bool) error {
	var materialized *models.RideRequest
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		target := types.PAYMENT_RECORD_FAILED
		if succeeded {
			target = types.PAYMENT_RECORD_SUCCEEDED
		}
		if err := tx.
			Model(&models.Payment{}).
			Where("payment_intent_id = ?", intent.ID).
			Where("status = ?", types.PAYMENT_RECORD_PENDING).
			Update("status", target).
			Error; err != nil {
			return err
		}

		if succeeded && intent.Metadata["kind"] == "jit_request" {
			request, created, err := materializeJITRequestTx(tx, intent)
			if err != nil {
				return err
			}
			if created {
				materialized = request
			}
			return nil
		}

		var booking models.Booking
		err := tx.
			Model(&models.Booking{}).
			Where("payment_intent_id = ?", intent.ID).
			First(&booking).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("Payment event for intent %s matched no booking\n", intent.ID)
				return nil
			}
			return err
		}
		if booking.Status.Terminal() {
			log.Printf("Ignoring payment event for terminal booking %d\n", booking.ID)
			return nil
		}
		updates := map[string]any{}
		if succeeded {
			updates["payment_status"] = types.PAYMENT_PAID
		} else {
			updates["payment_status"] = types.PAYMENT_FAILED
		}
		if booking.Status == types.BOOKING_PAYMENT_PENDING {
			updates["status"] = types.BOOKING_ACCEPTED
		}
		return tx.
			Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Updates(updates).
			Error
	})
	if err != nil {
		log.Printf("ApplyPaymentEvent failed for intent %s: %s\n", intent.ID, err.Error())
		return err
	}
	if materialized != nil {
		BroadcastRequestAsync(materialized)
	}
	return nil
}

// ApplyChargeRefunded folds a charge.refunded event: the payment row and the
// booking's payment status move to refunded. The booking's lifecycle status is
// left alone; refunds arrive during cancellations that already set it.
func ApplyChargeRefunded(paymentIntentId string) error {
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Payment{}).
			Where("payment_intent_id = ?", paymentIntentId).
			Update("status", types.PAYMENT_RECORD_REFUNDED).
			Error; err != nil {
			return err
		}
		return tx.
			Model(&models.Booking{}).
			Where("payment_intent_id = ?", paymentIntentId).
			Update("payment_status", types.PAYMENT_REFUNDED).
			Error
	})
	if err != nil {
		log.Printf("ApplyChargeRefunded failed for intent %s: %s\n", paymentIntentId, err.Error())
	}
	return err
}

// materializeJITRequestTx creates the ride request a succeeded JIT intent paid
// for. The unique index on payment_intent_id makes creation a no-op on
// webhook replay; created reports whether this call inserted the row.
// Malformed trip metadata is a hard error so the webhook retries surface it.
func materializeJITRequestTx(tx *gorm.DB, intent *stripe.PaymentIntent) (*models.RideRequest, bool, error) {
	raw, ok := intent.Metadata["trip"]
	if !ok {
		return nil, false, fmt.Errorf("intent %s has no trip metadata", intent.ID)
	}
	var trip types.TripMetadata
	if err := json.Unmarshal([]byte(raw), &trip); err != nil {
		return nil, false, fmt.Errorf("intent %s has malformed trip metadata: %w", intent.ID, err)
	}
	if trip.PassengerID == 0 || trip.Seats == 0 {
		return nil, false, fmt.Errorf("intent %s has incomplete trip metadata", intent.ID)
	}
	dateTime, err := time.Parse(config.TIME_PARSE_FORMAT, trip.DateTime)
	if err != nil {
		return nil, false, fmt.Errorf("intent %s has invalid trip date_time: %w", intent.ID, err)
	}

	intentId := intent.ID
	request := models.RideRequest{
		PassengerID:     trip.PassengerID,
		Mode:            types.REQUEST_MODE_JIT,
		Status:          types.REQUEST_PENDING,
		OriginName:      trip.OriginName,
		OriginLat:       trip.OriginLat,
		OriginLng:       trip.OriginLng,
		DestName:        trip.DestName,
		DestLat:         trip.DestLat,
		DestLng:         trip.DestLng,
		DateTime:        &dateTime,
		SeatsNeeded:     trip.Seats,
		PaymentIntentId: &intentId,
		AmountCaptured:  intent.Amount,
		QuotedPrice:     trip.PricePerSeat,
	}
	res := tx.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_intent_id"}},
			DoNothing: true,
		}).
		Create(&request)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("JIT request for intent %s already materialized, skipping\n", intent.ID)
		return nil, false, nil
	}
	return &request, true, nil
}

// InitiateRefund asks the provider to refund a paid booking. The idempotency
// key is (booking, cancel source), so a retried cancellation never doubles the
// refund; an already-refunded charge is treated as success.
func InitiateRefund(tx *gorm.DB, booking *models.Booking, source types.CancelSource) error {
	if booking.PaymentIntentId == nil || *booking.PaymentIntentId == "" {
		return apperrors.Conflict("booking %d is marked paid but has no payment intent", booking.ID)
	}
	refundParams := &stripe.RefundCreateParams{
		PaymentIntent: booking.PaymentIntentId,
	}
	refundParams.IdempotencyKey = stripe.String(fmt.Sprintf("refund_%d_%s", booking.ID, source))
	if _, err := lib.GetPayments().CreateRefund(refundParams); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			log.Printf("Refund for booking %d already processed\n", booking.ID)
		} else {
			log.Printf("Refund for booking %d failed: %s\n", booking.ID, err.Error())
			return apperrors.Dependency("refund initiation failed")
		}
	}
	return tx.
		Model(&models.Payment{}).
		Where("payment_intent_id = ?", *booking.PaymentIntentId).
		Update("status", types.PAYMENT_RECORD_REFUNDED).
		Error
}

// InitiateRequestRefund refunds the captured amount behind a paid JIT request
// that is cancelled or expired before any booking exists. The idempotency key
// is (request, source), so a retried cancellation never doubles the refund;
// non-JIT requests carry no money and pass through untouched.
func InitiateRequestRefund(tx *gorm.DB, request *models.RideRequest, source types.CancelSource) error {
	if request.Mode != types.REQUEST_MODE_JIT || request.PaymentIntentId == nil || *request.PaymentIntentId == "" {
		return nil
	}
	refundParams := &stripe.RefundCreateParams{
		PaymentIntent: request.PaymentIntentId,
	}
	refundParams.IdempotencyKey = stripe.String(fmt.Sprintf("refund_req_%d_%s", request.ID, source))
	if _, err := lib.GetPayments().CreateRefund(refundParams); err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			log.Printf("Refund for request %d already processed\n", request.ID)
		} else {
			log.Printf("Refund for request %d failed: %s\n", request.ID, err.Error())
			return apperrors.Dependency("refund initiation failed")
		}
	}
	return tx.
		Model(&models.Payment{}).
		Where("payment_intent_id = ?", *request.PaymentIntentId).
		Update("status", types.PAYMENT_RECORD_REFUNDED).
		Error
}

// upsertPaymentForBooking links the payment row behind a JIT request to the
// booking created at accept time, creating the row if the intent webhook
// arrived before the record existed.
func upsertPaymentForBooking(tx *gorm.DB, request *models.RideRequest, booking *models.Booking) error {
	res := tx.
		Model(&models.Payment{}).
		Where("payment_intent_id = ?", *request.PaymentIntentId).
		Update("booking_id", booking.ID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	payment := models.Payment{
		BookingID:       &booking.ID,
		PaymentIntentId: *request.PaymentIntentId,
		AmountCents:     request.AmountCaptured,
		Currency:        "usd",
		Status:          types.PAYMENT_RECORD_SUCCEEDED,
	}
	return tx.Create(&payment).Error
}
