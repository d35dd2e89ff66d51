package utils

import (
	"carpool/src/lib"
	"carpool/src/models"
	"log"
)

// notifyAsync publishes a lifecycle event without blocking the core write.
// Delivery is best-effort; a failed produce is only logged.
func notifyAsync(topic string, payload map[string]any) {
	go func() {
		if err := lib.KafkaProduceMessage(topic+"Producer", topic, payload); err != nil {
			log.Printf("[notify] Error publishing to %s: %s\n", topic, err.Error())
		}
	}()
}

func NotifyBookingUpdate(booking *models.Booking, event string) {
	notifyAsync("BookingUpdates", map[string]any{
		"event":        event,
		"booking_id":   booking.ID,
		"ride_id":      booking.RideID,
		"passenger_id": booking.PassengerID,
		"status":       booking.Status,
	})
}

func NotifyRideUpdate(ride *models.Ride, event string) {
	notifyAsync("RideUpdates", map[string]any{
		"event":    event,
		"ride_id":  ride.ID,
		"owner_id": ride.OwnerID,
		"status":   ride.Status,
	})
}

// BroadcastRequestAsync announces a new ride request to the dispatcher.
// Fire-and-forget: a dispatcher outage never fails the passenger request.
func BroadcastRequestAsync(rr *models.RideRequest) {
	payload := lib.DispatchPayload{
		RequestID: rr.ID,
		PickupLat: rr.OriginLat,
		PickupLng: rr.OriginLng,
		DropLat:   rr.DestLat,
		DropLng:   rr.DestLng,
		Seats:     rr.SeatsNeeded,
		Price:     rr.QuotedPrice,
	}
	go func() {
		if err := lib.GetDispatcher().Broadcast(payload); err != nil {
			log.Printf("[dispatch] Broadcast for request %d failed: %s\n", rr.ID, err.Error())
		}
	}()
}

func CancelBroadcastAsync(requestId uint) {
	go func() {
		if err := lib.GetDispatcher().CancelBroadcast(requestId); err != nil {
			log.Printf("[dispatch] Cancel broadcast for request %d failed: %s\n", requestId, err.Error())
		}
	}()
}
