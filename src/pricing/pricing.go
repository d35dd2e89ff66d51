package pricing

import (
	"math"
	"strings"
	"time"
)

const earthRadiusKm = 6371.0

// surgeWindow is the time-to-departure under which the surge multiplier kicks
// in. It is also the window that routes a passenger into the JIT flow.
const surgeWindow = 2 * time.Hour

const surgeMultiplier = 1.3

// Haversine great-circle distance between two coordinates, in kilometers.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// NormalizeCity canonicalizes a city name for fixed-route price lookups.
func NormalizeCity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Quote is the input to Resolve. OverridePrice, when non-nil, is an active
// fixed-route price for the trip's city pair and replaces BasePrice.
type Quote struct {
	OriginLat, OriginLng float64
	DestLat, DestLng     float64
	Seats                uint
	BasePrice            float64
	OverridePrice        *float64
	Departure            time.Time
	BookedAt             time.Time
}

// Result carries the resolved per-seat price (rounded to cents) and the trip
// distance in kilometers.
type Result struct {
	PricePerSeat float64
	DistanceKm   float64
	Surged       bool
}

// Resolve computes the per-seat fare. Adjustments apply in a fixed order:
// route override, departure surge, long-trip floor, long-trip cap, and the
// hard upper bound distance*0.3 last — the bound wins over everything before
// it. Callers validate coordinate ranges; Resolve itself cannot fail.
func Resolve(q Quote) Result {
	bookedAt := q.BookedAt
	if bookedAt.IsZero() {
		bookedAt = time.Now()
	}
	dist := Haversine(q.OriginLat, q.OriginLng, q.DestLat, q.DestLng)

	price := q.BasePrice
	if q.OverridePrice != nil {
		price = *q.OverridePrice
	}

	surged := false
	if q.Departure.Sub(bookedAt) <= surgeWindow {
		price *= surgeMultiplier
		surged = true
	}

	if dist >= 55 && q.Seats <= 2 && price < 20 {
		price = 20
	}
	if dist >= 50 && price > 15 {
		price = 15
	}
	if bound := dist * 0.3; price > bound {
		price = bound
	}

	return Result{
		PricePerSeat: RoundCents(price),
		DistanceKm:   dist,
		Surged:       surged,
	}
}

// WithinSurgeWindow reports whether a departure is close enough for the JIT
// payment-gated flow.
func WithinSurgeWindow(departure, now time.Time) bool {
	return departure.Sub(now) <= surgeWindow
}

// RoundCents rounds a price to 2-decimal money precision.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// AmountCents converts a per-seat price and seat count to an integer intent
// amount in cents.
func AmountCents(pricePerSeat float64, seats uint) int64 {
	return int64(math.Round(pricePerSeat * float64(seats) * 100))
}
