package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Almaty -> Konaev is roughly 58 km as the crow flies.
var (
	almatyLat, almatyLng = 43.2389, 76.8897
	konaevLat, konaevLng = 43.8683, 77.0620
)

func pointAtKm(km float64) (float64, float64) {
	// 1 degree of latitude is ~111.19 km on the sphere used by Haversine
	return almatyLat + km/111.19, almatyLng
}

func TestHaversine(t *testing.T) {
	assert.Zero(t, Haversine(almatyLat, almatyLng, almatyLat, almatyLng))

	d := Haversine(almatyLat, almatyLng, konaevLat, konaevLng)
	assert.InDelta(t, 71, d, 3)

	lat, lng := pointAtKm(10)
	assert.InDelta(t, 10, Haversine(almatyLat, almatyLng, lat, lng), 0.05)
}

func TestResolveSurgeThenHardCap(t *testing.T) {
	// base 20, 10 km, departing within the surge window: 20*1.3=26 is then
	// bounded by 10*0.3=3. The bound wins, not the surge and not the floor.
	now := time.Now()
	lat, lng := pointAtKm(10)
	res := Resolve(Quote{
		OriginLat: almatyLat, OriginLng: almatyLng,
		DestLat: lat, DestLng: lng,
		Seats:     2,
		BasePrice: 20,
		Departure: now.Add(1 * time.Hour),
		BookedAt:  now,
	})
	assert.True(t, res.Surged)
	assert.Equal(t, 3.0, res.PricePerSeat)
	assert.Equal(t, int64(600), AmountCents(res.PricePerSeat, 2))
}

func TestResolveNoSurgeOutsideWindow(t *testing.T) {
	now := time.Now()
	lat, lng := pointAtKm(10)
	res := Resolve(Quote{
		OriginLat: almatyLat, OriginLng: almatyLng,
		DestLat: lat, DestLng: lng,
		Seats:     1,
		BasePrice: 2,
		Departure: now.Add(26 * time.Hour),
		BookedAt:  now,
	})
	assert.False(t, res.Surged)
	assert.Equal(t, 2.0, res.PricePerSeat)
}

func TestResolveLongTripFloorThenCap(t *testing.T) {
	now := time.Now()
	lat, lng := pointAtKm(60)

	// 60 km, 2 seats, cheap base: floored to 20, then the >=50 km cap brings
	// it back to 15. The hard bound 60*0.3=18 does not bite.
	res := Resolve(Quote{
		OriginLat: almatyLat, OriginLng: almatyLng,
		DestLat: lat, DestLng: lng,
		Seats:     2,
		BasePrice: 5,
		Departure: now.Add(24 * time.Hour),
		BookedAt:  now,
	})
	assert.Equal(t, 15.0, res.PricePerSeat)

	// 3 seats skip the floor; a 5 base stays below the cap and the bound.
	res = Resolve(Quote{
		OriginLat: almatyLat, OriginLng: almatyLng,
		DestLat: lat, DestLng: lng,
		Seats:     3,
		BasePrice: 5,
		Departure: now.Add(24 * time.Hour),
		BookedAt:  now,
	})
	assert.Equal(t, 5.0, res.PricePerSeat)
}

func TestResolveRouteOverrideReplacesBase(t *testing.T) {
	now := time.Now()
	lat, lng := pointAtKm(60)
	override := 12.0
	res := Resolve(Quote{
		OriginLat: almatyLat, OriginLng: almatyLng,
		DestLat: lat, DestLng: lng,
		Seats:         3,
		BasePrice:     99,
		OverridePrice: &override,
		Departure:     now.Add(24 * time.Hour),
		BookedAt:      now,
	})
	assert.Equal(t, 12.0, res.PricePerSeat)
}

func TestNormalizeCity(t *testing.T) {
	assert.Equal(t, "almaty", NormalizeCity("  Almaty "))
	assert.Equal(t, NormalizeCity("ASTANA"), NormalizeCity("astana"))
}

func TestAmountCentsRounding(t *testing.T) {
	assert.Equal(t, int64(667), AmountCents(3.335, 2))
	assert.Equal(t, int64(100), AmountCents(0.5, 2))
}
