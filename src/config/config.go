package config

import (
	"fmt"
	"os"
	"strconv"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

// PlatformFeeFraction is the marketplace cut applied to payment intents.
// Values outside [0,1] fall back to 0.
func PlatformFeeFraction() float64 {
	raw := os.Getenv("PLATFORM_FEE_FRACTION")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || f > 1 {
		return 0
	}
	return f
}

// JITBasePrice is the default per-seat base price used when a JIT intent
// request does not supply one.
func JITBasePrice() float64 {
	raw := os.Getenv("JIT_BASE_PRICE")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 10
	}
	return f
}

func DispatchBaseURL() string {
	return os.Getenv("DISPATCH_BASE_URL")
}

// DispatchSecret is sent on outbound dispatcher broadcasts.
func DispatchSecret() string {
	return os.Getenv("DISPATCH_SECRET")
}

// DispatchAcceptSecret authenticates the dispatcher's inbound accept callback.
func DispatchAcceptSecret() string {
	return os.Getenv("DISPATCH_ACCEPT_SECRET")
}

func RateLimitPerMinute() int {
	raw := os.Getenv("RATE_LIMIT_PER_MINUTE")
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 120
	}
	return n
}
