package lib

import (
	"bytes"
	"carpool/src/config"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// DispatchPayload is the outbound broadcast body for a new ride request.
type DispatchPayload struct {
	RequestID uint    `json:"request_id"`
	PickupLat float64 `json:"pickup_lat"`
	PickupLng float64 `json:"pickup_lng"`
	DropLat   float64 `json:"drop_lat"`
	DropLng   float64 `json:"drop_lng"`
	Seats     uint    `json:"seats"`
	Price     float64 `json:"price,omitempty"`
}

// Dispatcher broadcasts ride-request lifecycle events to the external
// dispatch service. Calls are fire-and-forget from the caller's point of
// view: failures are logged and never fail the originating request.
type Dispatcher interface {
	Broadcast(payload DispatchPayload) error
	CancelBroadcast(requestId uint) error
}

var dispatcher Dispatcher

func GetDispatcher() Dispatcher {
	if dispatcher != nil {
		return dispatcher
	}
	dispatcher = &httpDispatcher{
		client: &http.Client{Timeout: 10 * time.Second},
	}
	return dispatcher
}

// NewDispatcher Replace dispatcher instance with a custom implementation
func NewDispatcher(d Dispatcher) {
	dispatcher = d
}

type httpDispatcher struct {
	client *http.Client
}

func (d *httpDispatcher) post(path string, body any) error {
	base := config.DispatchBaseURL()
	if base == "" {
		return nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-DISPATCH-SECRET", config.DispatchSecret())
	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("dispatcher returned status %d", res.StatusCode)
	}
	return nil
}

func (d *httpDispatcher) Broadcast(payload DispatchPayload) error {
	if err := d.post("/dispatch", payload); err != nil {
		log.Printf("[dispatch] Error broadcasting request %d: %s\n", payload.RequestID, err.Error())
		return err
	}
	return nil
}

func (d *httpDispatcher) CancelBroadcast(requestId uint) error {
	body := map[string]any{"request_id": requestId}
	if err := d.post("/dispatch/cancel", body); err != nil {
		log.Printf("[dispatch] Error cancelling broadcast for request %d: %s\n", requestId, err.Error())
		return err
	}
	return nil
}
