package publishers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/samvad-hq/myskoda/pkg/models"
)

// Event is one driving-range reading as delivered to sinks. Fingerprint
// identifies the reading's content and is empty when the caller did not set it.
type Event struct {
	VIN          string                    `json:"vin"`
	VehicleName  string                    `json:"vehicle_name"`
	DrivingRange models.DrivingRangeStatus `json:"driving_range"`
	CollectedAt  time.Time                 `json:"collected_at"`
	Fingerprint  string                    `json:"fingerprint,omitempty"`
}

func NewEvent(vin, vehicleName string, status models.DrivingRangeStatus) Event {
	return Event{
		VIN:          vin,
		VehicleName:  vehicleName,
		DrivingRange: status,
		CollectedAt:  time.Now().UTC(),
	}
}

// encode returns the JSON body and the message attributes for queue and
// topic sinks. Empty attribute values are left out.
func (e Event) encode() ([]byte, map[string]string, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal event for %s: %w", e.VIN, err)
	}
	attrs := make(map[string]string, 3)
	for k, v := range map[string]string{
		"vin":         e.VIN,
		"car_type":    e.DrivingRange.CarType.String(),
		"fingerprint": e.Fingerprint,
	} {
		if v != "" {
			attrs[k] = v
		}
	}
	return body, attrs, nil
}

// dedupKey is stable for redeliveries of the same reading.
func (e Event) dedupKey() string {
	if e.Fingerprint != "" {
		return e.VIN + "-" + e.Fingerprint
	}
	return e.VIN + "-" + strconv.FormatInt(e.CollectedAt.UnixNano(), 10)
}
