package poller

import (
	"context"
	"crypto/sha1" //nolint:gosec // change detection, not security
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samvad-hq/myskoda/internal/logger"
	"github.com/samvad-hq/myskoda/internal/metrics"
	"github.com/samvad-hq/myskoda/pkg/models"
	"github.com/samvad-hq/myskoda/pkg/publishers"
	"github.com/samvad-hq/myskoda/pkg/vehicles"
)

// Service polls the driving range of each vehicle and publishes readings
// that differ from the last published one.
type Service struct {
	fetcher   RangeFetcher
	publisher EventPublisher
	store     SnapshotStore
	recorder  Recorder
	log       logger.Logger
}

// NewService wires a poller. A nil store publishes every reading; a nil
// recorder or logger disables that concern.
func NewService(fetcher RangeFetcher, publisher EventPublisher, store SnapshotStore, recorder Recorder, log logger.Logger) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		fetcher:   fetcher,
		publisher: publisher,
		store:     store,
		recorder:  recorder,
		log:       log,
	}
}

// Run performs one pass over vehicles. Each vehicle is fetched independently;
// failures are logged and returned joined.
func (s *Service) Run(ctx context.Context, cars []vehicles.Vehicle) error {
	if s == nil || s.fetcher == nil || s.publisher == nil {
		return fmt.Errorf("poller service is not initialized")
	}
	if len(cars) == 0 {
		return fmt.Errorf("no vehicles configured for polling")
	}

	var errs []error
	for _, car := range cars {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.pollVehicle(ctx, car); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("vehicle poll failed", "vehicle_error", map[string]any{
				"vin":   car.VIN,
				"error": err.Error(),
			})
		}
	}
	return errors.Join(errs...)
}

func (s *Service) pollVehicle(ctx context.Context, car vehicles.Vehicle) error {
	status, err := s.fetcher.GetDrivingRange(ctx, car.VIN)
	if err != nil {
		s.recorder.ObserveFetch(metrics.ResultError)
		return fmt.Errorf("fetch driving range for %s: %w", car.VIN, err)
	}
	s.recorder.ObserveFetch(metrics.ResultSuccess)
	s.recorder.ObserveRange(car.VIN, *status)

	digest, err := Fingerprint(*status)
	if err != nil {
		return fmt.Errorf("fingerprint driving range for %s: %w", car.VIN, err)
	}

	if s.store != nil {
		seen, err := s.store.SeenSnapshot(car.VIN, digest)
		if err != nil {
			return fmt.Errorf("check snapshot for %s: %w", car.VIN, err)
		}
		if seen {
			s.recorder.ObservePublish(metrics.ResultUnchanged)
			s.log.DebugObj("driving range unchanged", "vehicle_result", map[string]any{
				"vin": car.VIN,
			})
			return nil
		}
	}

	evt := publishers.NewEvent(car.VIN, car.DisplayName(), *status)
	evt.Fingerprint = digest
	delivered, err := s.publisher.Publish(ctx, evt)
	if err != nil {
		s.recorder.ObservePublish(metrics.ResultError)
		return fmt.Errorf("publish driving range for %s (%d delivered): %w", car.VIN, delivered, err)
	}
	if delivered == 0 {
		// No sink routes this VIN. Leave the snapshot unmarked so a sink
		// added later still receives the current reading.
		s.recorder.ObservePublish(metrics.ResultSkipped)
		s.log.DebugObj("no publisher routes vehicle", "vehicle_result", map[string]any{
			"vin": car.VIN,
		})
		return nil
	}
	s.recorder.ObservePublish(metrics.ResultSuccess)

	if s.store != nil {
		if err := s.store.MarkSnapshot(car.VIN, digest); err != nil {
			return fmt.Errorf("mark snapshot for %s: %w", car.VIN, err)
		}
	}

	s.log.InfoObj("driving range published", "vehicle_result", map[string]any{
		"vin":        car.VIN,
		"car_type":   status.CarType,
		"ranges_km":  rangeSummary(*status),
		"publishers": delivered,
	})
	return nil
}

// Fingerprint hashes the JSON form of status.
func Fingerprint(status models.DrivingRangeStatus) (string, error) {
	raw, err := json.Marshal(status)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(raw) //nolint:gosec // change detection, not security
	return hex.EncodeToString(sum[:]), nil
}

func rangeSummary(status models.DrivingRangeStatus) map[string]int {
	out := make(map[string]int, 2)
	for _, r := range status.Ranges() {
		out[r.EngineType.String()] = r.RemainingRangeInKm
	}
	return out
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string)                            {}
func (nopRecorder) ObservePublish(string)                          {}
func (nopRecorder) ObserveRange(string, models.DrivingRangeStatus) {}
