package poller

import (
	"context"

	"github.com/samvad-hq/myskoda/pkg/models"
	"github.com/samvad-hq/myskoda/pkg/publishers"
)

// RangeFetcher retrieves the driving range of one vehicle.
type RangeFetcher interface {
	GetDrivingRange(ctx context.Context, vin string) (*models.DrivingRangeStatus, error)
}

// EventPublisher publishes driving range events downstream and reports how
// many sinks accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// SnapshotStore remembers the last published fingerprint per vehicle.
type SnapshotStore interface {
	SeenSnapshot(vin, digest string) (bool, error)
	MarkSnapshot(vin, digest string) error
}

// Recorder receives poll outcomes for instrumentation.
type Recorder interface {
	ObserveFetch(result string)
	ObservePublish(result string)
	ObserveRange(vin string, status models.DrivingRangeStatus)
}
