package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSkipped is returned by a sink that is not routed the event's vehicle.
var ErrSkipped = errors.New("event not routed to publisher")

// Builder creates a sink from a validated config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Builders maps sink types to their constructors.
type Builders map[string]Builder

// DefaultBuilders knows every sink type the publishers file accepts.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	}
}

// Build constructs the sink for cfg. Entries that list VINs only receive
// events for those vehicles.
func (b Builders) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	build := b[strings.ToLower(cfg.Type)]
	if build == nil {
		return nil, fmt.Errorf("no builder for publisher type %q", cfg.Type)
	}
	pub, err := build(ctx, cfg, loggerOrNop(log))
	if err != nil {
		return nil, err
	}
	if len(cfg.VINs) > 0 {
		return routedPublisher{Publisher: pub, cfg: cfg}, nil
	}
	return pub, nil
}

// BuildAll builds every entry in order. Sinks already built are closed when
// a later one fails.
func (b Builders) BuildAll(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := b.Build(ctx, cfg, log)
		if err != nil {
			_ = NewFanout(pubs).Close()
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

type routedPublisher struct {
	Publisher
	cfg PublisherConfig
}

func (r routedPublisher) Publish(ctx context.Context, evt Event) error {
	if !r.cfg.Accepts(evt.VIN) {
		return ErrSkipped
	}
	return r.Publisher.Publish(ctx, evt)
}

func (r routedPublisher) Close() error {
	if c, ok := r.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
