package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// DefaultFanoutConcurrency bounds parallel deliveries for one event.
const DefaultFanoutConcurrency = 4

// Fanout delivers each event to every sink, in parallel.
type Fanout struct {
	sinks       []Publisher
	concurrency int
}

// NewFanout drops nil entries from pubs.
func NewFanout(pubs []Publisher) *Fanout {
	sinks := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			sinks = append(sinks, p)
		}
	}
	return &Fanout{sinks: sinks, concurrency: DefaultFanoutConcurrency}
}

// Publish returns how many sinks accepted evt. Sinks returning ErrSkipped
// count as neither delivered nor failed. Failures are joined in sink order;
// one failing sink does not stop delivery to the others.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f.Size() == 0 {
		return 0, nil
	}

	results := make([]error, len(f.sinks))
	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, sink := range f.sinks {
		g.Go(func() error {
			results[i] = sink.Publish(ctx, evt)
			return nil
		})
	}
	_ = g.Wait()

	delivered := 0
	var failures []error
	for i, err := range results {
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrSkipped):
		default:
			sink := f.sinks[i]
			failures = append(failures, fmt.Errorf("%s publisher[%s] vin=%s: %w", sink.Type(), sink.ID(), evt.VIN, err))
		}
	}
	return delivered, errors.Join(failures...)
}

// Size reports the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Close closes every sink implementing io.Closer.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, sink := range f.sinks {
		c, ok := sink.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", sink.Type(), sink.ID(), err))
		}
	}
	return errors.Join(errs...)
}
