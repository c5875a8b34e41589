package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/myskoda/pkg/httpclient"
)

// Headers set on every webhook delivery in addition to configured ones.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderVIN            = "X-Myskoda-Vin"
)

// webhookPublisher sends events as JSON to an HTTP endpoint.
type webhookPublisher struct {
	id     string
	method string
	url    string
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q: http block is required", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(httpclient.Options{
		Timeout: time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
	}).
		SetHeaders(cfg.HTTP.Headers).
		SetHeader("Content-Type", "application/json")

	return &webhookPublisher{
		id:     cfg.ID,
		method: cfg.HTTP.Method,
		url:    cfg.HTTP.URL,
		client: client,
		log:    loggerOrNop(log),
	}, nil
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeHTTP }

func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader(HeaderIdempotencyKey, evt.dedupKey()).
		SetHeader(HeaderVIN, evt.VIN).
		SetBody(evt).
		Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("%s %s: %w", w.method, w.url, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%s %s: status %d: %s", w.method, w.url, resp.StatusCode(), bodySnippet(resp.Body()))
	}
	w.log.DebugObj("driving range sent to webhook", "http_delivery", map[string]any{
		"publisher_id": w.id,
		"vin":          evt.VIN,
		"status":       resp.StatusCode(),
	})
	return nil
}

func bodySnippet(body []byte) string {
	const limit = 512
	if len(body) > limit {
		body = body[:limit]
	}
	return strings.TrimSpace(string(body))
}
