package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// Options tunes the resty transport.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// RestyClient adapts resty.Client to the Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a RestyClient with the given options.
func NewRestyClient(opts Options) *RestyClient {
	return &RestyClient{client: NewRestyHTTPClient(opts)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing other verbs.
func NewRestyHTTPClient(opts Options) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	c := resty.New()
	c.SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	}
	return c
}

// Get performs one GET request. Non-2xx responses are returned, not treated as errors.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }
