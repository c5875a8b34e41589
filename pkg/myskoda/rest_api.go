package myskoda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samvad-hq/myskoda/pkg/httpclient"
)

// DefaultBaseURL is the vendor's mobile API host.
const DefaultBaseURL = "https://mysmob.api.connect.skoda-auto.cz"

// RestAPI wraps the vehicle-status endpoints of the MySkoda API.
// It keeps no per-call state and is safe for concurrent use when its
// collaborators are.
type RestAPI struct {
	client  HTTPClient
	auth    Authorization
	baseURL string
	log     Logger
}

// Option customises a RestAPI.
type Option func(*RestAPI)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(r *RestAPI) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			r.baseURL = trimmed
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log Logger) Option {
	return func(r *RestAPI) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRestAPI builds a client. A nil client falls back to a resty transport.
func NewRestAPI(client HTTPClient, auth Authorization, opts ...Option) (*RestAPI, error) {
	if auth == nil {
		return nil, errors.New("authorization must not be nil")
	}
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.Options{})
	}
	api := &RestAPI{
		client:  client,
		auth:    auth,
		baseURL: DefaultBaseURL,
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(api)
	}
	return api, nil
}

// BaseURL returns the host requests are sent to.
func (r *RestAPI) BaseURL() string { return r.baseURL }

func (r *RestAPI) drivingRangeURL(vin string) string {
	return r.baseURL + "/api/v2/vehicle-status/" + vin + "/driving-range"
}

func (r *RestAPI) headers(ctx context.Context) (map[string]string, error) {
	token, err := r.auth.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get access token: %w", ErrAuth, err)
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

// getBody issues exactly one GET and returns the body of a 2xx response.
func (r *RestAPI) getBody(ctx context.Context, url string) ([]byte, error) {
	headers, err := r.headers(ctx)
	if err != nil {
		return nil, err
	}

	r.log.DebugObj("myskoda request", "myskoda_request", map[string]any{
		"method": http.MethodGet,
		"url":    url,
	})

	resp, err := r.client.Get(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrNetwork, url, err)
	}

	body := resp.Body()
	status := resp.StatusCode()
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, fmt.Errorf("%w: GET %s returned status %d body: %s", ErrAuth, url, status, responseSnippet(body))
	case status < 200 || status > 299:
		return nil, fmt.Errorf("%w: GET %s returned status %d body: %s", ErrNetwork, url, status, responseSnippet(body))
	}
	return body, nil
}
