package httpclient

import "context"

// Response is the part of an HTTP response the API clients read.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client performs GET requests. Implementations must be safe for concurrent use;
// tests substitute in-memory fakes.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
