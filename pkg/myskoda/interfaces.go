package myskoda

import (
	"context"

	"github.com/samvad-hq/myskoda/pkg/httpclient"
)

// Authorization supplies a bearer token for each request. It may hit the
// network or return a cached token.
type Authorization interface {
	AccessToken(ctx context.Context) (string, error)
}

// HTTPClient aliases the shared httpclient.Client interface.
type HTTPClient = httpclient.Client

// Logger defines the logging surface the client relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}
