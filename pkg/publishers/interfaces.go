package publishers

import "context"

// Publisher delivers driving-range events to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Logger is the structured logging surface used by publishers.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type nopLogger struct{}

func (nopLogger) InfoObj(string, string, interface{})  {}
func (nopLogger) DebugObj(string, string, interface{}) {}
func (nopLogger) WarnObj(string, string, interface{})  {}
func (nopLogger) ErrorObj(string, string, interface{}) {}

func loggerOrNop(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}
