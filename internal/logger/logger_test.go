package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHelpersAreSafeBeforeInit(t *testing.T) {
	S, base = nil, nil
	InfoObj("msg", "k", 1)
	ErrorObj("msg", "k", 1)
	if err := Close(); err != nil {
		t.Fatalf("Close before Init: %v", err)
	}
}

func TestObjHelpersWriteStructuredField(t *testing.T) {
	t.Cleanup(func() { S, base = nil, nil })

	var buf bytes.Buffer
	if _, err := InitWithWriter("info", &buf); err != nil {
		t.Fatalf("InitWithWriter: %v", err)
	}
	var l Logger = ZapLogger{}
	l.DebugObj("filtered", "payload", 1)
	l.InfoObj("driving range published", "vehicle_result", map[string]any{"vin": "VIN1", "range_km": 139})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected exactly one JSON entry, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "driving range published" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
	field, ok := entry["vehicle_result"].(map[string]any)
	if !ok || field["vin"] != "VIN1" {
		t.Fatalf("structured field missing: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("ts key missing: %v", entry)
	}
	if caller, _ := entry["caller"].(string); !strings.HasPrefix(caller, "logger/logger_test.go:") {
		t.Fatalf("caller should point at the test, got %q", caller)
	}
}

func TestPackageHelpersReportCaller(t *testing.T) {
	t.Cleanup(func() { S, base = nil, nil })

	var buf bytes.Buffer
	if _, err := InitWithWriter("debug", &buf); err != nil {
		t.Fatalf("InitWithWriter: %v", err)
	}
	WarnObj("token expires soon", "token_meta", map[string]any{"key": "default"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry %q: %v", buf.String(), err)
	}
	if caller, _ := entry["caller"].(string); !strings.HasPrefix(caller, "logger/logger_test.go:") {
		t.Fatalf("caller should point at the test, got %q", caller)
	}
}

func TestRedact(t *testing.T) {
	cases := map[string]string{
		"":                    "",
		"short":               "*****",
		"eyJhbGciOi.abc.wxyz": "***wxyz",
	}
	for in, want := range cases {
		if got := Redact(in); got != want {
			t.Fatalf("Redact(%q) = %q, want %q", in, got, want)
		}
	}
}
