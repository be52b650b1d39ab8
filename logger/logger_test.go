package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestLoggerEnvelope(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("orders", &buf, slog.LevelInfo)
	ctx := WithRequestID(context.Background(), "req-1")

	lg.Error(ctx, "order_confirm", "save failed", errors.New("boom"), "order_id", int64(5))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	checks := map[string]any{
		"level":      "ERROR",
		"service":    "orders",
		"action":     "order_confirm",
		"message":    "save failed",
		"request_id": "req-1",
		"order_id":   float64(5),
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("entry[%q] = %v, want %v", k, entry[k], want)
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Errorf("missing timestamp in %v", entry)
	}
	errObj, _ := entry["error"].(map[string]any)
	if errObj["msg"] != "boom" {
		t.Errorf("error.msg = %v, want boom", errObj["msg"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWithWriter("svc", &buf, ParseLevel("warn"))
	lg.Info(context.Background(), "noise", "dropped")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
	lg.Warn(context.Background(), "table_release_noop", "kept")
	if buf.Len() == 0 {
		t.Errorf("warn not written")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
