package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/GlensonAnsin/lumina/internal/auth"
	"github.com/GlensonAnsin/lumina/internal/obs"
)

func TestLogEvent(t *testing.T) {
	var buf bytes.Buffer
	obs.Logger().SetOutput(&buf)
	t.Cleanup(func() { obs.Logger().SetOutput(os.Stdout) })

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = auth.ContextWithUser(ctx, &auth.User{ID: "u1", Email: "alice@example.com"})

	if err := LogEvent(ctx, "auth.login", map[string]any{"email": "alice@example.com"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["event"] != "auth.login" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["user_id"] != "u1" {
		t.Fatalf("unexpected user id: %v", entry["user_id"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}
