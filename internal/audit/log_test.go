package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"scentshop.org/internal/auth"
	"scentshop.org/internal/obs"
)

func captureAudit(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(original) })
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("audit line is not JSON: %v", err)
	}
	return entry
}

func TestLogEventCarriesRequestAndMember(t *testing.T) {
	buf := captureAudit(t)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = auth.ContextWithMember(ctx, auth.Member{ID: "member-42"})
	if err := LogEvent(ctx, EventReviewCreated, map[string]any{"perfume_id": "p1", "rating": 5}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	entry := lastEntry(t, buf)
	want := map[string]any{
		"type":       "audit",
		"event":      EventReviewCreated,
		"request_id": "req-123",
		"member_id":  "member-42",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Fatalf("%s = %v, want %v", k, entry[k], v)
		}
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["perfume_id"] != "p1" || fields["rating"] != float64(5) {
		t.Fatalf("fields = %v", entry["fields"])
	}
}

func TestLogEventAnonymousOmitsMember(t *testing.T) {
	buf := captureAudit(t)
	if err := LogEvent(context.Background(), EventMemberRegistered, nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	entry := lastEntry(t, buf)
	if _, ok := entry["member_id"]; ok {
		t.Fatalf("anonymous event must not carry member_id: %v", entry)
	}
	if _, ok := entry["request_id"]; ok {
		t.Fatalf("unexpected request_id: %v", entry)
	}
}

func TestLogEventRedactsSecrets(t *testing.T) {
	buf := captureAudit(t)
	err := LogEvent(context.Background(), EventMemberPasswordChanged, map[string]any{
		"newPassword":   "hunter22",
		"access_token":  "eyJhbGciOi",
		"password_hash": "$2a$10$abc",
		"Credential":    "ya29.x",
		"target_id":     "m1",
	})
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	out := buf.String()
	for _, secret := range []string{"hunter22", "eyJhbGciOi", "$2a$10$abc", "ya29.x"} {
		if strings.Contains(out, secret) {
			t.Fatalf("secret %q leaked into audit log: %s", secret, out)
		}
	}
	fields := lastEntry(t, buf)["fields"].(map[string]any)
	if fields["target_id"] != "m1" || fields["newPassword"] != redacted {
		t.Fatalf("fields = %v", fields)
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event")
	}
}
