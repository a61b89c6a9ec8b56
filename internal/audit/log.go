package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"scentshop.org/internal/auth"
	"scentshop.org/internal/obs"
)

// Event names emitted by the identity and review flows.
const (
	EventMemberRegistered      = "member.registered"
	EventMemberLogin           = "member.login"
	EventMemberOAuthLinked     = "member.oauth_linked"
	EventMemberProfileUpdated  = "member.profile_updated"
	EventMemberPasswordChanged = "member.password_changed"
	EventAdminBootstrapped     = "member.admin_bootstrapped"
	EventReviewCreated         = "review.created"
	EventReviewUpdated         = "review.updated"
	EventReviewDeleted         = "review.deleted"
	EventPerfumeCreated        = "perfume.created"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

const redacted = "[redacted]"

var sensitiveKeys = []string{"password", "token", "secret", "hash", "credential"}

func sensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// LogEvent writes an audit log entry enriched with request and member context.
// Field values whose key names a secret are replaced before writing.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if m, ok := auth.MemberFromContext(ctx); ok {
		entry["member_id"] = m.ID
	}
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if sensitive(k) {
			v = redacted
		}
		clean[k] = v
	}
	entry["fields"] = clean

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
