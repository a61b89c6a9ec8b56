package obs

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                  "/",
		"/metrics":                          "/metrics",
		"/login":                            "/login",
		"/members/abc":                      "/members/:id",
		"/members/abc/password":             "/members/:id/password",
		"/members/abc/extra":                "/members/abc/extra",
		"/perfumes/p1/comments":             "/perfumes/:id/comments",
		"/perfumes/p1/comments/c9":          "/perfumes/:id/comments/:commentId",
		"/perfumes/p1/comments?limit=10":    "/perfumes/:id/comments",
		"/auth/google":                      "/auth/:provider",
		"/auth/google/callback":             "/auth/:provider/callback",
		"/perfumes":                         "/perfumes",
		"/perfumes/p1/comments/c9/whatever": "/perfumes/p1/comments/c9/whatever",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentRecordsStatus(t *testing.T) {
	Init()
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/members/abc", nil))

	mrec := httptest.NewRecorder()
	Handler().ServeHTTP(mrec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := mrec.Body.String()
	if !strings.Contains(body, `http_requests_total{method="GET",path="/members/:id",status="418"}`) {
		t.Fatalf("expected canonical request counter, got:\n%s", body)
	}
}

func TestLogWritesFixedKeys(t *testing.T) {
	logger := Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	Log("warn", "token_rejected", map[string]any{"msg": "ignored", "reason": "expired", "err": errors.New("boom")})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "token_rejected" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["reason"] != "expired" || entry["err"] != "boom" {
		t.Fatalf("fields missing: %v", entry)
	}
	if _, ok := entry["ts"].(string); !ok {
		t.Fatalf("missing ts")
	}
}
