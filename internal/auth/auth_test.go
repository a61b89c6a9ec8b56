package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTokens(t *testing.T, clock *fakeClock, opts ...TokenOption) *TokenService {
	t.Helper()
	opts = append([]TokenOption{WithTokenClock(clock.Now)}, opts...)
	svc, err := NewTokenService("test-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestTokenIssueAndVerify(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokens(t, clock)

	token, exp, err := svc.Issue("member-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := clock.t.Add(30 * 24 * time.Hour); !exp.Equal(want) {
		t.Fatalf("expiry = %v, want %v", exp, want)
	}
	id, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != "member-42" {
		t.Fatalf("unexpected subject %q", id)
	}
}

func TestTokenReportedExpiryMatchesClaim(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 900_000_000, time.UTC)}
	svc := newTestTokens(t, clock)

	token, exp, err := svc.Issue("member-7")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if !exp.Equal(claims.ExpiresAt.Time) {
		t.Fatalf("reported expiry %v, claim carries %v", exp, claims.ExpiresAt.Time)
	}
	if want := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC); !exp.Equal(want) {
		t.Fatalf("expiry = %v, want %v", exp, want)
	}
}

func TestTokenExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokens(t, clock, WithTokenTTL(time.Hour))
	if svc.TTL() != time.Hour {
		t.Fatalf("TTL() = %v", svc.TTL())
	}

	token, _, err := svc.Issue("member-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	clock.Advance(59 * time.Minute)
	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("expected token valid before expiry, got %v", err)
	}
	clock.Advance(2 * time.Minute)
	_, err = svc.Verify(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if !errors.Is(err, ErrInvalidToken) || !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired token must match ErrInvalidToken and ErrUnauthenticated")
	}
}

func TestTokenSignatureMismatch(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestTokens(t, clock)
	other, err := NewTokenService("another-secret", WithTokenClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	token, _, err := other.Issue("member-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestTokens(t, clock)
	claims := jwt.RegisteredClaims{
		Issuer:    defaultIssuer,
		Subject:   "member-1",
		ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Verify(unsigned); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature for alg=none, got %v", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestTokens(t, clock)
	for _, raw := range []string{"", "abc", "a.b.c", strings.Repeat("x", 40)} {
		_, err := svc.Verify(raw)
		if !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", raw, err)
		}
		if reason := TokenFailureReason(err); reason != "malformed" {
			t.Fatalf("token %q: reason %q", raw, reason)
		}
	}
}

func TestTokenWrongIssuerIsMalformed(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestTokens(t, clock)
	other := newTestTokens(t, clock, WithTokenIssuer("someone-else"))
	token, _, err := other.Issue("member-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("  "); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
