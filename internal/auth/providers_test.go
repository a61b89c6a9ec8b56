package auth

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestProvidersVerify(t *testing.T) {
	p := Providers{}
	p.Register("Google", func(_ context.Context, credential string) (Assertion, error) {
		if credential != "good" {
			return Assertion{}, ErrUpstreamProvider
		}
		return Assertion{Subject: "sub-1", Email: "a@example.com", EmailVerified: true}, nil
	})
	p.Register("", func(context.Context, string) (Assertion, error) { return Assertion{}, nil })
	p.Register("nil", nil)

	if got := p.Names(); !reflect.DeepEqual(got, []string{"google"}) {
		t.Fatalf("Names() = %v", got)
	}

	a, err := p.Verify(context.Background(), "google", "good")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if a.Provider != "google" || a.Subject != "sub-1" {
		t.Fatalf("unexpected assertion %+v", a)
	}

	if _, err := p.Verify(context.Background(), "google", "bad"); !errors.Is(err, ErrUpstreamProvider) {
		t.Fatalf("expected ErrUpstreamProvider, got %v", err)
	}
	if _, err := p.Verify(context.Background(), "google", "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := p.Verify(context.Background(), "facebook", "x"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := MemberFromContext(ctx); ok {
		t.Fatalf("empty context should carry no member")
	}
	ctx = ContextWithMember(ctx, Member{ID: "m1"})
	m, ok := MemberFromContext(ctx)
	if !ok || m.ID != "m1" {
		t.Fatalf("member not attached: %+v", m)
	}
}
