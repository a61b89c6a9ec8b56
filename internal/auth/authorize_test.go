package auth

import (
	"errors"
	"testing"
)

func TestPolicyPredicates(t *testing.T) {
	member := &Member{ID: "m1"}
	other := &Member{ID: "m2"}
	admin := &Member{ID: "a1", IsAdmin: true}

	cases := []struct {
		name   string
		got    Decision
		allow  bool
		reason Reason
	}{
		{"authenticated/nil", RequireAuthenticated(nil), false, ReasonUnauthenticated},
		{"authenticated/empty id", RequireAuthenticated(&Member{}), false, ReasonUnauthenticated},
		{"authenticated/member", RequireAuthenticated(member), true, ReasonNone},
		{"admin/nil", RequireAdmin(nil), false, ReasonUnauthenticated},
		{"admin/member", RequireAdmin(member), false, ReasonNotAdmin},
		{"admin/admin", RequireAdmin(admin), true, ReasonNone},
		{"self/nil", RequireSelfOrAdmin(nil, "m1"), false, ReasonUnauthenticated},
		{"self/self", RequireSelfOrAdmin(member, "m1"), true, ReasonNone},
		{"self/other", RequireSelfOrAdmin(other, "m1"), false, ReasonNotSelf},
		{"self/admin", RequireSelfOrAdmin(admin, "m1"), true, ReasonNone},
		{"self/empty target", RequireSelfOrAdmin(member, ""), false, ReasonNotSelf},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got.Allowed != tc.allow {
				t.Fatalf("allowed = %v, want %v", tc.got.Allowed, tc.allow)
			}
			if tc.got.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", tc.got.Reason, tc.reason)
			}
		})
	}
}

func TestDecisionErr(t *testing.T) {
	if err := RequireAuthenticated(&Member{ID: "x"}).Err(); err != nil {
		t.Fatalf("allowed decision should carry no error, got %v", err)
	}
	if err := RequireAdmin(nil).Err(); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	err := RequireAdmin(&Member{ID: "x"}).Err()
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("forbidden must not read as unauthenticated")
	}
}

func TestTokenFailureReason(t *testing.T) {
	cases := map[string]error{
		"valid":              nil,
		"expired":            ErrTokenExpired,
		"signature_mismatch": ErrTokenSignature,
		"member_missing":     ErrMemberGone,
		"malformed":          ErrTokenMalformed,
		"error":              errors.New("boom"),
	}
	for want, err := range cases {
		if got := TokenFailureReason(err); got != want {
			t.Fatalf("TokenFailureReason(%v) = %q, want %q", err, got, want)
		}
	}
}
