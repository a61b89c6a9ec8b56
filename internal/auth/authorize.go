package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Reason tags why a policy predicate denied access.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonNotAdmin        Reason = "not_admin"
	ReasonNotSelf         Reason = "not_self_or_admin"
)

// Decision is the outcome of a policy predicate.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason Reason) Decision { return Decision{Reason: reason} }

// Err converts a denial into ErrUnauthenticated or ErrForbidden.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonUnauthenticated {
		return ErrUnauthenticated
	}
	return fmt.Errorf("%w: %s", ErrForbidden, d.Reason)
}

// RequireAuthenticated allows any resolved member.
func RequireAuthenticated(m *Member) Decision {
	if m == nil || m.ID == "" {
		return deny(ReasonUnauthenticated)
	}
	return allow()
}

// RequireAdmin allows members holding the administrator flag.
func RequireAdmin(m *Member) Decision {
	if d := RequireAuthenticated(m); !d.Allowed {
		return d
	}
	if !m.IsAdmin {
		return deny(ReasonNotAdmin)
	}
	return allow()
}

// RequireSelfOrAdmin allows administrators and the member whose id is targetID.
func RequireSelfOrAdmin(m *Member, targetID string) Decision {
	if d := RequireAuthenticated(m); !d.Allowed {
		return d
	}
	if m.IsAdmin || m.ID == strings.TrimSpace(targetID) {
		return allow()
	}
	return deny(ReasonNotSelf)
}

// Guard resolves bearer tokens into members.
type Guard struct {
	tokens  *TokenService
	members MemberStore
}

// NewGuard constructs a Guard.
func NewGuard(tokens *TokenService, members MemberStore) (*Guard, error) {
	if tokens == nil || members == nil {
		return nil, errors.New("auth: guard requires a token service and a member store")
	}
	return &Guard{tokens: tokens, members: members}, nil
}

// Authenticate verifies token and loads its member. A valid token whose member
// has since been deleted yields ErrMemberGone.
func (g *Guard) Authenticate(ctx context.Context, token string) (Member, error) {
	memberID, err := g.tokens.Verify(token)
	if err != nil {
		return Member{}, err
	}
	m, err := g.members.Find(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Member{}, ErrMemberGone
		}
		return Member{}, err
	}
	return m, nil
}
