package auth

import "context"

type memberContextKey struct{}

// ContextWithMember attaches the authenticated member to the context.
func ContextWithMember(ctx context.Context, m Member) context.Context {
	return context.WithValue(ctx, memberContextKey{}, &m)
}

// MemberFromContext extracts the authenticated member from the context.
func MemberFromContext(ctx context.Context) (Member, bool) {
	if ctx == nil {
		return Member{}, false
	}
	v, ok := ctx.Value(memberContextKey{}).(*Member)
	if !ok || v == nil {
		return Member{}, false
	}
	return *v, true
}
