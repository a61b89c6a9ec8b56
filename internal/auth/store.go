package auth

import "context"

// MemberStore is the persistence boundary for members. Implementations must
// enforce a unique email (case-insensitive) and a unique external provider id,
// and report violations as ErrConflict. Lookups of absent rows return ErrNotFound.
type MemberStore interface {
	Create(ctx context.Context, m *Member) error
	Find(ctx context.Context, id string) (Member, error)
	FindByEmail(ctx context.Context, email string) (Member, error)
	// FindByExternalOrEmail prefers a match on the provider id and falls back to email.
	FindByExternalOrEmail(ctx context.Context, externalID, email string) (Member, error)
	Update(ctx context.Context, m *Member) error
	List(ctx context.Context) ([]Member, error)
}
