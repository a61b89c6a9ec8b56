package review_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scentshop.org/internal/auth"
	"scentshop.org/internal/catalog"
	"scentshop.org/internal/review"
	"scentshop.org/internal/store/memory"
)

type fixture struct {
	svc     *review.Service
	store   *memory.Store
	perfume catalog.Perfume
	alice   auth.Member
	bob     auth.Member
	admin   auth.Member
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	perfumes := catalog.NewService(store)

	p, err := perfumes.Create(ctx, "Aventus", "Creed")
	require.NoError(t, err)

	members := make([]auth.Member, 0, 3)
	for _, m := range []auth.Member{
		{Email: "alice@example.com", DisplayName: "Alice"},
		{Email: "bob@example.com", DisplayName: "Bob"},
		{Email: "admin@example.com", DisplayName: "Admin", IsAdmin: true},
	} {
		m := m
		require.NoError(t, store.Create(ctx, &m))
		members = append(members, m)
	}

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := review.NewService(store, perfumes, review.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	require.NoError(t, err)

	return fixture{svc: svc, store: store, perfume: p, alice: members[0], bob: members[1], admin: members[2]}
}

func TestOneReviewPerMemberPerPerfume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.alice, f.perfume.ID, review.Input{Rating: 5, Content: "  Great  "})
	require.NoError(t, err)
	require.Equal(t, f.alice.ID, r.AuthorID)
	require.Equal(t, "Great", r.Content)

	_, err = f.svc.Create(ctx, f.alice, f.perfume.ID, review.Input{Rating: 4, Content: "Again"})
	require.ErrorIs(t, err, review.ErrAlreadyReviewed)
	require.False(t, review.CanCreate(ctx, f.store, f.alice, f.perfume.ID))

	// Another member is unaffected.
	require.True(t, review.CanCreate(ctx, f.store, f.bob, f.perfume.ID))
	_, err = f.svc.Create(ctx, f.bob, f.perfume.ID, review.Input{Rating: 3, Content: "Fine"})
	require.NoError(t, err)
}

func TestDeleteAllowsReviewingAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.alice, f.perfume.ID, review.Input{Rating: 5, Content: "Great"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, f.alice, f.perfume.ID, r.ID))

	_, err = f.svc.Create(ctx, f.alice, f.perfume.ID, review.Input{Rating: 2, Content: "Changed my mind"})
	require.NoError(t, err)
}

func TestAdministratorsCannotReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.admin, f.perfume.ID, review.Input{Rating: 5, Content: "Staff pick"})
	require.ErrorIs(t, err, review.ErrAdminReview)
	require.ErrorIs(t, err, auth.ErrForbidden)
	require.False(t, review.CanCreate(ctx, f.store, f.admin, f.perfume.ID))
}

func TestOnlyAuthorMayMutate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.alice, f.perfume.ID, review.Input{Rating: 5, Content: "Great"})
	require.NoError(t, err)

	for _, m := range []auth.Member{f.bob, f.admin} {
		_, err := f.svc.Update(ctx, m, f.perfume.ID, r.ID, review.Input{Rating: 1, Content: "Hijacked"})
		require.ErrorIs(t, err, review.ErrOwnershipMismatch)
		require.ErrorIs(t, err, auth.ErrForbidden)

		err = f.svc.Delete(ctx, m, f.perfume.ID, r.ID)
		require.ErrorIs(t, err, review.ErrOwnershipMismatch)
	}

	updated, err := f.svc.Update(ctx, f.alice, f.perfume.ID, r.ID, review.Input{Rating: 4, Content: "Still good"})
	require.NoError(t, err)
	require.Equal(t, 4, updated.Rating)
	require.Equal(t, f.alice.ID, updated.AuthorID)
	require.True(t, updated.UpdatedAt.After(r.UpdatedAt))
	require.Equal(t, r.CreatedAt, updated.CreatedAt)

	require.True(t, review.CanMutate(f.alice.ID, updated))
	require.False(t, review.CanMutate("", updated))
}

func TestReviewValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.Create(ctx, f.alice, f.perfume.ID, review.Input{Rating: rating, Content: "x"})
		require.ErrorIs(t, err, review.ErrInvalidRating)
	}
	_, err := f.svc.Create(ctx, f.alice, f.perfume.ID, review.Input{Rating: 3, Content: "   "})
	require.ErrorIs(t, err, review.ErrInvalidContent)

	_, err = f.svc.Create(ctx, f.alice, "missing", review.Input{Rating: 3, Content: "x"})
	require.ErrorIs(t, err, review.ErrPerfumeNotFound)

	_, err = f.svc.Create(ctx, auth.Member{}, f.perfume.ID, review.Input{Rating: 3, Content: "x"})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = f.svc.Update(ctx, f.alice, f.perfume.ID, "nope", review.Input{Rating: 3, Content: "x"})
	require.ErrorIs(t, err, review.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.alice, f.perfume.ID, review.Input{Rating: 5, Content: "First"})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.bob, f.perfume.ID, review.Input{Rating: 4, Content: "Second"})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.perfume.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)

	_, err = f.svc.List(ctx, "missing")
	require.True(t, errors.Is(err, review.ErrPerfumeNotFound))
}
