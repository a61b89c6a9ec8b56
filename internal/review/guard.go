package review

import (
	"context"
	"errors"

	"scentshop.org/internal/auth"
)

// CheckCreate reports why m may not review perfumeID, or nil if it may.
// Administrators are excluded outright; everyone else gets one review per perfume.
func CheckCreate(ctx context.Context, store Store, m auth.Member, perfumeID string) error {
	if d := auth.RequireAuthenticated(&m); !d.Allowed {
		return d.Err()
	}
	if m.IsAdmin {
		return ErrAdminReview
	}
	_, err := store.FindReviewByAuthor(ctx, perfumeID, m.ID)
	switch {
	case err == nil:
		return ErrAlreadyReviewed
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

// CanCreate is the boolean form of CheckCreate. Store errors count as denial.
func CanCreate(ctx context.Context, store Store, m auth.Member, perfumeID string) bool {
	return CheckCreate(ctx, store, m, perfumeID) == nil
}

// CanMutate reports whether memberID authored r. There is no admin override.
func CanMutate(memberID string, r Review) bool {
	return memberID != "" && r.AuthorID == memberID
}
