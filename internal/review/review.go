package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scentshop.org/internal/auth"
)

var (
	ErrNotFound        = errors.New("review: not found")
	ErrAlreadyReviewed = errors.New("review: member already reviewed this perfume")
	ErrInvalidRating   = errors.New("review: rating must be an integer between 1 and 5")
	ErrInvalidContent  = errors.New("review: content is required")
	ErrPerfumeNotFound = errors.New("review: perfume not found")

	// Both denials are forbidden outcomes at the boundary.
	ErrOwnershipMismatch = fmt.Errorf("%w: only the author may change this review", auth.ErrForbidden)
	ErrAdminReview       = fmt.Errorf("%w: administrators cannot author reviews", auth.ErrForbidden)
)

const (
	MinRating        = 1
	MaxRating        = 5
	maxContentLength = 2000
)

// Review is a member's rating and comment on a perfume.
type Review struct {
	ID        string    `json:"id"`
	PerfumeID string    `json:"perfumeId"`
	AuthorID  string    `json:"author"`
	Rating    int       `json:"rating"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input is the client-supplied part of a review.
type Input struct {
	Rating  int
	Content string
}

// Store persists reviews. Implementations must enforce uniqueness of
// (PerfumeID, AuthorID) and report a violation on Create as ErrAlreadyReviewed.
type Store interface {
	CreateReview(ctx context.Context, r *Review) error
	FindReview(ctx context.Context, perfumeID, reviewID string) (Review, error)
	FindReviewByAuthor(ctx context.Context, perfumeID, authorID string) (Review, error)
	UpdateReview(ctx context.Context, r *Review) error
	DeleteReview(ctx context.Context, perfumeID, reviewID string) error
	ListReviews(ctx context.Context, perfumeID string) ([]Review, error)
}
