package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"scentshop.org/internal/auth"
)

// PerfumeChecker answers whether a perfume exists.
type PerfumeChecker interface {
	Exists(ctx context.Context, perfumeID string) (bool, error)
}

// Service applies the ownership rules to review writes.
type Service struct {
	store    Store
	perfumes PerfumeChecker
	now      func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, perfumes PerfumeChecker, opts ...Option) (*Service, error) {
	if store == nil || perfumes == nil {
		return nil, errors.New("review: store and perfume checker are required")
	}
	s := &Service{store: store, perfumes: perfumes, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create records m's review of perfumeID.
func (s *Service) Create(ctx context.Context, m auth.Member, perfumeID string, in Input) (Review, error) {
	content, err := validateInput(in)
	if err != nil {
		return Review{}, err
	}
	ok, err := s.perfumes.Exists(ctx, perfumeID)
	if err != nil {
		return Review{}, err
	}
	if !ok {
		return Review{}, ErrPerfumeNotFound
	}
	if err := CheckCreate(ctx, s.store, m, perfumeID); err != nil {
		return Review{}, err
	}
	now := s.now().UTC()
	r := &Review{
		PerfumeID: perfumeID,
		AuthorID:  m.ID,
		Rating:    in.Rating,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// A concurrent create that slipped past CheckCreate is rejected by the store.
	if err := s.store.CreateReview(ctx, r); err != nil {
		return Review{}, err
	}
	return *r, nil
}

// Update edits a review owned by m.
func (s *Service) Update(ctx context.Context, m auth.Member, perfumeID, reviewID string, in Input) (Review, error) {
	content, err := validateInput(in)
	if err != nil {
		return Review{}, err
	}
	r, err := s.ownedReview(ctx, m, perfumeID, reviewID)
	if err != nil {
		return Review{}, err
	}
	r.Rating = in.Rating
	r.Content = content
	r.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateReview(ctx, &r); err != nil {
		return Review{}, err
	}
	return r, nil
}

// Delete removes a review owned by m, after which m may review the perfume again.
func (s *Service) Delete(ctx context.Context, m auth.Member, perfumeID, reviewID string) error {
	if _, err := s.ownedReview(ctx, m, perfumeID, reviewID); err != nil {
		return err
	}
	return s.store.DeleteReview(ctx, perfumeID, reviewID)
}

// List returns the reviews of a perfume, newest first.
func (s *Service) List(ctx context.Context, perfumeID string) ([]Review, error) {
	ok, err := s.perfumes.Exists(ctx, perfumeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPerfumeNotFound
	}
	return s.store.ListReviews(ctx, perfumeID)
}

func (s *Service) ownedReview(ctx context.Context, m auth.Member, perfumeID, reviewID string) (Review, error) {
	if d := auth.RequireAuthenticated(&m); !d.Allowed {
		return Review{}, d.Err()
	}
	r, err := s.store.FindReview(ctx, perfumeID, reviewID)
	if err != nil {
		return Review{}, err
	}
	if !CanMutate(m.ID, r) {
		return Review{}, ErrOwnershipMismatch
	}
	return r, nil
}

func validateInput(in Input) (string, error) {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return "", ErrInvalidRating
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return "", ErrInvalidContent
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", fmt.Errorf("%w: at most %d characters", ErrInvalidContent, maxContentLength)
	}
	return content, nil
}
