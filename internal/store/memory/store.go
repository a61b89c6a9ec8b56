// Package memory holds in-process stores used by tests and by the API when no
// database is configured. They enforce the same unique constraints as the
// PostgreSQL schema so race handling behaves identically.
package memory

import (
	"context"
	"sort"
	"sync"

	"scentshop.org/internal/auth"
	"scentshop.org/internal/catalog"
	"scentshop.org/internal/ids"
	"scentshop.org/internal/review"
)

var (
	_ auth.MemberStore = (*Store)(nil)
	_ review.Store     = (*Store)(nil)
	_ catalog.Store    = (*Store)(nil)
)

type reviewKey struct {
	perfumeID string
	authorID  string
}

// Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	members        map[string]auth.Member
	memberByEmail  map[string]string
	memberByExtID  map[string]string
	perfumes       map[string]catalog.Perfume
	reviews        map[string]review.Review
	reviewByAuthor map[reviewKey]string
}

func New() *Store {
	return &Store{
		members:        make(map[string]auth.Member),
		memberByEmail:  make(map[string]string),
		memberByExtID:  make(map[string]string),
		perfumes:       make(map[string]catalog.Perfume),
		reviews:        make(map[string]review.Review),
		reviewByAuthor: make(map[reviewKey]string),
	}
}

// Members ----------------------------------------------------------------

func (s *Store) Create(_ context.Context, m *auth.Member) error {
	if m.ID == "" {
		m.ID = ids.New()
	}
	email := auth.NormalizeEmail(m.Email)
	m.Email = email

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; ok {
		return auth.ErrConflict
	}
	if _, ok := s.memberByEmail[email]; ok {
		return auth.ErrConflict
	}
	if m.ExternalProviderID != "" {
		if _, ok := s.memberByExtID[m.ExternalProviderID]; ok {
			return auth.ErrConflict
		}
		s.memberByExtID[m.ExternalProviderID] = m.ID
	}
	s.members[m.ID] = *m
	s.memberByEmail[email] = m.ID
	return nil
}

func (s *Store) Find(_ context.Context, id string) (auth.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return auth.Member{}, auth.ErrNotFound
	}
	return m, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (auth.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.memberByEmail[auth.NormalizeEmail(email)]
	if !ok {
		return auth.Member{}, auth.ErrNotFound
	}
	return s.members[id], nil
}

func (s *Store) FindByExternalOrEmail(_ context.Context, externalID, email string) (auth.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if externalID != "" {
		if id, ok := s.memberByExtID[externalID]; ok {
			return s.members[id], nil
		}
	}
	if id, ok := s.memberByEmail[auth.NormalizeEmail(email)]; ok {
		return s.members[id], nil
	}
	return auth.Member{}, auth.ErrNotFound
}

func (s *Store) Update(_ context.Context, m *auth.Member) error {
	email := auth.NormalizeEmail(m.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.members[m.ID]
	if !ok {
		return auth.ErrNotFound
	}
	if id, ok := s.memberByEmail[email]; ok && id != m.ID {
		return auth.ErrConflict
	}
	if m.ExternalProviderID != "" {
		if id, ok := s.memberByExtID[m.ExternalProviderID]; ok && id != m.ID {
			return auth.ErrConflict
		}
	}

	delete(s.memberByEmail, existing.Email)
	if existing.ExternalProviderID != "" {
		delete(s.memberByExtID, existing.ExternalProviderID)
	}
	m.Email = email
	m.CreatedAt = existing.CreatedAt
	s.members[m.ID] = *m
	s.memberByEmail[email] = m.ID
	if m.ExternalProviderID != "" {
		s.memberByExtID[m.ExternalProviderID] = m.ID
	}
	return nil
}

func (s *Store) List(_ context.Context) ([]auth.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]auth.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Perfumes ---------------------------------------------------------------

func (s *Store) CreatePerfume(_ context.Context, p *catalog.Perfume) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perfumes[p.ID] = *p
	return nil
}

func (s *Store) PerfumeExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.perfumes[id]
	return ok, nil
}

// Reviews ----------------------------------------------------------------

func (s *Store) CreateReview(_ context.Context, r *review.Review) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	key := reviewKey{perfumeID: r.PerfumeID, authorID: r.AuthorID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviewByAuthor[key]; ok {
		return review.ErrAlreadyReviewed
	}
	s.reviews[r.ID] = *r
	s.reviewByAuthor[key] = r.ID
	return nil
}

func (s *Store) FindReview(_ context.Context, perfumeID, reviewID string) (review.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[reviewID]
	if !ok || r.PerfumeID != perfumeID {
		return review.Review{}, review.ErrNotFound
	}
	return r, nil
}

func (s *Store) FindReviewByAuthor(_ context.Context, perfumeID, authorID string) (review.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.reviewByAuthor[reviewKey{perfumeID: perfumeID, authorID: authorID}]
	if !ok {
		return review.Review{}, review.ErrNotFound
	}
	return s.reviews[id], nil
}

func (s *Store) UpdateReview(_ context.Context, r *review.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.reviews[r.ID]
	if !ok || existing.PerfumeID != r.PerfumeID {
		return review.ErrNotFound
	}
	// Author and perfume are immutable.
	existing.Rating = r.Rating
	existing.Content = r.Content
	existing.UpdatedAt = r.UpdatedAt
	s.reviews[r.ID] = existing
	*r = existing
	return nil
}

func (s *Store) DeleteReview(_ context.Context, perfumeID, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[reviewID]
	if !ok || r.PerfumeID != perfumeID {
		return review.ErrNotFound
	}
	delete(s.reviews, reviewID)
	delete(s.reviewByAuthor, reviewKey{perfumeID: r.PerfumeID, authorID: r.AuthorID})
	return nil
}

func (s *Store) ListReviews(_ context.Context, perfumeID string) ([]review.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []review.Review
	for _, r := range s.reviews {
		if r.PerfumeID == perfumeID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
