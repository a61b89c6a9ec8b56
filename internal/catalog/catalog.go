// Package catalog is the narrow slice of the perfume catalog the review core
// depends on: creating a perfume and checking that one exists.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("catalog: perfume not found")
	ErrInvalidInput = errors.New("catalog: invalid input")
)

// Perfume is the aggregate reviews attach to.
type Perfume struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists perfumes.
type Store interface {
	CreatePerfume(ctx context.Context, p *Perfume) error
	PerfumeExists(ctx context.Context, id string) (bool, error)
}

// Service wraps a Store with input validation.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create validates and stores a new perfume.
func (s *Service) Create(ctx context.Context, name, brand string) (Perfume, error) {
	name = strings.TrimSpace(name)
	brand = strings.TrimSpace(brand)
	if name == "" {
		return Perfume{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if brand == "" {
		return Perfume{}, fmt.Errorf("%w: brand is required", ErrInvalidInput)
	}
	p := &Perfume{Name: name, Brand: brand, CreatedAt: s.now().UTC()}
	if err := s.store.CreatePerfume(ctx, p); err != nil {
		return Perfume{}, err
	}
	return *p, nil
}

// Exists reports whether a perfume with id is present.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.store.PerfumeExists(ctx, id)
}
