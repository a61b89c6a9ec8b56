package pg

import (
	"context"

	"scentshop.org/internal/catalog"
	"scentshop.org/internal/ids"
)

func (s *Store) CreatePerfume(ctx context.Context, p *catalog.Perfume) error {
	if s.db == nil {
		return errNoDB
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	return s.db.QueryRowContext(ctx, `
		insert into perfumes (id, name, brand)
		values ($1, $2, $3)
		returning created_at
	`, p.ID, p.Name, p.Brand).Scan(&p.CreatedAt)
}

func (s *Store) PerfumeExists(ctx context.Context, id string) (bool, error) {
	if s.db == nil {
		return false, errNoDB
	}
	var ok bool
	err := s.db.QueryRowContext(ctx, `select exists(select 1 from perfumes where id = $1)`, id).Scan(&ok)
	return ok, err
}
