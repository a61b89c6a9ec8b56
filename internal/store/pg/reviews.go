package pg

import (
	"context"
	"database/sql"
	"errors"

	"scentshop.org/internal/ids"
	"scentshop.org/internal/review"
)

const reviewColumns = `id, perfume_id, author_id, rating, content, created_at, updated_at`

func scanReview(row rowScanner) (review.Review, error) {
	var r review.Review
	err := row.Scan(&r.ID, &r.PerfumeID, &r.AuthorID, &r.Rating, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) CreateReview(ctx context.Context, r *review.Review) error {
	if s.db == nil {
		return errNoDB
	}
	if r.ID == "" {
		r.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into reviews (id, perfume_id, author_id, rating, content)
		values ($1, $2, $3, $4, $5)
		returning created_at, updated_at
	`, r.ID, r.PerfumeID, r.AuthorID, r.Rating, r.Content)
	if err := row.Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return review.ErrAlreadyReviewed
			case pgErrForeignKeyViolation:
				return review.ErrPerfumeNotFound
			}
		}
		return err
	}
	return nil
}

func (s *Store) FindReview(ctx context.Context, perfumeID, reviewID string) (review.Review, error) {
	return s.findReview(ctx, `select `+reviewColumns+` from reviews where perfume_id = $1 and id = $2`, perfumeID, reviewID)
}

func (s *Store) FindReviewByAuthor(ctx context.Context, perfumeID, authorID string) (review.Review, error) {
	return s.findReview(ctx, `select `+reviewColumns+` from reviews where perfume_id = $1 and author_id = $2`, perfumeID, authorID)
}

func (s *Store) findReview(ctx context.Context, query string, args ...any) (review.Review, error) {
	if s.db == nil {
		return review.Review{}, errNoDB
	}
	r, err := scanReview(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return review.Review{}, review.ErrNotFound
	}
	return r, err
}

// UpdateReview changes rating and content only; author and perfume are fixed at creation.
func (s *Store) UpdateReview(ctx context.Context, r *review.Review) error {
	if s.db == nil {
		return errNoDB
	}
	updated, err := scanReview(s.db.QueryRowContext(ctx, `
		update reviews
		set rating = $3, content = $4, updated_at = now()
		where perfume_id = $1 and id = $2
		returning `+reviewColumns,
		r.PerfumeID, r.ID, r.Rating, r.Content))
	if errors.Is(err, sql.ErrNoRows) {
		return review.ErrNotFound
	}
	if err != nil {
		return err
	}
	*r = updated
	return nil
}

func (s *Store) DeleteReview(ctx context.Context, perfumeID, reviewID string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from reviews where perfume_id = $1 and id = $2`, perfumeID, reviewID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return review.ErrNotFound
	}
	return nil
}

func (s *Store) ListReviews(ctx context.Context, perfumeID string) ([]review.Review, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+reviewColumns+`
		from reviews
		where perfume_id = $1
		order by created_at desc, id desc
	`, perfumeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []review.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
