package pg

import (
	"context"
	"database/sql"
	"errors"

	"scentshop.org/internal/auth"
	"scentshop.org/internal/ids"
)

const memberColumns = `id, email, password_hash, external_provider_id, provider, display_name, avatar,
	year_of_birth, gender, is_admin, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (auth.Member, error) {
	var (
		m        auth.Member
		hash     sql.NullString
		external sql.NullString
		avatar   sql.NullString
	)
	err := row.Scan(&m.ID, &m.Email, &hash, &external, &m.Provider, &m.DisplayName, &avatar,
		&m.YearOfBirth, &m.Gender, &m.IsAdmin, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return auth.Member{}, err
	}
	m.PasswordHash = hash.String
	m.ExternalProviderID = external.String
	m.Avatar = avatar.String
	return m, nil
}

func (s *Store) Create(ctx context.Context, m *auth.Member) error {
	if s.db == nil {
		return errNoDB
	}
	if m.ID == "" {
		m.ID = ids.New()
	}
	m.Email = auth.NormalizeEmail(m.Email)
	row := s.db.QueryRowContext(ctx, `
		insert into members (id, email, password_hash, external_provider_id, provider, display_name, avatar,
			year_of_birth, gender, is_admin)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning created_at, updated_at
	`, m.ID, m.Email, nullString(m.PasswordHash), nullString(m.ExternalProviderID), m.Provider,
		m.DisplayName, nullString(m.Avatar), m.YearOfBirth, m.Gender, m.IsAdmin)
	if err := row.Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) Find(ctx context.Context, id string) (auth.Member, error) {
	return s.findOne(ctx, `select `+memberColumns+` from members where id = $1`, id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (auth.Member, error) {
	return s.findOne(ctx, `select `+memberColumns+` from members where lower(email) = $1`, auth.NormalizeEmail(email))
}

func (s *Store) FindByExternalOrEmail(ctx context.Context, externalID, email string) (auth.Member, error) {
	// A provider id match outranks an email match.
	return s.findOne(ctx, `
		select `+memberColumns+`
		from members
		where external_provider_id = nullif($1, '') or lower(email) = $2
		order by (external_provider_id = nullif($1, '')) is true desc
		limit 1
	`, externalID, auth.NormalizeEmail(email))
}

func (s *Store) findOne(ctx context.Context, query string, args ...any) (auth.Member, error) {
	if s.db == nil {
		return auth.Member{}, errNoDB
	}
	m, err := scanMember(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Member{}, auth.ErrNotFound
	}
	return m, err
}

func (s *Store) Update(ctx context.Context, m *auth.Member) error {
	if s.db == nil {
		return errNoDB
	}
	m.Email = auth.NormalizeEmail(m.Email)
	row := s.db.QueryRowContext(ctx, `
		update members
		set email = $2,
			password_hash = $3,
			external_provider_id = $4,
			provider = $5,
			display_name = $6,
			avatar = $7,
			year_of_birth = $8,
			gender = $9,
			is_admin = $10,
			updated_at = now()
		where id = $1
		returning created_at, updated_at
	`, m.ID, m.Email, nullString(m.PasswordHash), nullString(m.ExternalProviderID), m.Provider,
		m.DisplayName, nullString(m.Avatar), m.YearOfBirth, m.Gender, m.IsAdmin)
	if err := row.Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		if isUniqueViolation(err) {
			return auth.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]auth.Member, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+memberColumns+` from members order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
