package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/storefront"
)

// UserStore implements [storefront.UserStore].
type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, email_verified, role`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (storefront.Identity, error) {
	var (
		u    storefront.Identity
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.EmailVerified, &role); err != nil {
		return storefront.Identity{}, err
	}
	r, err := storefront.ParseRole(role)
	if err != nil {
		return storefront.Identity{}, err
	}
	u.Role = r
	return u, nil
}

func (s *UserStore) Create(ctx context.Context, identity *storefront.Identity) error {
	query :=
		`INSERT INTO users (email, password_hash, first_name, last_name, email_verified, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`

	identity.Email = storefront.NormalizeEmail(identity.Email)
	err := s.db.QueryRowContext(ctx, query,
		identity.Email, identity.PasswordHash, identity.FirstName, identity.LastName,
		identity.EmailVerified, identity.Role.String()).Scan(&identity.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return storefront.ErrDuplicateEmail
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *UserStore) get(ctx context.Context, query string, arg any) (storefront.Identity, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storefront.Identity{}, storefront.ErrRecordNotFound
		}
		return storefront.Identity{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (storefront.Identity, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (storefront.Identity, error) {
	return s.get(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, storefront.NormalizeEmail(email))
}

// Update writes every mutable column. The email is never changed.
func (s *UserStore) Update(ctx context.Context, identity storefront.Identity) error {
	query :=
		`UPDATE users
		 SET password_hash = $2, first_name = $3, last_name = $4, email_verified = $5, role = $6
		 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		identity.ID, identity.PasswordHash, identity.FirstName, identity.LastName,
		identity.EmailVerified, identity.Role.String())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, storefront.ErrRecordNotFound)
}

// Delete removes the user. Outstanding codes go with it through the
// foreign key.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, storefront.ErrRecordNotFound)
}

func (s *UserStore) List(ctx context.Context) ([]storefront.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []storefront.Identity
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
