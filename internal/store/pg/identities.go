package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cyberguard.org/internal/auth"
)

type identityStore Store

var _ auth.IdentityStore = (*identityStore)(nil)

const identityColumns = `id, username, email, password_hash, role, is_active, created_at, last_login`

func scanIdentity(row interface{ Scan(...any) error }) (*auth.Identity, error) {
	var (
		identity  auth.Identity
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&identity.ID, &identity.Username, &identity.Email, &identity.PasswordHash,
		&identity.Role, &identity.IsActive, &identity.CreatedAt, &lastLogin,
	); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		identity.LastLogin = &t
	}
	return &identity, nil
}

func (s *identityStore) Create(ctx context.Context, identity *auth.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		insert into identities (id, username, email, password_hash, role, is_active, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, identity.ID, identity.Username, identity.Email, identity.PasswordHash,
		identity.Role, identity.IsActive, identity.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *identityStore) Find(ctx context.Context, id string) (*auth.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+identityColumns+` from identities where id = $1
	`, id)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return identity, err
}

func (s *identityStore) FindByUsername(ctx context.Context, username string) (*auth.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+identityColumns+` from identities where username = $1
	`, username)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return identity, err
}

func (s *identityStore) List(ctx context.Context) ([]*auth.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+identityColumns+` from identities order by created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, identity)
	}
	return result, rows.Err()
}

func (s *identityStore) Update(ctx context.Context, id string, upd auth.IdentityUpdate) (*auth.Identity, error) {
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.PasswordHash != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", idx))
		args = append(args, *upd.PasswordHash)
		idx++
	}
	if upd.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", idx))
		args = append(args, *upd.Role)
		idx++
	}
	if upd.IsActive != nil {
		sets = append(sets, fmt.Sprintf("is_active = $%d", idx))
		args = append(args, *upd.IsActive)
		idx++
	}
	if len(sets) > 0 {
		query := fmt.Sprintf(`update identities set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return nil, auth.ErrAlreadyExists
			}
			return nil, err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, auth.ErrNotFound
		}
	}
	return s.Find(ctx, id)
}

func (s *identityStore) UpdateLastLogin(ctx context.Context, id string, when time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update identities set last_login = $2 where id = $1
	`, id, when)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *identityStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from identities where id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
