package pg

import (
	"context"
	"database/sql"
	"errors"

	"cyberguard.org/internal/settings"
)

type settingsStore Store

var _ settings.Store = (*settingsStore)(nil)

func scanSetting(row interface{ Scan(...any) error }) (*settings.Setting, error) {
	var (
		setting     settings.Setting
		description sql.NullString
		updatedBy   sql.NullString
	)
	if err := row.Scan(&setting.Key, &setting.Value, &description, &updatedBy, &setting.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		setting.Description = description.String
	}
	if updatedBy.Valid {
		setting.UpdatedBy = updatedBy.String
	}
	return &setting, nil
}

func (s *settingsStore) Get(ctx context.Context, key string) (*settings.Setting, error) {
	row := s.db.QueryRowContext(ctx, `
		select key, value, description, updated_by, updated_at from system_settings where key = $1
	`, key)
	setting, err := scanSetting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settings.ErrNotFound
	}
	return setting, err
}

func (s *settingsStore) List(ctx context.Context) ([]*settings.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `
		select key, value, description, updated_by, updated_at from system_settings order by key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*settings.Setting
	for rows.Next() {
		setting, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, setting)
	}
	return result, rows.Err()
}

func (s *settingsStore) Upsert(ctx context.Context, setting *settings.Setting) error {
	_, err := s.db.ExecContext(ctx, `
		insert into system_settings (key, value, description, updated_by, updated_at)
		values ($1, $2, $3, $4, $5)
		on conflict (key) do update
		set value = excluded.value,
		    description = coalesce(nullif(excluded.description, ''), system_settings.description),
		    updated_by = excluded.updated_by,
		    updated_at = excluded.updated_at
	`, setting.Key, setting.Value, nullIfEmpty(setting.Description),
		nullIfEmpty(setting.UpdatedBy), setting.UpdatedAt)
	return err
}
