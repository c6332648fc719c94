package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/awg-tools/portal/pkg/models"
)

type SettingRepository struct {
	db *DB
}

func NewSettingRepository(db *DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns nil when the key has never been written.
func (r *SettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	query := `SELECT key, value, updated_at FROM settings WHERE key = $1`
	err := r.db.GetContext(ctx, &setting, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *SettingRepository) Set(ctx context.Context, key, value string) (*models.Setting, error) {
	query := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING key, value, updated_at
	`
	var setting models.Setting
	if err := r.db.GetContext(ctx, &setting, query, key, value); err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *SettingRepository) List(ctx context.Context) ([]models.Setting, error) {
	settings := []models.Setting{}
	query := `SELECT key, value, updated_at FROM settings ORDER BY key`
	err := r.db.SelectContext(ctx, &settings, query)
	return settings, err
}
