package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/awg-tools/portal/pkg/models"
)

// ErrClientExists is returned by Create when the unique name constraint
// rejects the insert. The constraint is the only guard against concurrent
// creates for the same name; there is no application-level lock.
var ErrClientExists = errors.New("client already exists")

// safeColumns is the projection served to the API. Private key material is
// never stored in the database, only in the generated config file.
const safeColumns = `id, name, ip_address, public_key, enabled, allowed_ips,
	created_at, updated_at, last_handshake, config_downloaded_at`

type ClientRepository struct {
	db *DB
}

func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) List(ctx context.Context) ([]models.Client, error) {
	clients := []models.Client{}
	query := `SELECT ` + safeColumns + ` FROM vpn_clients ORDER BY name`
	err := r.db.SelectContext(ctx, &clients, query)
	return clients, err
}

func (r *ClientRepository) GetByName(ctx context.Context, name string) (*models.Client, error) {
	var client models.Client
	query := `SELECT ` + safeColumns + ` FROM vpn_clients WHERE name = $1`
	err := r.db.GetContext(ctx, &client, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}

	query := `
		INSERT INTO vpn_clients (id, name, ip_address, public_key, enabled, allowed_ips)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		client.ID, client.Name, client.IPAddress, client.PublicKey,
		client.Enabled, client.AllowedIPs,
	).Scan(&client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrClientExists
		}
		return err
	}
	return nil
}

// ClientUpdate carries the mutable fields of a client row. Nil fields are
// left untouched; updated_at is always stamped.
type ClientUpdate struct {
	IPAddress     *string
	PublicKey     *string
	Enabled       *bool
	AllowedIPs    *string
	LastHandshake *sql.NullTime
}

func (r *ClientRepository) Update(ctx context.Context, name string, upd ClientUpdate) (*models.Client, error) {
	query := `
		UPDATE vpn_clients
		SET ip_address = COALESCE($2, ip_address),
		    public_key = COALESCE($3, public_key),
		    enabled = COALESCE($4, enabled),
		    allowed_ips = COALESCE($5, allowed_ips),
		    last_handshake = COALESCE($6, last_handshake),
		    updated_at = NOW()
		WHERE name = $1
		RETURNING ` + safeColumns
	var client models.Client
	err := r.db.GetContext(ctx, &client, query,
		name, upd.IPAddress, upd.PublicKey, upd.Enabled, upd.AllowedIPs, upd.LastHandshake)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) Delete(ctx context.Context, name string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vpn_clients WHERE name = $1`, name)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// MarkConfigDownloaded atomically claims the one-time download marker.
// Returns true only for the caller that won the claim; a second call for
// the same client returns false without modifying the row.
func (r *ClientRepository) MarkConfigDownloaded(ctx context.Context, name string) (bool, error) {
	query := `
		UPDATE vpn_clients
		SET config_downloaded_at = NOW(), updated_at = NOW()
		WHERE name = $1 AND config_downloaded_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// UpsertFromFilesystem is the sole write path used by reconciliation.
// An existing row keeps its id, enabled flag and download marker; only the
// observed address and public key are refreshed. Idempotent for unchanged
// inputs apart from the updated_at stamp.
func (r *ClientRepository) UpsertFromFilesystem(ctx context.Context, name, ipAddress, publicKey string) (*models.Client, error) {
	query := `
		INSERT INTO vpn_clients (id, name, ip_address, public_key, enabled)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (name) DO UPDATE
		SET ip_address = EXCLUDED.ip_address,
		    public_key = EXCLUDED.public_key,
		    updated_at = NOW()
		RETURNING ` + safeColumns
	var client models.Client
	err := r.db.GetContext(ctx, &client, query, uuid.New(), name, ipAddress, publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert client %s: %w", name, err)
	}
	return &client, nil
}

// Names returns the set of all client names in the store, used for the
// legacy set-difference computation.
func (r *ClientRepository) Names(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	if err := r.db.SelectContext(ctx, &names, `SELECT name FROM vpn_clients`); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

func (r *ClientRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM vpn_clients`)
	return count, err
}
