package services

import (
	"context"
	"fmt"
	"log"

	"github.com/awg-tools/portal/internal/server/clientfs"
	"github.com/awg-tools/portal/internal/server/storage"
	"github.com/awg-tools/portal/pkg/models"
)

// Reconciler aligns the database with the observed contents of the clients
// directory. It only ever upserts; rows are removed exclusively through
// explicit delete requests. A manually deleted row is tolerated drift that
// the next Sync heals.
type Reconciler struct {
	reader *clientfs.Reader
	repo   *storage.ClientRepository
}

func NewReconciler(reader *clientfs.Reader, repo *storage.ClientRepository) *Reconciler {
	return &Reconciler{reader: reader, repo: repo}
}

// Sync upserts a row for every complete conf/key pair on disk and returns
// the number of entries synced. Per-entry failures are logged and skipped.
func (r *Reconciler) Sync(ctx context.Context) (int, error) {
	entries, err := r.reader.Scan()
	if err != nil {
		return 0, fmt.Errorf("filesystem scan failed: %w", err)
	}

	synced := 0
	for _, entry := range entries {
		if _, err := r.repo.UpsertFromFilesystem(ctx, entry.Name, entry.IPAddress, entry.PublicKey); err != nil {
			log.Printf("Error syncing client %s: %v", entry.Name, err)
			continue
		}
		synced++
	}
	log.Printf("Filesystem sync completed (%d clients)", synced)
	return synced, nil
}

// FindLegacy returns the clients that exist on disk but have no database
// row, with a best-effort address parse ("unknown" when the config has no
// Address line).
func (r *Reconciler) FindLegacy(ctx context.Context) ([]models.LegacyClient, error) {
	confNames, err := r.reader.ListConfNames()
	if err != nil {
		return nil, fmt.Errorf("filesystem scan failed: %w", err)
	}

	stored, err := r.repo.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored clients: %w", err)
	}

	legacy := []models.LegacyClient{}
	for _, name := range confNames {
		if _, ok := stored[name]; ok {
			continue
		}

		ip := "unknown"
		if config, err := r.reader.ReadConfig(name); err == nil {
			if parsed := clientfs.ParseAddress(config); parsed != "" {
				ip = parsed
			}
		}
		legacy = append(legacy, models.LegacyClient{Name: name, IPAddress: ip})
	}
	return legacy, nil
}

// MigrateAll runs a full sync and reports the resulting store size.
// Idempotent: a second run with an unchanged directory changes nothing.
func (r *Reconciler) MigrateAll(ctx context.Context) (int, error) {
	if _, err := r.Sync(ctx); err != nil {
		return 0, err
	}
	return r.repo.Count(ctx)
}
