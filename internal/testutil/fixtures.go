package testutil

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/awg-tools/portal/pkg/models"
)

// CreateTestClient inserts a client row directly, bypassing the service
// layer, for tests that need pre-existing state.
func (tdb *TestDB) CreateTestClient(ctx context.Context, name, ip string) *models.Client {
	tdb.t.Helper()

	client := &models.Client{
		ID:        uuid.New(),
		Name:      name,
		IPAddress: ip,
		PublicKey: GenerateTestPublicKey(),
		Enabled:   true,
	}
	tdb.Exec(ctx, `
		INSERT INTO vpn_clients (id, name, ip_address, public_key, enabled)
		VALUES ($1, $2, $3, $4, $5)
	`, client.ID, client.Name, client.IPAddress, client.PublicKey, client.Enabled)
	return client
}

// DeleteTestClient removes a client row by name.
func (tdb *TestDB) DeleteTestClient(ctx context.Context, name string) {
	tdb.t.Helper()
	_, _ = tdb.DB.ExecContext(ctx, "DELETE FROM vpn_clients WHERE name = $1", name)
}

// GenerateTestPublicKey produces a syntactically plausible base64 key.
// It is never handed to a real daemon.
func GenerateTestPublicKey() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	b := make([]byte, 43)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b) + "="
}

// UniqueName returns a collision-free client name for parallel test runs.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String()[:8])
}
