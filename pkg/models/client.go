package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is one provisioned VPN identity. The private key is never stored
// in the database; it lives only in the generated config file on disk.
type Client struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	PublicKey string    `json:"public_key" db:"public_key"`
	Enabled   bool      `json:"enabled" db:"enabled"`

	// AllowedIPs holds extra routed networks appended to the default
	// route scope, empty for the global default.
	AllowedIPs *string `json:"allowed_ips,omitempty" db:"allowed_ips"`

	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	LastHandshake      *time.Time `json:"last_handshake,omitempty" db:"last_handshake"`
	ConfigDownloadedAt *time.Time `json:"config_downloaded_at,omitempty" db:"config_downloaded_at"`
}

// LegacyClient is a config file found on disk with no matching database
// row. It is computed on demand during reconciliation, never persisted.
type LegacyClient struct {
	Name      string `json:"name"`
	IPAddress string `json:"ipAddress"`
}

// ClientStats is the live connection state for a single peer, parsed
// from the runtime dump of the VPN daemon.
type ClientStats struct {
	Endpoint *string `json:"endpoint"`
	// LatestHandshake is in milliseconds since the Unix epoch, nil if
	// the peer has never completed a handshake.
	LatestHandshake *int64 `json:"latestHandshake"`
	TransferRx      int64  `json:"transferRx"`
	TransferTx      int64  `json:"transferTx"`
	Connected       bool   `json:"connected"`
}
