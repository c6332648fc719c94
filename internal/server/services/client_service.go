package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/awg-tools/portal/internal/server/clientfs"
	"github.com/awg-tools/portal/internal/server/storage"
	"github.com/awg-tools/portal/internal/server/vpn"
	"github.com/awg-tools/portal/pkg/models"
	"github.com/awg-tools/portal/pkg/utils"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrClientExists   = errors.New("client already exists")
)

// ValidationError marks a failure of the name/IP preconditions so handlers
// can map it to a 400 instead of a 500.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// CommandBridge is the slice of the VPN daemon's command surface the client
// lifecycle needs. Satisfied by *vpn.Bridge.
type CommandBridge interface {
	AddClient(ctx context.Context, name, ip string) error
	RemoveClient(ctx context.Context, name string) error
	DumpPeers(ctx context.Context) ([]vpn.PeerStat, error)
}

type ClientService struct {
	repo   *storage.ClientRepository
	bridge CommandBridge
	reader *clientfs.Reader
}

func NewClientService(repo *storage.ClientRepository, bridge CommandBridge, reader *clientfs.Reader) *ClientService {
	return &ClientService{
		repo:   repo,
		bridge: bridge,
		reader: reader,
	}
}

func (s *ClientService) List(ctx context.Context) ([]models.Client, error) {
	return s.repo.List(ctx)
}

func (s *ClientService) Get(ctx context.Context, name string) (*models.Client, error) {
	client, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}

// Create validates its inputs, asks the daemon to provision key material
// and a config file, reads the generated artifacts back and inserts the
// store row. A bridge failure leaves the store untouched. Two concurrent
// creates for the same name may both reach the bridge; the unique name
// constraint rejects the second insert.
func (s *ClientService) Create(ctx context.Context, name, ipAddress string) (*models.Client, error) {
	if err := utils.ValidateClientName(name); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if ipAddress != "" && !utils.IsValidIPv4(ipAddress) {
		return nil, &ValidationError{Reason: "invalid IP address format, only IPv4 addresses (0-255.0-255.0-255.0-255) are allowed"}
	}

	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing client: %w", err)
	}
	if existing != nil {
		return nil, ErrClientExists
	}

	if err := s.bridge.AddClient(ctx, name, ipAddress); err != nil {
		return nil, fmt.Errorf("provisioning failed: %w", err)
	}

	config, err := s.reader.ReadConfig(name)
	if err != nil {
		return nil, s.cleanupAfterPartialProvision(ctx, name, err)
	}
	publicKey, err := s.reader.ReadPublicKey(name)
	if err != nil {
		return nil, s.cleanupAfterPartialProvision(ctx, name, err)
	}

	assignedIP := clientfs.ParseAddress(config)
	if assignedIP == "" {
		assignedIP = ipAddress
	}

	client := &models.Client{
		Name:      name,
		IPAddress: assignedIP,
		PublicKey: publicKey,
		Enabled:   true,
	}
	if err := s.repo.Create(ctx, client); err != nil {
		if errors.Is(err, storage.ErrClientExists) {
			return nil, ErrClientExists
		}
		return nil, fmt.Errorf("failed to store client: %w", err)
	}
	return client, nil
}

// cleanupAfterPartialProvision handles the daemon succeeding but its
// artifacts being unreadable: the files are removed again so the failed
// create leaves nothing behind, then the original error is returned.
func (s *ClientService) cleanupAfterPartialProvision(ctx context.Context, name string, cause error) error {
	log.Printf("Error: provisioned artifacts for %s unreadable, rolling back: %v", name, cause)
	if err := s.bridge.RemoveClient(ctx, name); err != nil {
		log.Printf("Warning: rollback of partially provisioned client %s failed: %v", name, err)
	}
	return fmt.Errorf("reading provisioned artifacts failed: %w", cause)
}

// Delete removes the client's files via the daemon and then its store row.
func (s *ClientService) Delete(ctx context.Context, name string) error {
	if err := utils.ValidateClientName(name); err != nil {
		return &ValidationError{Reason: err.Error()}
	}

	client, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up client: %w", err)
	}
	if client == nil {
		return ErrClientNotFound
	}

	if err := s.bridge.RemoveClient(ctx, name); err != nil {
		return fmt.Errorf("removal failed: %w", err)
	}

	deleted, err := s.repo.Delete(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to delete client row: %w", err)
	}
	if !deleted {
		return ErrClientNotFound
	}
	return nil
}

// Stats returns the live connection state for one client, matched by
// public key against the daemon's runtime dump.
func (s *ClientService) Stats(ctx context.Context, name string) (*models.ClientStats, error) {
	if err := utils.ValidateClientName(name); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	client, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	peers, err := s.bridge.DumpPeers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query runtime state: %w", err)
	}

	stats := &models.ClientStats{}
	now := time.Now()
	for _, peer := range peers {
		if peer.PublicKey != client.PublicKey {
			continue
		}
		if peer.Endpoint != "" {
			endpoint := peer.Endpoint
			stats.Endpoint = &endpoint
		}
		if !peer.LatestHandshake.IsZero() {
			ms := peer.LatestHandshake.UnixMilli()
			stats.LatestHandshake = &ms
		}
		stats.TransferRx = peer.TransferRx
		stats.TransferTx = peer.TransferTx
		stats.Connected = peer.Connected(now)
		break
	}
	return stats, nil
}
