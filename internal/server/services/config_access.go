package services

import (
	"context"
	"fmt"

	"github.com/awg-tools/portal/pkg/utils"
)

// SanitizedConfig returns the client's config text with comment lines
// stripped. The text still contains the private key; callers decide who
// may see it.
func (s *ClientService) SanitizedConfig(ctx context.Context, name string) (string, error) {
	if err := utils.ValidateClientName(name); err != nil {
		return "", &ValidationError{Reason: err.Error()}
	}

	client, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to look up client: %w", err)
	}
	if client == nil {
		return "", ErrClientNotFound
	}

	return s.reader.ReadSanitizedConfig(name)
}

// ClaimConfigDownload atomically marks the one-time bundle download as
// consumed. Only the first caller per client gets true.
func (s *ClientService) ClaimConfigDownload(ctx context.Context, name string) (bool, error) {
	return s.repo.MarkConfigDownloaded(ctx, name)
}
