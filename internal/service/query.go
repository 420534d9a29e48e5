package service

import (
	"context"

	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// GetSession returns the stored session, domain.ErrNotFound, or a
// *domain.StorageError.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	return s.store.GetSession(ctx, sessionID)
}

// ListChannels proxies the engine's channel listing.
func (s *Service) ListChannels(ctx context.Context) (string, error) {
	return s.dispatcher.ListChannels(ctx)
}

// Hangup proxies a hangup request for an engine channel.
func (s *Service) Hangup(ctx context.Context, channel string) (string, error) {
	return s.dispatcher.Hangup(ctx, channel)
}
