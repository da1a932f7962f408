package service

import (
	"context"
	"fmt"
	"time"

	"food-market/internal/storedir"

	"github.com/rs/zerolog"
)

// channelService implements ChannelService.
type channelService struct {
	stores storedir.Directory
	tokens TokenIssuer
	logger zerolog.Logger
}

// NewChannelService creates a service issuing tokens only for stores the
// directory knows about.
func NewChannelService(stores storedir.Directory, tokens TokenIssuer, logger zerolog.Logger) ChannelService {
	return &channelService{
		stores: stores,
		tokens: tokens,
		logger: logger.With().Str("service", "channel").Logger(),
	}
}

func (s *channelService) IssueToken(ctx context.Context, storeID string) (string, time.Time, error) {
	if _, err := s.stores.Lookup(ctx, storeID); err != nil {
		return "", time.Time{}, err
	}

	token, expiresAt, err := s.tokens.Issue(storeID)
	if err != nil {
		s.logger.Error().Err(err).Str("store_id", storeID).Msg("failed to sign channel token")
		return "", time.Time{}, fmt.Errorf("failed to issue channel token: %w", err)
	}

	s.logger.Debug().Str("store_id", storeID).Time("expires_at", expiresAt).Msg("channel token issued")
	return token, expiresAt, nil
}
