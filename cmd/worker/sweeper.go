package main

import (
	"context"
	"time"

	"omscore/pkg/logger"
)

// ExpiredTokenDeleter removes access tokens past their expiry.
type ExpiredTokenDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenSweeper periodically purges expired access tokens. Expired tokens are
// already rejected by the authorizer; sweeping only keeps the table small.
type TokenSweeper struct {
	tokens   ExpiredTokenDeleter
	interval time.Duration
	log      *logger.Logger
}

// NewTokenSweeper creates a sweeper that runs every interval.
func NewTokenSweeper(tokens ExpiredTokenDeleter, interval time.Duration, log *logger.Logger) *TokenSweeper {
	return &TokenSweeper{
		tokens:   tokens,
		interval: interval,
		log:      log.WithComponent("token_sweeper"),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *TokenSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep deletes expired tokens once and returns how many were removed.
// Failures are logged; the next tick retries.
func (s *TokenSweeper) Sweep(ctx context.Context) int64 {
	n, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Errorw("failed to delete expired tokens", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.log.Infow("cleaned up expired tokens", "count", n)
	}
	return n
}
