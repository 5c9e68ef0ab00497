package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const sweepTimeout = 30 * time.Second

// ExpiredOTPStore clears reset codes that expired before the cutoff
type ExpiredOTPStore interface {
	ClearExpiredPasswordResetOTPs(ctx context.Context, before time.Time) (int64, error)
}

// OTPSweeper periodically clears expired password reset codes. A code is
// only swept once it has been expired for longer than grace, so a recently
// expired code is still reported as expired rather than missing.
type OTPSweeper struct {
	store    ExpiredOTPStore
	logger   *slog.Logger
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewOTPSweeper(store ExpiredOTPStore, logger *slog.Logger, interval, grace time.Duration) *OTPSweeper {
	return &OTPSweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once, then on every tick until Stop or ctx is done. It blocks.
func (s *OTPSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopCh:
			s.logger.Info("otp sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("otp sweeper context cancelled")
			return
		}
	}
}

func (s *OTPSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	cleared, err := s.store.ClearExpiredPasswordResetOTPs(sweepCtx, s.now().Add(-s.grace))
	if err != nil {
		s.logger.Error("failed to clear expired reset codes", slog.Any("error", err))
		return
	}

	if cleared > 0 {
		s.logger.Info("expired reset codes cleared", slog.Int64("rows", cleared))
	}
}

// Stop signals the sweeper to exit. Safe to call more than once.
func (s *OTPSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
