package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/store"
)

// HousekeepingService periodically removes expired challenges, revoked
// token rows and verification tokens.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
	}
}

// Start runs cleanup once and then on every tick until Stop is called.
// A stopped service can be started again.
func (s *HousekeepingService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true
	go s.run(s.stopCh, s.doneCh)
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until an in-progress cleanup has finished. It is a no-op if
// the service is not running.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	close(s.stopCh)
	<-s.doneCh
	s.running = false
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-stop:
			return
		}
	}
}

// Cleanup performs one pass. Each deletion is independent; a failure is
// logged and the rest still run. It returns the number of rows removed.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := s.Now().UTC()

	tasks := []struct {
		name string
		fn   func(context.Context, time.Time) (int64, error)
	}{
		{"challenges", s.Store.Challenges().DeleteExpired},
		{"revoked_tokens", s.Store.RevokedTokens().DeleteExpired},
		{"verification_tokens", s.Store.Accounts().ClearExpiredVerificationTokens},
	}

	var total int64
	for _, task := range tasks {
		sctx, cancel := storeCtx(ctx, DefaultStoreTimeout)
		n, err := task.fn(sctx, now)
		cancel()
		if err != nil {
			s.Logger.Error("housekeeping task failed", "task", task.name, "error", err)
			continue
		}
		if n > 0 {
			s.Logger.Debug("housekeeping removed rows", "task", task.name, "rows", n)
		}
		total += n
	}

	s.Logger.Info("housekeeping cleanup completed", "rows", total)
	return total
}
