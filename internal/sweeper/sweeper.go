// Package sweeper expires idle chat sessions in the background.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/multikanal/multikanal/internal/session"
)

// Expirer receives each idle session found by a sweep cycle.
type Expirer interface {
	TimeoutEntry(ctx context.Context, entry session.Entry)
}

// Sweeper periodically scans the session store for idle entries, notifies the
// user through their channel, and clears the session. One bounded page per
// cycle; a full page does not trigger an immediate re-poll, so outbound
// throughput stays bounded.
type Sweeper struct {
	logger        *slog.Logger
	sessions      session.Store
	expirer       Expirer
	idleThreshold time.Duration
	interval      time.Duration
	pageSize      int
	itemPause     time.Duration
	cron          *cron.Cron
}

// New creates a Sweeper. pageSize caps the sessions expired per cycle.
func New(log *slog.Logger, sessions session.Store, expirer Expirer, idleThreshold, interval time.Duration, pageSize int) *Sweeper {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Sweeper{
		logger:        log.With(slog.String("component", "sweeper")),
		sessions:      sessions,
		expirer:       expirer,
		idleThreshold: idleThreshold,
		interval:      interval,
		pageSize:      pageSize,
		itemPause:     time.Second,
	}
}

// SetItemPause overrides the inter-item pause. Test hook.
func (s *Sweeper) SetItemPause(d time.Duration) {
	s.itemPause = d
}

// Start schedules the sweep loop. The returned stop func blocks until an
// in-flight cycle finishes.
func (s *Sweeper) Start(ctx context.Context) (stop func(), err error) {
	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("session timeout sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("idle_threshold", s.idleThreshold))
	return func() {
		<-s.cron.Stop().Done()
	}, nil
}

// Sweep runs a single cycle. A failing adapter send for one entry never
// aborts the sweep of the remaining entries.
func (s *Sweeper) Sweep(ctx context.Context) {
	entries, err := s.sessions.ListIdle(ctx, s.idleThreshold, s.pageSize)
	if err != nil {
		s.logger.Error("list idle sessions failed", slog.Any("error", err))
		return
	}
	if len(entries) == 0 {
		return
	}
	s.logger.Info("expiring idle sessions", slog.Int("count", len(entries)))
	for i, entry := range entries {
		s.expirer.TimeoutEntry(ctx, entry)
		if i < len(entries)-1 && s.itemPause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.itemPause):
			}
		}
	}
}
