package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/your-org/gjmugshots/internal/config"
)

// dailyWindow is how long after the configured daily refresh time the
// health check still considers itself "at refresh time".
const dailyWindow = 5 * time.Minute

// Scheduler drives the two refresh triggers: a periodic health check
// that refreshes when needed, and a daily forced refresh at a fixed
// local time with retry on failure. Both run until the context is
// cancelled; the scheduler lives as long as the process.
type Scheduler struct {
	refresher *Refresher
	cfg       config.CacheConfig
	now       func() time.Time // stubbed in tests
}

func NewScheduler(refresher *Refresher, cfg config.CacheConfig) *Scheduler {
	return &Scheduler{refresher: refresher, cfg: cfg, now: time.Now}
}

// Run blocks, operating both timer loops, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	go s.healthLoop(ctx)
	s.dailyLoop(ctx)
}

// healthLoop wakes on a fixed interval and performs a non-forced
// refresh when the predicate says the cache needs one.
func (s *Scheduler) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.shouldRefreshNow(s.now()) {
				continue
			}
			slog.Info("health check triggering cache refresh")
			if _, err := s.refresher.Refresh(ctx, false, "health"); err != nil {
				slog.Error("health-check refresh failed", "error", err)
			}
		}
	}
}

// shouldRefreshNow is true when the wall clock is inside the daily
// refresh window and no refresh has happened today, or when the
// snapshot is absent or past the staleness ceiling.
func (s *Scheduler) shouldRefreshNow(now time.Time) bool {
	windowStart := time.Date(now.Year(), now.Month(), now.Day(),
		s.cfg.DailyRefreshHour, s.cfg.DailyRefreshMinute, 0, 0, now.Location())
	inWindow := !now.Before(windowStart) && now.Sub(windowStart) <= dailyWindow

	if inWindow && !s.refresher.Store().RefreshedToday(now) {
		return true
	}
	return s.refresher.Store().Stale(now)
}

// dailyLoop sleeps until the next scheduled wall-clock fire time, runs a
// forced refresh, and reschedules: success waits for the next day,
// failure retries after the retry delay until a build succeeds.
func (s *Scheduler) dailyLoop(ctx context.Context) {
	for {
		next := s.nextDailyFire(s.now())
		slog.Info("next scheduled cache refresh", "at", next.Format(time.RFC3339))

		if !sleepUntil(ctx, next.Sub(s.now())) {
			return
		}

		for {
			if _, err := s.refresher.Refresh(ctx, true, "scheduled"); err == nil {
				break
			}
			slog.Warn("scheduled refresh failed, retrying",
				"retry_in", s.cfg.RetryDelay.String())
			if !sleepUntil(ctx, s.cfg.RetryDelay) {
				return
			}
		}
	}
}

// nextDailyFire returns the next occurrence of the configured local
// time of day strictly after now.
func (s *Scheduler) nextDailyFire(now time.Time) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(),
		s.cfg.DailyRefreshHour, s.cfg.DailyRefreshMinute, 0, 0, now.Location())
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// sleepUntil waits d (if positive) and reports whether the context is
// still alive.
func sleepUntil(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
