package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/your-org/gjmugshots/internal/observability"
	"github.com/your-org/gjmugshots/pkg/dto"
)

// Publisher fans a completed rebuild out to the rest of the system.
// *queue.Producer satisfies it; tests and degraded startup use nil.
type Publisher interface {
	PublishCacheRefreshed(ctx context.Context, evt dto.RefreshedEvent) error
}

// Notifier pushes a completed rebuild to connected clients.
// *ws.Hub satisfies it.
type Notifier interface {
	BroadcastEvent(evt *dto.WSEvent)
}

// Refresher owns the rebuild path: at-most-one-build guard, commit on
// success, fan-out on success, untouched previous snapshot on failure.
type Refresher struct {
	source    Source
	store     *Store
	publisher Publisher // optional
	notifier  Notifier  // optional
}

func NewRefresher(source Source, store *Store) *Refresher {
	return &Refresher{source: source, store: store}
}

// WithPublisher attaches the NATS fan-out.
func (r *Refresher) WithPublisher(p Publisher) *Refresher {
	r.publisher = p
	return r
}

// WithNotifier attaches the WebSocket fan-out.
func (r *Refresher) WithNotifier(n Notifier) *Refresher {
	r.notifier = n
	return r
}

// Store exposes the underlying cache store.
func (r *Refresher) Store() *Store {
	return r.store
}

// Refresh rebuilds the snapshot. A non-forced call that observes a
// build already in flight returns the current (possibly nil) snapshot
// immediately instead of queuing up behind it. On
// failure the previous snapshot stays live and the error is returned to
// the caller; trigger names the code path for logs and metrics.
func (r *Refresher) Refresh(ctx context.Context, force bool, trigger string) (*Snapshot, error) {
	if !r.store.BeginRefresh(force) {
		slog.Info("refresh already in progress, skipping", "trigger", trigger)
		return r.store.Current(), nil
	}
	defer r.store.EndRefresh()

	start := time.Now()
	snap, err := BuildSnapshot(ctx, r.source)
	observability.CacheRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.CacheRefreshes.WithLabelValues(trigger, "error").Inc()
		slog.Error("snapshot rebuild failed", "trigger", trigger, "error", err)
		return nil, err
	}

	r.store.Commit(snap)
	observability.CacheRefreshes.WithLabelValues(trigger, "success").Inc()
	observability.CacheRecords.Set(float64(len(snap.Records)))

	evt := dto.RefreshedEvent{
		RecordCount: len(snap.Records),
		BuiltAt:     snap.BuiltAt.UTC().Format(time.RFC3339),
		Trigger:     trigger,
	}
	if r.publisher != nil {
		if err := r.publisher.PublishCacheRefreshed(ctx, evt); err != nil {
			slog.Warn("publish cache-refreshed event", "error", err)
		}
	}
	if r.notifier != nil {
		r.notifier.BroadcastEvent(&dto.WSEvent{Type: "cache_refreshed", Data: evt})
	}

	return snap, nil
}
