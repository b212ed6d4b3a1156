package cache

import (
	"sync"
	"time"
)

// Store holds the current snapshot and the refresh-in-progress flag.
// The snapshot pointer and the flag are the only shared mutable state
// in the service; every access goes through the mutex.
type Store struct {
	mu         sync.Mutex
	snapshot   *Snapshot
	refreshing bool

	freshness time.Duration
	staleness time.Duration
}

func NewStore(freshness, staleness time.Duration) *Store {
	return &Store{freshness: freshness, staleness: staleness}
}

// Current returns the live snapshot, or nil if none was ever built.
func (s *Store) Current() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Valid returns the snapshot if it is present and younger than the
// freshness window.
func (s *Store) Valid() (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil || time.Since(s.snapshot.BuiltAt) >= s.freshness {
		return nil, false
	}
	return s.snapshot, true
}

// Stale reports whether the snapshot is absent or older than the
// staleness ceiling, i.e. must be refreshed regardless of schedule.
func (s *Store) Stale(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot == nil || now.Sub(s.snapshot.BuiltAt) > s.staleness
}

// RefreshedToday reports whether the last successful build happened on
// the same calendar day as now. Used by the daily-window check.
func (s *Store) RefreshedToday(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return false
	}
	y1, m1, d1 := s.snapshot.BuiltAt.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// BeginRefresh marks a refresh as in progress. It returns false if one
// is already running and the caller did not force; a forced caller
// always proceeds (the daily timer and manual refreshes must not be
// starved by a wedged non-forced build).
func (s *Store) BeginRefresh(force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshing && !force {
		return false
	}
	s.refreshing = true
	return true
}

// EndRefresh clears the in-progress flag. Deferred by the refresher so
// it runs on every exit path.
func (s *Store) EndRefresh() {
	s.mu.Lock()
	s.refreshing = false
	s.mu.Unlock()
}

// Commit atomically replaces the snapshot. The previous snapshot stays
// reachable for readers that already hold it.
func (s *Store) Commit(snap *Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}
