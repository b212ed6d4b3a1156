package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/your-org/gjmugshots/internal/models"
	"github.com/your-org/gjmugshots/pkg/dto"
)

// Source is the read-only view of the bookings table the snapshot
// builder needs. *storage.PostgresStore satisfies it.
type Source interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	CountBookings(ctx context.Context) (int, error)
}

// Snapshot is a complete, immutable copy of all booking records at a
// point in time. It is replaced wholesale by the next successful build
// and never mutated; readers keep whatever pointer they obtained.
type Snapshot struct {
	Records []dto.Arrestee
	BuiltAt time.Time
}

// BuildSnapshot pulls every booking row, attaches per-person address
// history, and returns the records sorted newest booking first. It
// either fully succeeds or returns an error with nothing published; a
// count mismatch against the table total is logged, not fatal.
func BuildSnapshot(ctx context.Context, source Source) (*Snapshot, error) {
	start := time.Now()

	rows, err := source.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch bookings: %w", err)
	}

	total, err := source.CountBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}
	if len(rows) != total {
		slog.Warn("snapshot row count differs from table total",
			"fetched", len(rows), "total", total)
	}

	history := BuildAddressHistory(rows)

	records := make([]dto.Arrestee, len(rows))
	for i, b := range rows {
		records[i] = MapArrestee(b, history[identityKey(b)])
	}

	// Most recent booking first. Dates are RFC 3339 strings, which
	// compare chronologically.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Arrests[0].BookingDate > records[j].Arrests[0].BookingDate
	})

	snap := &Snapshot{Records: records, BuiltAt: time.Now()}
	slog.Info("snapshot built",
		"records", len(records), "duration", time.Since(start).String())
	return snap, nil
}
