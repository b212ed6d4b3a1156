package cache

import (
	"sort"
	"strings"
	"time"

	"github.com/your-org/gjmugshots/internal/models"
	"github.com/your-org/gjmugshots/pkg/dto"
)

// identityKey groups booking rows belonging to the same person. Middle
// name is deliberately excluded: the scrape source records it
// inconsistently, and including it would split one person's history.
func identityKey(b models.Booking) string {
	return b.FirstName + "|" + b.LastName + "|" + deref(b.DateOfBirth)
}

type addressEntry struct {
	address     string
	bookingDate time.Time
	bookingTime string
}

// BuildAddressHistory makes one pass over all rows and returns, per
// person identity, that person's distinct addresses. Each address keeps
// the latest booking date it was seen on (ties keep the first seen).
// Rows with a blank address contribute nothing.
func BuildAddressHistory(rows []models.Booking) map[string][]dto.AddressEntry {
	perPerson := make(map[string]map[string]addressEntry)

	for _, b := range rows {
		addr := strings.TrimSpace(deref(b.Address))
		if addr == "" {
			continue
		}

		key := identityKey(b)
		byAddr := perPerson[key]
		if byAddr == nil {
			byAddr = make(map[string]addressEntry)
			perPerson[key] = byAddr
		}

		existing, ok := byAddr[addr]
		if !ok || b.BookingDate.After(existing.bookingDate) {
			byAddr[addr] = addressEntry{
				address:     addr,
				bookingDate: b.BookingDate,
				bookingTime: deref(b.BookingTime),
			}
		}
	}

	history := make(map[string][]dto.AddressEntry, len(perPerson))
	for key, byAddr := range perPerson {
		entries := make([]addressEntry, 0, len(byAddr))
		for _, e := range byAddr {
			entries = append(entries, e)
		}
		sortAddressEntries(entries)

		out := make([]dto.AddressEntry, len(entries))
		for i, e := range entries {
			out[i] = dto.AddressEntry{
				Address:     e.address,
				BookingDate: e.bookingDate.UTC().Format(time.RFC3339),
				BookingTime: e.bookingTime,
			}
		}
		history[key] = out
	}
	return history
}

// AddressHistoryFor returns the deduped, sorted address history for a
// row set known to belong to a single person (the detail path).
func AddressHistoryFor(rows []models.Booking) []dto.AddressEntry {
	if len(rows) == 0 {
		return nil
	}
	return BuildAddressHistory(rows)[identityKey(rows[0])]
}

// sortAddressEntries orders newest booking date first, breaking date
// ties by descending booking time (lexicographic, the stored format
// sorts chronologically).
func sortAddressEntries(entries []addressEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].bookingDate.Equal(entries[j].bookingDate) {
			return entries[i].bookingDate.After(entries[j].bookingDate)
		}
		return entries[i].bookingTime > entries[j].bookingTime
	})
}
