package handlers

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/gjmugshots/internal/cache"
	"github.com/your-org/gjmugshots/internal/models"
	"github.com/your-org/gjmugshots/internal/observability"
	"github.com/your-org/gjmugshots/internal/storage"
	"github.com/your-org/gjmugshots/pkg/dto"
)

// BookingStore is the direct-query surface used by the detail and
// search paths, which bypass the snapshot cache by design.
// *storage.PostgresStore satisfies it.
type BookingStore interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookingsForPerson(ctx context.Context, firstName, lastName string, dob *string) ([]models.Booking, error)
	SearchBookings(ctx context.Context, f storage.SearchFilter) ([]models.Booking, error)
}

type RecordHandler struct {
	db        BookingStore
	store     *cache.Store
	refresher *cache.Refresher
}

func NewRecordHandler(db BookingStore, store *cache.Store, refresher *cache.Refresher) *RecordHandler {
	return &RecordHandler{db: db, store: store, refresher: refresher}
}

// List serves the full snapshot. Valid cache is served with conditional
// request support; an invalid cache triggers a synchronous forced
// rebuild; a failed rebuild falls back to the previous snapshot with a
// STALE-ERROR marker, and only a failure with no snapshot at all
// surfaces an error.
func (h *RecordHandler) List(c *gin.Context) {
	if snap, ok := h.store.Valid(); ok {
		h.serveSnapshot(c, snap, "HIT")
		return
	}

	snap, err := h.refresher.Refresh(c.Request.Context(), true, "request")
	if err != nil {
		if stale := h.store.Current(); stale != nil {
			observability.CacheRequests.WithLabelValues("stale_error").Inc()
			c.Header("Cache-Control", "public, max-age=300, stale-while-revalidate=1800")
			c.Header("X-Cache", "STALE-ERROR")
			c.Header("X-Cache-Age", cacheAge(stale.BuiltAt))
			c.JSON(http.StatusOK, stale.Records)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "database query failed",
			"details": err.Error(),
		})
		return
	}

	h.serveSnapshot(c, snap, "MISS")
}

// serveSnapshot writes the cache metadata headers and honors
// If-None-Match / If-Modified-Since with an empty 304.
func (h *RecordHandler) serveSnapshot(c *gin.Context, snap *cache.Snapshot, state string) {
	etag := `"` + strconv.FormatInt(snap.BuiltAt.UnixMilli(), 10) + `"`

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Last-Modified", snap.BuiltAt.UTC().Format(http.TimeFormat))
	c.Header("ETag", etag)
	c.Header("X-Cache", state)
	c.Header("X-Cache-Age", cacheAge(snap.BuiltAt))

	if ims := c.GetHeader("If-Modified-Since"); ims != "" {
		// Last-Modified has one-second resolution, so compare against
		// the truncated build time.
		if t, err := http.ParseTime(ims); err == nil && !t.Before(snap.BuiltAt.Truncate(time.Second)) {
			observability.CacheRequests.WithLabelValues("not_modified").Inc()
			c.Status(http.StatusNotModified)
			return
		}
	}
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		observability.CacheRequests.WithLabelValues("not_modified").Inc()
		c.Status(http.StatusNotModified)
		return
	}

	observability.CacheRequests.WithLabelValues(strings.ToLower(strings.ReplaceAll(state, "-", "_"))).Inc()
	c.JSON(http.StatusOK, snap.Records)
}

func cacheAge(builtAt time.Time) string {
	return strconv.Itoa(int(time.Since(builtAt).Seconds()))
}

// Refresh forces an immediate rebuild. No stale fallback: the caller
// asked for fresh data and gets the error if there is one.
func (h *RecordHandler) Refresh(c *gin.Context) {
	snap, err := h.refresher.Refresh(c.Request.Context(), true, "manual")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"record_count": len(snap.Records),
		"built_at":     snap.BuiltAt.UTC().Format(time.RFC3339),
	})
}

// Detail returns one person aggregate: the requested booking's person
// with their full arrest and address history. Always bypasses the
// cache so the detail view reflects the live table.
func (h *RecordHandler) Detail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := h.db.GetBooking(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if booking == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "arrestee not found"})
		return
	}

	rows, err := h.db.ListBookingsForPerson(c.Request.Context(),
		booking.FirstName, booking.LastName, booking.DateOfBirth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	arrests := make([]dto.Arrest, 0, len(rows))
	for _, row := range rows {
		arrests = append(arrests, cache.MapArrest(row))
	}

	c.JSON(http.StatusOK, cache.MapPerson(*booking, arrests, cache.AddressHistoryFor(rows)))
}

// searchChargeLimit caps charges per search result; the list view only
// shows a teaser, the detail view has the full set.
const searchChargeLimit = 3

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var usDate = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// Search runs a filtered query directly against the store, bypassing
// the cache. All filters AND together; limit is clamped to [1,200]
// (default 50) and offset to >= 0.
func (h *RecordHandler) Search(c *gin.Context) {
	f := storage.SearchFilter{
		FirstName:   sanitizeName(c.Query("first_name")),
		MiddleName:  sanitizeName(c.Query("middle_name")),
		LastName:    sanitizeName(c.Query("last_name")),
		Address:     sanitizeName(c.Query("address")),
		DateOfBirth: normalizeDOB(c.Query("date_of_birth")),
		BookingDate: sanitizeDate(c.Query("booking_date")),
		BookingFrom: sanitizeDate(c.Query("booking_date_from")),
		BookingTo:   sanitizeDate(c.Query("booking_date_to")),
		AgeMin:      parseAge(c.Query("age_min")),
		AgeMax:      parseAge(c.Query("age_max")),
		Limit:       clamp(atoiDefault(c.Query("limit"), 50), 1, 200),
		Offset:      max(0, atoiDefault(c.Query("offset"), 0)),
	}

	if g := strings.ToUpper(strings.TrimSpace(c.Query("gender"))); g != "" && g != "ALL" && models.ValidGender(g) {
		f.Gender = &g
	}

	rows, err := h.db.SearchBookings(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database search failed", "details": err.Error()})
		return
	}

	results := make([]dto.Arrestee, 0, len(rows))
	for _, row := range rows {
		arrest := cache.MapArrest(row)
		if len(arrest.Charges) > searchChargeLimit {
			arrest.Charges = arrest.Charges[:searchChargeLimit]
		}
		results = append(results, cache.MapPerson(row, []dto.Arrest{arrest}, nil))
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

// sanitizeName trims and strips quoting characters from a free-text
// fragment, capping it at 100 chars. Queries are parameterized; this
// just keeps junk out of the LIKE patterns.
func sanitizeName(v string) *string {
	v = strings.Map(func(r rune) rune {
		switch r {
		case '\'', '"', ';', '\\':
			return -1
		}
		return r
	}, v)
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if len(v) > 100 {
		v = v[:100]
	}
	return &v
}

// sanitizeDate accepts only a valid YYYY-MM-DD day.
func sanitizeDate(v string) *string {
	v = strings.TrimSpace(v)
	if !isoDate.MatchString(v) {
		return nil
	}
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return nil
	}
	return &v
}

// normalizeDOB converts a date of birth into the stored MM/DD/YYYY
// format. MM/DD/YYYY passes through; YYYY-MM-DD is converted.
func normalizeDOB(v string) *string {
	v = strings.TrimSpace(v)
	switch {
	case usDate.MatchString(v):
		return &v
	case isoDate.MatchString(v):
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil
		}
		out := t.Format("01/02/2006")
		return &out
	}
	return nil
}

func parseAge(v string) *int {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	n = clamp(n, 0, 120)
	return &n
}

func atoiDefault(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
