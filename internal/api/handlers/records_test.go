package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/gjmugshots/internal/cache"
	"github.com/your-org/gjmugshots/internal/models"
	"github.com/your-org/gjmugshots/internal/storage"
	"github.com/your-org/gjmugshots/pkg/dto"
)

// fakeDB backs both the snapshot builder (cache.Source) and the
// direct-query paths (BookingStore).
type fakeDB struct {
	mu         sync.Mutex
	rows       []models.Booking
	err        error
	lastFilter *storage.SearchFilter
}

func (f *fakeDB) ListBookings(ctx context.Context) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeDB) CountBookings(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return len(f.rows), nil
}

func (f *fakeDB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, b := range f.rows {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) ListBookingsForPerson(ctx context.Context, firstName, lastName string, dob *string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Booking
	for _, b := range f.rows {
		if b.FirstName != firstName || b.LastName != lastName {
			continue
		}
		switch {
		case dob == nil && b.DateOfBirth == nil:
		case dob != nil && b.DateOfBirth != nil && *dob == *b.DateOfBirth:
		default:
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeDB) SearchBookings(ctx context.Context, flt storage.SearchFilter) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.lastFilter = &flt
	return f.rows, nil
}

func (f *fakeDB) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func seedBooking(id int64, first, middle, last, dob, addr string, date time.Time, bookingTime, charges string) models.Booking {
	b := models.Booking{
		ID:          id,
		FirstName:   first,
		LastName:    last,
		BookingDate: date,
	}
	if middle != "" {
		b.MiddleName = &middle
	}
	if dob != "" {
		b.DateOfBirth = &dob
	}
	if addr != "" {
		b.Address = &addr
	}
	if bookingTime != "" {
		b.BookingTime = &bookingTime
	}
	if charges != "" {
		b.Charges = &charges
	}
	return b
}

func newTestServer(t *testing.T, db *fakeDB) (*httptest.Server, *cache.Store, *cache.Refresher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := cache.NewStore(6*time.Hour, 12*time.Hour)
	refresher := cache.NewRefresher(db, store)
	h := NewRecordHandler(db, store, refresher)

	r := gin.New()
	r.GET("/list", h.List)
	r.GET("/detail/:id", h.Detail)
	r.GET("/search", h.Search)
	r.POST("/refresh", h.Refresh)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, store, refresher
}

func get(t *testing.T, url string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeRecords(t *testing.T, resp *http.Response) []dto.Arrestee {
	t.Helper()
	defer resp.Body.Close()
	var records []dto.Arrestee
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	return records
}

func johnDoeRows() []models.Booking {
	return []models.Booking{
		seedBooking(1, "John", "A", "Doe", "01/01/1990", "100 Main St",
			time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "09:00", "THEFT"),
		seedBooking(2, "John", "A", "Doe", "01/01/1990", "200 Oak Ave",
			time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), "14:00", "DUI; RESISTING ARREST"),
	}
}

func TestListMissThenHit(t *testing.T) {
	db := &fakeDB{rows: johnDoeRows()}
	ts, _, _ := newTestServer(t, db)

	// Cold cache: a forced synchronous rebuild, marked MISS.
	resp := get(t, ts.URL+"/list", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if xc := resp.Header.Get("X-Cache"); xc != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", xc)
	}
	if resp.Header.Get("ETag") == "" || resp.Header.Get("Last-Modified") == "" {
		t.Error("cache validators missing")
	}
	records := decodeRecords(t, resp)
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	// Warm cache: served from the snapshot, marked HIT.
	resp = get(t, ts.URL+"/list", nil)
	if xc := resp.Header.Get("X-Cache"); xc != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", xc)
	}
	resp.Body.Close()
}

func TestListEndToEndScenario(t *testing.T) {
	db := &fakeDB{rows: johnDoeRows()}
	ts, _, _ := newTestServer(t, db)

	resp, err := http.Post(ts.URL+"/refresh", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}
	var refreshBody struct {
		Status      string `json:"status"`
		RecordCount int    `json:"record_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&refreshBody); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if refreshBody.Status != "success" || refreshBody.RecordCount != 2 {
		t.Fatalf("refresh body = %+v", refreshBody)
	}

	records := decodeRecords(t, get(t, ts.URL+"/list", nil))
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 (one per booking)", len(records))
	}

	// Snapshot-wide ordering: the February booking leads.
	if records[0].ID != 2 || records[1].ID != 1 {
		t.Errorf("order = [%d, %d], want [2, 1]", records[0].ID, records[1].ID)
	}

	for _, rec := range records {
		if len(rec.Addresses) != 2 {
			t.Fatalf("record %d addresses = %d, want 2", rec.ID, len(rec.Addresses))
		}
		if rec.Addresses[0].Address != "200 Oak Ave" || rec.Addresses[1].Address != "100 Main St" {
			t.Errorf("record %d address order = %v", rec.ID, rec.Addresses)
		}
		if len(rec.Arrests) != 1 {
			t.Errorf("record %d arrests = %d, want 1", rec.ID, len(rec.Arrests))
		}
	}
}

func TestListConditionalRequests(t *testing.T) {
	db := &fakeDB{rows: johnDoeRows()}
	ts, store, _ := newTestServer(t, db)

	resp := get(t, ts.URL+"/list", nil)
	etag := resp.Header.Get("ETag")
	lastModified := resp.Header.Get("Last-Modified")
	resp.Body.Close()

	// Matching ETag: 304 with empty body.
	resp = get(t, ts.URL+"/list", map[string]string{"If-None-Match": etag})
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("If-None-Match status = %d, want 304", resp.StatusCode)
	}
	resp.Body.Close()

	// If-Modified-Since at (or after) the build time: 304.
	resp = get(t, ts.URL+"/list", map[string]string{"If-Modified-Since": lastModified})
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("If-Modified-Since status = %d, want 304", resp.StatusCode)
	}
	resp.Body.Close()

	// Strictly before the build time: full 200.
	earlier := store.Current().BuiltAt.Add(-time.Hour).UTC().Format(http.TimeFormat)
	resp = get(t, ts.URL+"/list", map[string]string{"If-Modified-Since": earlier})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("stale If-Modified-Since status = %d, want 200", resp.StatusCode)
	}
	if len(decodeRecords(t, resp)) != 2 {
		t.Error("full body expected on 200")
	}
}

func TestListStaleOnError(t *testing.T) {
	db := &fakeDB{rows: johnDoeRows()}
	ts, store, refresher := newTestServer(t, db)

	if _, err := refresher.Refresh(context.Background(), true, "seed"); err != nil {
		t.Fatal(err)
	}
	// Age the snapshot past the freshness window, then break the store.
	store.Commit(&cache.Snapshot{
		Records: store.Current().Records,
		BuiltAt: time.Now().Add(-7 * time.Hour),
	})
	db.setErr(errors.New("connection refused"))

	resp := get(t, ts.URL+"/list", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (stale fallback)", resp.StatusCode)
	}
	if xc := resp.Header.Get("X-Cache"); xc != "STALE-ERROR" {
		t.Errorf("X-Cache = %q, want STALE-ERROR", xc)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=300, stale-while-revalidate=1800" {
		t.Errorf("Cache-Control = %q", cc)
	}
	if len(decodeRecords(t, resp)) != 2 {
		t.Error("stale fallback must serve the full prior record set")
	}
}

func TestListErrorWithoutSnapshot(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	ts, _, _ := newTestServer(t, db)

	resp := get(t, ts.URL+"/list", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when no snapshot exists", resp.StatusCode)
	}
}

func TestRefreshFailure(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	ts, _, _ := newTestServer(t, db)

	resp, err := http.Post(ts.URL+"/refresh", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "error" || body.Error == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestDetailAggregatesPerson(t *testing.T) {
	db := &fakeDB{rows: johnDoeRows()}
	ts, _, _ := newTestServer(t, db)

	resp := get(t, ts.URL+"/detail/1", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var rec dto.Arrestee
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID != 1 || rec.FirstName != "John" || rec.LastName != "Doe" {
		t.Errorf("record = %+v", rec)
	}
	// Detail groups by person: both bookings in one arrests list.
	if len(rec.Arrests) != 2 {
		t.Fatalf("arrests = %d, want 2", len(rec.Arrests))
	}
	if len(rec.Addresses) != 2 || rec.Addresses[0].Address != "200 Oak Ave" {
		t.Errorf("addresses = %v", rec.Addresses)
	}
}

func TestDetailNotFound(t *testing.T) {
	db := &fakeDB{rows: johnDoeRows()}
	ts, _, _ := newTestServer(t, db)

	resp := get(t, ts.URL+"/detail/999", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	resp = get(t, ts.URL+"/detail/abc", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed id", resp.StatusCode)
	}
}

func TestSearchClampsBounds(t *testing.T) {
	db := &fakeDB{}
	ts, _, _ := newTestServer(t, db)

	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"limit=9999", 200, 0},
		{"limit=0", 1, 0},
		{"offset=-5", 50, 0},
		{"", 50, 0},
		{"limit=25&offset=10", 25, 10},
	}

	for _, tc := range cases {
		resp := get(t, ts.URL+"/search?"+tc.query, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%q: status = %d", tc.query, resp.StatusCode)
		}
		db.mu.Lock()
		f := db.lastFilter
		db.mu.Unlock()
		if f == nil {
			t.Fatalf("%q: filter not captured", tc.query)
		}
		if f.Limit != tc.wantLimit || f.Offset != tc.wantOffset {
			t.Errorf("%q: limit/offset = %d/%d, want %d/%d",
				tc.query, f.Limit, f.Offset, tc.wantLimit, tc.wantOffset)
		}
	}
}

func TestSearchFilterParsing(t *testing.T) {
	db := &fakeDB{}
	ts, _, _ := newTestServer(t, db)

	resp := get(t, ts.URL+"/search?first_name=Jo%27hn&gender=male&date_of_birth=1990-01-01&age_min=200&booking_date=2025-02-15", nil)
	resp.Body.Close()

	db.mu.Lock()
	f := db.lastFilter
	db.mu.Unlock()

	if f.FirstName == nil || *f.FirstName != "John" {
		t.Errorf("FirstName = %v, want quotes stripped", f.FirstName)
	}
	if f.Gender == nil || *f.Gender != "MALE" {
		t.Errorf("Gender = %v, want MALE", f.Gender)
	}
	if f.DateOfBirth == nil || *f.DateOfBirth != "01/01/1990" {
		t.Errorf("DateOfBirth = %v, want normalized to MM/DD/YYYY", f.DateOfBirth)
	}
	if f.AgeMin == nil || *f.AgeMin != 120 {
		t.Errorf("AgeMin = %v, want clamped to 120", f.AgeMin)
	}
	if f.BookingDate == nil || *f.BookingDate != "2025-02-15" {
		t.Errorf("BookingDate = %v", f.BookingDate)
	}
}

func TestSearchIgnoresInvalidFilters(t *testing.T) {
	db := &fakeDB{}
	ts, _, _ := newTestServer(t, db)

	resp := get(t, ts.URL+"/search?gender=WIZARD&date_of_birth=not-a-date&booking_date=02/15/2025&age_min=abc", nil)
	resp.Body.Close()

	db.mu.Lock()
	f := db.lastFilter
	db.mu.Unlock()

	if f.Gender != nil || f.DateOfBirth != nil || f.BookingDate != nil || f.AgeMin != nil {
		t.Errorf("invalid filters must be dropped, got %+v", f)
	}
}

func TestSearchTruncatesCharges(t *testing.T) {
	db := &fakeDB{rows: []models.Booking{
		seedBooking(1, "John", "", "Doe", "01/01/1990", "",
			time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), "", "A; B; C; D; E"),
	}}
	ts, _, _ := newTestServer(t, db)

	resp := get(t, ts.URL+"/search", nil)
	defer resp.Body.Close()

	var body struct {
		Results []dto.Arrestee `json:"results"`
		Total   int            `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Results) != 1 {
		t.Fatalf("body = %+v", body)
	}
	charges := body.Results[0].Arrests[0].Charges
	if len(charges) != 3 {
		t.Errorf("charges = %v, want truncated to 3", charges)
	}
	if len(body.Results[0].Addresses) != 0 {
		t.Error("search results carry no address history")
	}
}

func TestSearchStoreError(t *testing.T) {
	db := &fakeDB{err: errors.New("down")}
	ts, _, _ := newTestServer(t, db)

	resp := get(t, ts.URL+"/search", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 (search has no cache fallback)", resp.StatusCode)
	}
}
