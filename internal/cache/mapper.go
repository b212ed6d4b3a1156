package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/your-org/gjmugshots/internal/models"
	"github.com/your-org/gjmugshots/pkg/dto"
)

// chargeFallbackLen caps the raw-text fallback when a charges field
// yields no parseable segments.
const chargeFallbackLen = 100

// ParseCharges splits a semicolon-delimited charges field into trimmed,
// non-empty segments, preserving order. A non-blank field that yields no
// segments degrades to a single entry of the first 100 characters of the
// raw text. Never fails.
func ParseCharges(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var charges []string
	for _, seg := range strings.Split(raw, ";") {
		if seg = strings.TrimSpace(seg); seg != "" {
			charges = append(charges, seg)
		}
	}

	if len(charges) == 0 {
		fallback := raw
		if len(fallback) > chargeFallbackLen {
			fallback = fallback[:chargeFallbackLen]
		}
		return []string{fallback}
	}
	return charges
}

// MugshotURL derives the public image URL from a stored image path:
// strip a leading "images/" segment if present, then mount under
// /images/. A missing path stays nil; no placeholder is substituted
// here.
func MugshotURL(imagePath *string) *string {
	if imagePath == nil || *imagePath == "" {
		return nil
	}
	url := "/images/" + strings.TrimPrefix(*imagePath, "images/")
	return &url
}

// MapArrest converts one booking row into its arrest view. Pure; the
// only lossy step is the charge-parse fallback.
func MapArrest(b models.Booking) dto.Arrest {
	charges := ParseCharges(deref(b.Charges))
	if charges == nil {
		// The wire contract is "charges": [], never null.
		charges = []string{}
	}

	return dto.Arrest{
		ID:                  strconv.FormatInt(b.ID, 10),
		BookingDate:         b.BookingDate.UTC().Format(time.RFC3339),
		BookingTime:         deref(b.BookingTime),
		ArrestingOfficer:    deref(b.ArrestingOfficer),
		Charges:             charges,
		MugshotPath:         MugshotURL(b.ImagePath),
		OriginalMugshotPath: MugshotURL(b.ImagePath),
		SourcePDF:           b.SourcePDF,
		Address:             b.Address,
	}
}

// MapArrestee wraps one booking row into a top-level record with its
// person's address history attached. The list path calls this once per
// row: every booking is its own record, grouping happens only in the
// detail view.
func MapArrestee(b models.Booking, addresses []dto.AddressEntry) dto.Arrestee {
	return MapPerson(b, []dto.Arrest{MapArrest(b)}, addresses)
}

// MapPerson builds a record from a representative booking row plus an
// explicit arrests list. The detail path uses it to aggregate all of a
// person's bookings under one record.
func MapPerson(b models.Booking, arrests []dto.Arrest, addresses []dto.AddressEntry) dto.Arrestee {
	if addresses == nil {
		// Same wire contract as charges: an empty history is [].
		addresses = []dto.AddressEntry{}
	}

	return dto.Arrestee{
		ID:          b.ID,
		FirstName:   b.FirstName,
		MiddleName:  deref(b.MiddleName),
		LastName:    b.LastName,
		Gender:      deref(b.Gender),
		DateOfBirth: deref(b.DateOfBirth),
		Address:     deref(b.Address),
		Addresses:   addresses,
		Arrests:     arrests,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
