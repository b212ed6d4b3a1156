package models

import "time"

// Booking is one row of the bookings table. One row per booking event;
// a person with multiple arrests appears in multiple rows. Optional
// columns are pointers so that NULL survives the scan untouched.
type Booking struct {
	ID               int64      `json:"id" db:"id"`
	FirstName        string     `json:"first_name" db:"first_name"`
	MiddleName       *string    `json:"middle_name" db:"middle_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	Gender           *string    `json:"gender" db:"gender"`
	DateOfBirth      *string    `json:"date_of_birth" db:"date_of_birth"` // stored as MM/DD/YYYY
	Address          *string    `json:"address" db:"address"`
	BookingDate      time.Time  `json:"booking_date" db:"booking_date"`
	BookingTime      *string    `json:"booking_time" db:"booking_time"`
	ArrestingOfficer *string    `json:"arresting_officer" db:"raw_arrestor"`
	Charges          *string    `json:"charges" db:"charges"` // semicolon-delimited
	SourcePDF        *string    `json:"source_pdf" db:"source_pdf"`
	ImagePath        *string    `json:"image_path" db:"image_path"`
	CreatedAt        *time.Time `json:"created_at" db:"created_at"`
}

// Genders accepted by the search filter.
var Genders = []string{"MALE", "FEMALE", "NON-BINARY", "OTHER", "UNKNOWN"}

// ValidGender reports whether g is one of the stored gender values.
func ValidGender(g string) bool {
	for _, v := range Genders {
		if g == v {
			return true
		}
	}
	return false
}
