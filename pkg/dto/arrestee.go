package dto

// AddressEntry is one historical address for a person, tagged with the
// most recent booking it appeared on.
type AddressEntry struct {
	Address     string `json:"address"`
	BookingDate string `json:"bookingDate"` // ISO-8601
	BookingTime string `json:"bookingTime"`
}

// Arrest is one booking event in view form.
type Arrest struct {
	ID                  string   `json:"id"`
	BookingDate         string   `json:"bookingDate"` // ISO-8601
	BookingTime         string   `json:"bookingTime"`
	ArrestingOfficer    string   `json:"arrestingOfficer"`
	Charges             []string `json:"charges"`
	MugshotPath         *string  `json:"mugshotPath"`
	OriginalMugshotPath *string  `json:"originalMugshotPath"`
	SourcePDF           *string  `json:"sourcePdf"`
	Address             *string  `json:"address"`
}

// Arrestee is the record served by the list, detail and search
// endpoints. The list path emits one Arrestee per booking row with a
// single-element Arrests slice; only the detail path groups a person's
// bookings into one Arrestee.
type Arrestee struct {
	ID          int64          `json:"id"`
	FirstName   string         `json:"first_name"`
	MiddleName  string         `json:"middle_name"`
	LastName    string         `json:"last_name"`
	Gender      string         `json:"gender"`
	DateOfBirth string         `json:"date_of_birth"`
	Address     string         `json:"address"` // legacy single value
	Addresses   []AddressEntry `json:"addresses"`
	Arrests     []Arrest       `json:"arrests"`
}
