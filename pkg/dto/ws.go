package dto

// WSEvent is a WebSocket message for real-time cache notifications.
type WSEvent struct {
	Type string         `json:"type"` // cache_refreshed
	Data RefreshedEvent `json:"data,omitempty"`
}

// RefreshedEvent describes a completed snapshot rebuild. It is also the
// payload published on the bookings.cache.refreshed NATS subject.
type RefreshedEvent struct {
	RecordCount int    `json:"record_count"`
	BuiltAt     string `json:"built_at"` // ISO-8601
	Trigger     string `json:"trigger"`  // startup, manual, scheduled, health, ingest, request
}

// IngestedEvent is published by the scrape pipeline after it has loaded
// new rows into the bookings table.
type IngestedEvent struct {
	SourcePDF   string `json:"source_pdf,omitempty"`
	RecordCount int    `json:"record_count"`
	IngestedAt  string `json:"ingested_at"`
}
