package models

// Query describes one weather lookup: a city plus an optional date range.
// Immutable once built from the inbound request. Date strings are passed
// through to the upstream provider unvalidated.
type Query struct {
	City      string
	StartDate string
	EndDate   string
}
