package models

import "fmt"

// RecordPage is one fetched page of the server-side record set.
type RecordPage struct {
	Records    []EventRecord `json:"logs"`
	TotalPages int           `json:"total_pages"`

	// Dropped counts records the source discarded as malformed.
	Dropped int `json:"-"`
}

// FetchError wraps a network, auth, or server failure from any consumed
// capability. It is never fatal to the engine; cycles report and continue.
type FetchError struct {
	Op     string // capability that failed, e.g. "fetch records page"
	Status int    // HTTP status when applicable, 0 otherwise
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError builds a FetchError for the given capability.
func NewFetchError(op string, status int, err error) *FetchError {
	return &FetchError{Op: op, Status: status, Err: err}
}
