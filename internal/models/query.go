package models

import "time"

// TimeWindow names a relative lookback window for the feed filter.
type TimeWindow string

const (
	WindowHour  TimeWindow = "hour"
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
)

// Duration maps a window to its span. ok is false for the zero window
// (no constraint) and for unknown values.
func (w TimeWindow) Duration() (time.Duration, bool) {
	switch w {
	case WindowHour:
		return time.Hour, true
	case WindowDay:
		return 24 * time.Hour, true
	case WindowWeek:
		return 7 * 24 * time.Hour, true
	case WindowMonth:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// FilterCriteria carries one optional value per filterable dimension.
// Zero values mean "no constraint"; dimensions combine with AND.
type FilterCriteria struct {
	RiskLevel    RiskLevel  `json:"risk_level,omitempty"`
	IdentityType string     `json:"identity_type,omitempty"`
	EventName    string     `json:"event_name,omitempty"`
	Window       TimeWindow `json:"time_window,omitempty"`
	Query        string     `json:"query,omitempty"`
}

// IsZero reports whether no dimension is constrained.
func (c FilterCriteria) IsZero() bool {
	return c == FilterCriteria{}
}

// SortField selects the record attribute a view is ordered by.
type SortField string

const (
	SortByTime      SortField = "time"
	SortByRiskLevel SortField = "risk_level"
	SortByRiskScore SortField = "risk_score"
)

// Valid reports whether the field is one of the sortable attributes.
func (f SortField) Valid() bool {
	switch f {
	case SortByTime, SortByRiskLevel, SortByRiskScore:
		return true
	}
	return false
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec is the single active sort: one field plus a direction.
type SortSpec struct {
	Field     SortField     `json:"field"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort is the feed's initial ordering: newest first.
func DefaultSort() SortSpec {
	return SortSpec{Field: SortByTime, Direction: SortDesc}
}

// Toggle applies an operator sort selection: choosing the active field
// flips the direction, choosing a new field selects it descending.
func (s SortSpec) Toggle(field SortField) SortSpec {
	if s.Field == field {
		if s.Direction == SortAsc {
			s.Direction = SortDesc
		} else {
			s.Direction = SortAsc
		}
		return s
	}
	return SortSpec{Field: field, Direction: SortDesc}
}

// Page is the server-driven pagination window over the full record set.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"limit"`
}
