package models

import (
	"errors"
	"strings"
	"time"
)

// RiskLevel is the coarse severity assigned to an event by the scoring backend.
// It is authoritative and independent of the numeric risk score.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// Ordinal returns the fixed sort weight of a risk level.
// HIGH > MEDIUM > LOW > anything unrecognized.
func (l RiskLevel) Ordinal() int {
	switch l {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// Identity types seen in CloudTrail userIdentity.type.
const (
	IdentityRoot          = "Root"
	IdentityIAMUser       = "IAMUser"
	IdentityAssumedRole   = "AssumedRole"
	IdentityFederatedUser = "FederatedUser"
	IdentityAWSService    = "AWSService"
)

// EventRecord is one scored security event as delivered by the backend.
// Records are immutable; the engine replaces the resident set wholesale
// on every fetch and never edits a record in place.
type EventRecord struct {
	ID             string    `json:"event_id"`
	EventName      string    `json:"event_name"`
	IdentityType   string    `json:"user_identity_type"`
	SourceIP       string    `json:"source_ip"`
	RiskScore      float64   `json:"risk_score"`
	RiskLevel      RiskLevel `json:"risk_level"`
	Anomaly        bool      `json:"anomaly_detected"`
	RuleBasedFlags int       `json:"rule_based_flags"`

	// Timestamp is kept as the backend's wire string. The dashboard backend
	// emits ISO 8601 but older rows carry zone-less variants, so parsing is
	// lazy and failure-tolerant; see Time.
	Timestamp string `json:"timestamp"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999", // legacy rows written without a zone
	"2006-01-02 15:04:05",
}

// Time parses the record timestamp. ok is false when the timestamp is
// missing or unparseable; such records sort lowest and never fall inside
// a finite time window.
func (r *EventRecord) Time() (time.Time, bool) {
	raw := strings.TrimSpace(r.Timestamp)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ErrMalformedRecord marks a fetched record missing required fields.
// Such records are dropped from the page, counted, and never fatal.
var ErrMalformedRecord = errors.New("malformed event record")

// Validate reports whether the record carries the fields the engine
// requires. The timestamp is allowed to be unparseable (it only degrades
// sorting and time-window filtering) but must be present.
func (r *EventRecord) Validate() error {
	if r.ID == "" || r.EventName == "" || r.Timestamp == "" {
		return ErrMalformedRecord
	}
	if r.RiskScore < 0 || r.RiskScore > 100 {
		return ErrMalformedRecord
	}
	if r.RuleBasedFlags < 0 {
		return ErrMalformedRecord
	}
	return nil
}
