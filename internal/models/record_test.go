package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevelOrdinal(t *testing.T) {
	assert.Equal(t, 3, RiskHigh.Ordinal())
	assert.Equal(t, 2, RiskMedium.Ordinal())
	assert.Equal(t, 1, RiskLow.Ordinal())
	assert.Equal(t, 0, RiskLevel("CRITICAL").Ordinal())
	assert.Equal(t, 0, RiskLevel("").Ordinal())
}

func TestEventRecordTime(t *testing.T) {
	tests := []struct {
		name      string
		timestamp string
		ok        bool
	}{
		{"rfc3339", "2024-03-01T10:00:00Z", true},
		{"rfc3339 nano", "2024-03-01T10:00:00.123456789Z", true},
		{"legacy no zone", "2024-03-01T10:00:00.123456", true},
		{"space separated", "2024-03-01 10:00:00", true},
		{"garbage", "not-a-timestamp", false},
		{"empty", "", false},
		{"whitespace", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := EventRecord{Timestamp: tt.timestamp}
			ts, ok := r.Time()
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.False(t, ts.IsZero())
			}
		})
	}
}

func TestEventRecordTimeValue(t *testing.T) {
	r := EventRecord{Timestamp: "2024-03-01T10:30:00Z"}
	ts, ok := r.Time()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC), ts.UTC())
}

func TestEventRecordValidate(t *testing.T) {
	valid := EventRecord{
		ID:        "ev-1",
		EventName: "ConsoleLogin",
		RiskScore: 42,
		RiskLevel: RiskMedium,
		Timestamp: "2024-03-01T10:00:00Z",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*EventRecord)
	}{
		{"missing id", func(r *EventRecord) { r.ID = "" }},
		{"missing event name", func(r *EventRecord) { r.EventName = "" }},
		{"missing timestamp", func(r *EventRecord) { r.Timestamp = "" }},
		{"negative score", func(r *EventRecord) { r.RiskScore = -1 }},
		{"score above bound", func(r *EventRecord) { r.RiskScore = 101 }},
		{"negative flags", func(r *EventRecord) { r.RuleBasedFlags = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), ErrMalformedRecord)
		})
	}

	t.Run("unparseable timestamp is still valid", func(t *testing.T) {
		r := valid
		r.Timestamp = "garbage"
		assert.NoError(t, r.Validate())
	})
}

func TestTimeWindowDuration(t *testing.T) {
	tests := []struct {
		window TimeWindow
		want   time.Duration
		ok     bool
	}{
		{WindowHour, time.Hour, true},
		{WindowDay, 24 * time.Hour, true},
		{WindowWeek, 7 * 24 * time.Hour, true},
		{WindowMonth, 30 * 24 * time.Hour, true},
		{"", 0, false},
		{"fortnight", 0, false},
	}

	for _, tt := range tests {
		d, ok := tt.window.Duration()
		assert.Equal(t, tt.ok, ok, string(tt.window))
		assert.Equal(t, tt.want, d, string(tt.window))
	}
}

func TestSortSpecToggle(t *testing.T) {
	spec := DefaultSort()
	require.Equal(t, SortByTime, spec.Field)
	require.Equal(t, SortDesc, spec.Direction)

	// Same field flips direction, asc -> desc -> asc.
	spec = spec.Toggle(SortByTime)
	assert.Equal(t, SortSpec{Field: SortByTime, Direction: SortAsc}, spec)
	spec = spec.Toggle(SortByTime)
	assert.Equal(t, SortSpec{Field: SortByTime, Direction: SortDesc}, spec)

	// New field starts descending.
	spec = spec.Toggle(SortByRiskLevel)
	assert.Equal(t, SortSpec{Field: SortByRiskLevel, Direction: SortDesc}, spec)
}

func TestFilterCriteriaIsZero(t *testing.T) {
	assert.True(t, FilterCriteria{}.IsZero())
	assert.False(t, FilterCriteria{RiskLevel: RiskHigh}.IsZero())
	assert.False(t, FilterCriteria{Query: "192.168"}.IsZero())
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 50.0, PercentChange(15, 10))
	assert.Equal(t, -50.0, PercentChange(5, 10))
	assert.Equal(t, 0.0, PercentChange(10, 10))
	assert.Equal(t, 100.0, PercentChange(3, 0))
	assert.Equal(t, 0.0, PercentChange(0, 0))
}
