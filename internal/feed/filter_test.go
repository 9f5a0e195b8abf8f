package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
)

var filterNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func stamped(offset time.Duration) string {
	return filterNow.Add(offset).Format(time.RFC3339)
}

func TestBuildFilterEmptyCriteriaMatchesEverything(t *testing.T) {
	match := BuildFilter(models.FilterCriteria{}, filterNow)

	records := []models.EventRecord{
		{ID: "a", EventName: "ConsoleLogin", RiskLevel: models.RiskHigh},
		{ID: "b", Timestamp: "garbage"},
		{},
	}
	for i := range records {
		assert.True(t, match(&records[i]))
	}
}

func TestBuildFilterRiskLevel(t *testing.T) {
	match := BuildFilter(models.FilterCriteria{RiskLevel: models.RiskHigh}, filterNow)

	assert.True(t, match(&models.EventRecord{RiskLevel: models.RiskHigh}))
	assert.False(t, match(&models.EventRecord{RiskLevel: models.RiskMedium}))
	assert.False(t, match(&models.EventRecord{}))
}

func TestBuildFilterIdentityAndEventName(t *testing.T) {
	match := BuildFilter(models.FilterCriteria{
		IdentityType: models.IdentityRoot,
		EventName:    "DeleteTrail",
	}, filterNow)

	assert.True(t, match(&models.EventRecord{IdentityType: "Root", EventName: "DeleteTrail"}))
	// Dimensions AND together.
	assert.False(t, match(&models.EventRecord{IdentityType: "Root", EventName: "ConsoleLogin"}))
	assert.False(t, match(&models.EventRecord{IdentityType: "IAMUser", EventName: "DeleteTrail"}))
}

func TestBuildFilterTextSearch(t *testing.T) {
	match := BuildFilter(models.FilterCriteria{Query: "192.168"}, filterNow)

	// Matches source address regardless of other fields' case.
	assert.True(t, match(&models.EventRecord{
		EventName: "CONSOLELOGIN",
		SourceIP:  "192.168.1.100",
	}))
	assert.False(t, match(&models.EventRecord{SourceIP: "10.0.0.1"}))

	t.Run("case insensitive across fields", func(t *testing.T) {
		match := BuildFilter(models.FilterCriteria{Query: "console"}, filterNow)
		assert.True(t, match(&models.EventRecord{EventName: "ConsoleLogin"}))

		match = BuildFilter(models.FilterCriteria{Query: "iamuser"}, filterNow)
		assert.True(t, match(&models.EventRecord{IdentityType: "IAMUser"}))
	})
}

func TestBuildFilterTimeWindow(t *testing.T) {
	match := BuildFilter(models.FilterCriteria{Window: models.WindowHour}, filterNow)

	newer := models.EventRecord{Timestamp: stamped(-30 * time.Minute)}
	older := models.EventRecord{Timestamp: stamped(-61 * time.Minute)}
	exact := models.EventRecord{Timestamp: stamped(-60 * time.Minute)}

	assert.True(t, match(&newer), "30 minutes old is inside the hour window")
	assert.False(t, match(&older), "61 minutes old is outside the hour window")
	assert.True(t, match(&exact), "exactly an hour old is still inside")
}

func TestBuildFilterMalformedTimestamp(t *testing.T) {
	broken := models.EventRecord{ID: "x", EventName: "Evil", Timestamp: "###"}

	withWindow := BuildFilter(models.FilterCriteria{Window: models.WindowMonth}, filterNow)
	require.False(t, withWindow(&broken), "unparseable timestamps never match a finite window")

	withoutWindow := BuildFilter(models.FilterCriteria{Query: "evil"}, filterNow)
	assert.True(t, withoutWindow(&broken), "no window filter means no timestamp constraint")
}
