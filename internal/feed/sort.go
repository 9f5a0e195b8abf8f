package feed

import (
	"sort"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
)

// Compare orders two records under the given sort spec. It is pure and
// total: every pair yields -1, 0, or 1, and repeated calls on the same
// inputs always agree.
func Compare(a, b *models.EventRecord, spec models.SortSpec) int {
	c := compareField(a, b, spec.Field)
	if spec.Direction == models.SortDesc {
		return -c
	}
	return c
}

func compareField(a, b *models.EventRecord, field models.SortField) int {
	switch field {
	case models.SortByRiskLevel:
		return compareInt(a.RiskLevel.Ordinal(), b.RiskLevel.Ordinal())
	case models.SortByRiskScore:
		return compareFloat(a.RiskScore, b.RiskScore)
	default:
		return compareTime(a, b)
	}
}

func compareTime(a, b *models.EventRecord) int {
	// Records with unparseable timestamps compare as the zero instant,
	// sorting below every real event time.
	ta, _ := a.Time()
	tb, _ := b.Time()
	switch {
	case ta.Before(tb):
		return -1
	case ta.After(tb):
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SortRecords orders records in place. The sort is stable, so ties keep
// their fetch order.
func SortRecords(records []models.EventRecord, spec models.SortSpec) {
	sort.SliceStable(records, func(i, j int) bool {
		return Compare(&records[i], &records[j], spec) < 0
	})
}
