// Package feed implements the pure derived-view pipeline: predicate
// composition, record ordering, and the memoized filter-then-sort
// projection the dashboard renders.
package feed

import (
	"strings"
	"time"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
)

// Predicate decides whether a record belongs in the derived view.
type Predicate func(*models.EventRecord) bool

// BuildFilter composes one predicate per constrained dimension and ANDs
// them. Zero-value dimensions contribute nothing; the empty criteria
// yields a predicate that admits every record.
//
// now anchors the time-window predicate so that derivation stays a pure
// function of its inputs.
func BuildFilter(criteria models.FilterCriteria, now time.Time) Predicate {
	var preds []Predicate

	if criteria.RiskLevel != "" {
		level := criteria.RiskLevel
		preds = append(preds, func(r *models.EventRecord) bool {
			return r.RiskLevel == level
		})
	}

	if criteria.IdentityType != "" {
		identity := criteria.IdentityType
		preds = append(preds, func(r *models.EventRecord) bool {
			return r.IdentityType == identity
		})
	}

	if criteria.EventName != "" {
		name := criteria.EventName
		preds = append(preds, func(r *models.EventRecord) bool {
			return r.EventName == name
		})
	}

	if window, ok := criteria.Window.Duration(); ok {
		cutoff := now.Add(-window)
		preds = append(preds, func(r *models.EventRecord) bool {
			ts, ok := r.Time()
			if !ok {
				// Unparseable timestamps never fall inside a finite window.
				return false
			}
			return !ts.Before(cutoff)
		})
	}

	if q := strings.ToLower(strings.TrimSpace(criteria.Query)); q != "" {
		preds = append(preds, func(r *models.EventRecord) bool {
			return strings.Contains(strings.ToLower(r.EventName), q) ||
				strings.Contains(strings.ToLower(r.SourceIP), q) ||
				strings.Contains(strings.ToLower(r.IdentityType), q)
		})
	}

	if len(preds) == 0 {
		return func(*models.EventRecord) bool { return true }
	}

	return func(r *models.EventRecord) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}
}
