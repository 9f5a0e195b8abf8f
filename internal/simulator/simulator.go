// Package simulator is an in-memory implementation of every consumed
// capability. It synthesizes CloudTrail-shaped scored events so the feed
// engine runs with no external backend, in tests and in `--mode sim`.
package simulator

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
)

var eventNames = []string{
	"ConsoleLogin", "CreateUser", "DeleteUser", "CreateAccessKey",
	"AttachUserPolicy", "PutBucketPolicy", "DeleteBucket", "GetObject",
	"ListBuckets", "RunInstances", "StopInstances", "DescribeInstances",
	"AuthorizeSecurityGroupIngress", "StopLogging", "DeleteTrail",
	"ModifyDBInstance", "AssumeRole", "GetSessionToken",
}

// Event names that trip the privileged-operation rule.
var riskyEvents = map[string]bool{
	"DeleteUser":                    true,
	"CreateAccessKey":               true,
	"AttachUserPolicy":              true,
	"PutBucketPolicy":               true,
	"DeleteBucket":                  true,
	"AuthorizeSecurityGroupIngress": true,
	"StopLogging":                   true,
	"DeleteTrail":                   true,
}

var identityTypes = []string{
	models.IdentityIAMUser, models.IdentityIAMUser, models.IdentityIAMUser,
	models.IdentityAssumedRole, models.IdentityAssumedRole,
	models.IdentityFederatedUser,
	models.IdentityAWSService,
	models.IdentityRoot,
}

// Source holds a growing in-memory event set and serves pages, stats,
// and trends over it.
type Source struct {
	mu      sync.RWMutex
	records []models.EventRecord
	faker   *gofakeit.Faker
	now     func() time.Time
}

// New creates a Source pre-seeded with baseline events spread over the
// past 48 hours, so both trend windows have data. A nil clock means
// time.Now.
func New(baseline int, seed int64, now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}

	s := &Source{
		faker: gofakeit.New(seed),
		now:   now,
	}

	end := now()
	for i := 0; i < baseline; i++ {
		offset := time.Duration(s.faker.Number(0, int(48*time.Hour/time.Second))) * time.Second
		s.records = append(s.records, s.generate(end.Add(-offset)))
	}

	return s
}

// SimulateNewEvent synthesizes, scores, and stores one event stamped now.
func (s *Source) SimulateNewEvent(_ context.Context) (*models.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.generate(s.now())
	s.records = append(s.records, record)
	return &record, nil
}

// FetchRecordsPage serves one newest-first page of the stored set.
func (s *Source) FetchRecordsPage(_ context.Context, page, size int) (*models.RecordPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 100
	}

	s.mu.RLock()
	ordered := append([]models.EventRecord(nil), s.records...)
	s.mu.RUnlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		ti, _ := ordered[i].Time()
		tj, _ := ordered[j].Time()
		return ti.After(tj)
	})

	totalPages := (len(ordered) + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * size
	if start >= len(ordered) {
		return &models.RecordPage{Records: []models.EventRecord{}, TotalPages: totalPages}, nil
	}

	end := start + size
	if end > len(ordered) {
		end = len(ordered)
	}

	return &models.RecordPage{Records: ordered[start:end], TotalPages: totalPages}, nil
}

// FetchAggregateStats computes the summary over the full stored set.
func (s *Source) FetchAggregateStats(_ context.Context) (*models.AggregateStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.AggregateStats{TotalLogs: int64(len(s.records))}

	var scoreSum float64
	for i := range s.records {
		r := &s.records[i]
		scoreSum += r.RiskScore
		switch r.RiskLevel {
		case models.RiskHigh:
			stats.HighRiskCount++
		case models.RiskMedium:
			stats.MediumRiskCount++
		case models.RiskLow:
			stats.LowRiskCount++
		}
		if r.Anomaly {
			stats.AnomalyCount++
		}
		if r.IdentityType == models.IdentityRoot {
			stats.RootUserCount++
		}
	}

	if len(s.records) > 0 {
		stats.AvgRiskScore = math.Round(scoreSum/float64(len(s.records))*100) / 100
	}

	return stats, nil
}

type windowCounts struct {
	total, high, medium, anomalies, rootUsers int64
}

// FetchTrendDeltas compares the last 24 hours against the 24 hours
// before that, as the backend's /logs/trends does.
func (s *Source) FetchTrendDeltas(_ context.Context) (*models.TrendDeltas, error) {
	now := s.now()
	dayAgo := now.Add(-24 * time.Hour)
	twoDaysAgo := now.Add(-48 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var current, previous windowCounts
	for i := range s.records {
		r := &s.records[i]
		ts, ok := r.Time()
		if !ok {
			continue
		}

		var w *windowCounts
		switch {
		case !ts.Before(dayAgo):
			w = &current
		case !ts.Before(twoDaysAgo):
			w = &previous
		default:
			continue
		}

		w.total++
		switch r.RiskLevel {
		case models.RiskHigh:
			w.high++
		case models.RiskMedium:
			w.medium++
		}
		if r.Anomaly {
			w.anomalies++
		}
		if r.IdentityType == models.IdentityRoot {
			w.rootUsers++
		}
	}

	return &models.TrendDeltas{
		TotalChange:      models.PercentChange(current.total, previous.total),
		HighRiskChange:   models.PercentChange(current.high, previous.high),
		MediumRiskChange: models.PercentChange(current.medium, previous.medium),
		AnomalyChange:    models.PercentChange(current.anomalies, previous.anomalies),
		RootUserChange:   models.PercentChange(current.rootUsers, previous.rootUsers),
	}, nil
}

// Len reports the stored event count.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// generate synthesizes one scored event. Scoring mirrors the original
// rule set: privileged operations, root identity, and off-hours activity
// each add a flag and raise the score; the level comes from fixed score
// bands at generation time.
func (s *Source) generate(ts time.Time) models.EventRecord {
	name := eventNames[s.faker.Number(0, len(eventNames)-1)]
	identity := identityTypes[s.faker.Number(0, len(identityTypes)-1)]

	score := s.faker.Float64Range(5, 35)
	flags := 0

	if riskyEvents[name] {
		score += 25
		flags++
	}
	if identity == models.IdentityRoot {
		score += 20
		flags++
	}
	if hour := ts.Hour(); hour < 6 || hour > 22 {
		score += 15
		flags++
	}

	anomaly := s.faker.Number(0, 99) < 7
	if anomaly {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	score = math.Round(score*100) / 100

	level := models.RiskLow
	switch {
	case score >= 70:
		level = models.RiskHigh
	case score >= 40:
		level = models.RiskMedium
	}

	return models.EventRecord{
		ID:             uuid.New().String(),
		EventName:      name,
		IdentityType:   identity,
		SourceIP:       s.faker.IPv4Address(),
		RiskScore:      score,
		RiskLevel:      level,
		Anomaly:        anomaly,
		RuleBasedFlags: flags,
		Timestamp:      ts.UTC().Format(time.RFC3339),
	}
}
