// Package repository implements the consumed capabilities over a local
// PostgreSQL logs table, mirroring the aggregation the dashboard backend
// runs server-side.
package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/metrics"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
)

// PostgresRepository serves record pages, aggregate statistics, and
// trend deltas from the security_logs table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to PostgreSQL and verifies the
// connection.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// FetchRecordsPage returns one newest-first page of security_logs.
// Rows that fail record validation are dropped and counted.
func (r *PostgresRepository) FetchRecordsPage(ctx context.Context, page, size int) (*models.RecordPage, error) {
	const op = "fetch records page"

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 100
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM security_logs`).Scan(&total); err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}

	query := `
		SELECT event_id, event_name, user_identity_type, source_ip,
		       risk_score, risk_level, anomaly_detected, rule_based_flags,
		       to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM security_logs
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, size, (page-1)*size)
	if err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}
	defer rows.Close()

	totalPages := int((total + int64(size) - 1) / int64(size))
	if totalPages == 0 {
		totalPages = 1
	}

	result := &models.RecordPage{
		Records:    make([]models.EventRecord, 0, size),
		TotalPages: totalPages,
	}

	for rows.Next() {
		var rec models.EventRecord
		if err := rows.Scan(
			&rec.ID, &rec.EventName, &rec.IdentityType, &rec.SourceIP,
			&rec.RiskScore, &rec.RiskLevel, &rec.Anomaly, &rec.RuleBasedFlags,
			&rec.Timestamp,
		); err != nil {
			return nil, models.NewFetchError(op, 0, err)
		}

		if err := rec.Validate(); err != nil {
			result.Dropped++
			continue
		}
		result.Records = append(result.Records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}

	if result.Dropped > 0 {
		metrics.RecordsDroppedTotal.Add(float64(result.Dropped))
		log.Printf("dropped %d malformed rows from security_logs page %d", result.Dropped, page)
	}

	return result, nil
}

// FetchAggregateStats runs the summary aggregation over the full table.
func (r *PostgresRepository) FetchAggregateStats(ctx context.Context) (*models.AggregateStats, error) {
	const op = "fetch aggregate stats"

	query := `
		SELECT COUNT(*),
		       COALESCE(AVG(risk_score), 0),
		       COUNT(*) FILTER (WHERE risk_level = 'HIGH'),
		       COUNT(*) FILTER (WHERE risk_level = 'MEDIUM'),
		       COUNT(*) FILTER (WHERE risk_level = 'LOW'),
		       COUNT(*) FILTER (WHERE anomaly_detected),
		       COUNT(*) FILTER (WHERE user_identity_type = 'Root')
		FROM security_logs
	`

	stats := &models.AggregateStats{}
	if err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalLogs, &stats.AvgRiskScore,
		&stats.HighRiskCount, &stats.MediumRiskCount, &stats.LowRiskCount,
		&stats.AnomalyCount, &stats.RootUserCount,
	); err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}

	return stats, nil
}

type trendWindow struct {
	total, high, medium, anomalies, rootUsers int64
}

// FetchTrendDeltas compares the last 24 hours against the previous 24.
func (r *PostgresRepository) FetchTrendDeltas(ctx context.Context) (*models.TrendDeltas, error) {
	const op = "fetch trend deltas"

	now := time.Now().UTC()

	current, err := r.windowCounts(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}

	previous, err := r.windowCounts(ctx, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	if err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}

	return &models.TrendDeltas{
		TotalChange:      models.PercentChange(current.total, previous.total),
		HighRiskChange:   models.PercentChange(current.high, previous.high),
		MediumRiskChange: models.PercentChange(current.medium, previous.medium),
		AnomalyChange:    models.PercentChange(current.anomalies, previous.anomalies),
		RootUserChange:   models.PercentChange(current.rootUsers, previous.rootUsers),
	}, nil
}

func (r *PostgresRepository) windowCounts(ctx context.Context, from, to time.Time) (*trendWindow, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE risk_level = 'HIGH'),
		       COUNT(*) FILTER (WHERE risk_level = 'MEDIUM'),
		       COUNT(*) FILTER (WHERE anomaly_detected),
		       COUNT(*) FILTER (WHERE user_identity_type = 'Root')
		FROM security_logs
		WHERE timestamp >= $1 AND timestamp < $2
	`

	w := &trendWindow{}
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(
		&w.total, &w.high, &w.medium, &w.anomalies, &w.rootUsers,
	); err != nil {
		return nil, err
	}
	return w, nil
}

// InsertRecord stores one scored event, used by simulation over the
// local database.
func (r *PostgresRepository) InsertRecord(ctx context.Context, rec *models.EventRecord) error {
	ts, ok := rec.Time()
	if !ok {
		return models.ErrMalformedRecord
	}

	query := `
		INSERT INTO security_logs
			(event_id, event_name, user_identity_type, source_ip,
			 risk_score, risk_level, anomaly_detected, rule_based_flags, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.EventName, rec.IdentityType, rec.SourceIP,
		rec.RiskScore, string(rec.RiskLevel), rec.Anomaly, rec.RuleBasedFlags, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}
