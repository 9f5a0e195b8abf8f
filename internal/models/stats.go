package models

// AggregateStats is the server-computed summary of the full event set.
// Field names mirror the backend's /logs/stats payload.
type AggregateStats struct {
	TotalLogs       int64   `json:"total_logs"`
	AvgRiskScore    float64 `json:"avg_risk_score"`
	HighRiskCount   int64   `json:"high_risk_count"`
	MediumRiskCount int64   `json:"medium_risk_count"`
	LowRiskCount    int64   `json:"low_risk_count"`
	AnomalyCount    int64   `json:"anomaly_count"`
	RootUserCount   int64   `json:"root_user_count"`
}

// TrendDeltas holds the percentage change of each headline stat for the
// last 24 hours versus the 24 hours before that.
type TrendDeltas struct {
	TotalChange      float64 `json:"total_change"`
	HighRiskChange   float64 `json:"high_risk_change"`
	MediumRiskChange float64 `json:"medium_risk_change"`
	AnomalyChange    float64 `json:"anomalies_change"`
	RootUserChange   float64 `json:"root_users_change"`
}

// PercentChange computes the trend percentage the way the backend does:
// a previous window of zero reads as +100% when anything arrived, 0% otherwise.
func PercentChange(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}
