// Package client implements the consumed capabilities against the CSPM
// dashboard backend's HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/metrics"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
)

// BackendClient fetches record pages, aggregate statistics, trend deltas,
// and simulated events from the dashboard backend. Retry policy and auth
// semantics live with the backend; this client only carries an opaque
// bearer token.
type BackendClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a BackendClient for the given base URL.
func New(baseURL, token string) *BackendClient {
	return &BackendClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type logsResponse struct {
	Success    bool                 `json:"success"`
	Logs       []models.EventRecord `json:"logs"`
	TotalPages int                  `json:"total_pages"`
}

// FetchRecordsPage retrieves one page of the server-side record set.
// Malformed records are dropped from the page and counted, never fatal.
func (c *BackendClient) FetchRecordsPage(ctx context.Context, page, size int) (*models.RecordPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(size))

	var resp logsResponse
	if err := c.getJSON(ctx, "/api/logs?"+q.Encode(), "fetch records page", &resp); err != nil {
		return nil, err
	}

	result := &models.RecordPage{
		Records:    make([]models.EventRecord, 0, len(resp.Logs)),
		TotalPages: resp.TotalPages,
	}

	for i := range resp.Logs {
		if err := resp.Logs[i].Validate(); err != nil {
			result.Dropped++
			continue
		}
		result.Records = append(result.Records, resp.Logs[i])
	}

	if result.Dropped > 0 {
		metrics.RecordsDroppedTotal.Add(float64(result.Dropped))
		log.Printf("dropped %d malformed records from page %d", result.Dropped, page)
	}

	return result, nil
}

type statsResponse struct {
	Success bool                  `json:"success"`
	Stats   models.AggregateStats `json:"stats"`
}

// FetchAggregateStats retrieves the server-computed summary statistics.
func (c *BackendClient) FetchAggregateStats(ctx context.Context) (*models.AggregateStats, error) {
	var resp statsResponse
	if err := c.getJSON(ctx, "/api/logs/stats", "fetch aggregate stats", &resp); err != nil {
		return nil, err
	}
	return &resp.Stats, nil
}

type trendsResponse struct {
	Success bool               `json:"success"`
	Trends  models.TrendDeltas `json:"trends"`
}

// FetchTrendDeltas retrieves the 24h-over-24h percentage changes.
func (c *BackendClient) FetchTrendDeltas(ctx context.Context) (*models.TrendDeltas, error) {
	var resp trendsResponse
	if err := c.getJSON(ctx, "/api/logs/trends", "fetch trend deltas", &resp); err != nil {
		return nil, err
	}
	return &resp.Trends, nil
}

type simulateResponse struct {
	Success bool               `json:"success"`
	Log     models.EventRecord `json:"log"`
}

// SimulateNewEvent asks the backend to score and store one random event
// from its sample corpus, returning the stored record.
func (c *BackendClient) SimulateNewEvent(ctx context.Context) (*models.EventRecord, error) {
	const op = "simulate new event"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/process-random-log", nil)
	if err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}
	c.setHeaders(req)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, models.NewFetchError(op, res.StatusCode, fmt.Errorf("unexpected status"))
	}

	var resp simulateResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}

	if err := resp.Log.Validate(); err != nil {
		return nil, models.NewFetchError(op, 0, err)
	}

	return &resp.Log, nil
}

func (c *BackendClient) getJSON(ctx context.Context, path, op string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return models.NewFetchError(op, 0, err)
	}
	c.setHeaders(req)

	res, err := c.client.Do(req)
	if err != nil {
		return models.NewFetchError(op, 0, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, res.Body)
		return models.NewFetchError(op, res.StatusCode, fmt.Errorf("unexpected status"))
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return models.NewFetchError(op, 0, err)
	}

	return nil
}

func (c *BackendClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
