package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/engine"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/httputil"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/logging"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
)

// Handler exposes the feed engine over HTTP.
type Handler struct {
	engine *engine.Engine
	logger *logging.Logger
}

// NewHandler creates a Handler.
func NewHandler(e *engine.Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: e, logger: logger}
}

// HealthCheck reports service liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type feedResponse struct {
	Records    []models.EventRecord  `json:"records"`
	Count      int                   `json:"count"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
	Filter     models.FilterCriteria `json:"filter"`
	Sort       models.SortSpec       `json:"sort"`
	Ingesting  bool                  `json:"ingesting"`
	LastError  string                `json:"last_error,omitempty"`
}

// GetFeed returns the derived view plus paging and ingestion metadata.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	view := h.engine.GetView()
	page := h.engine.Page()

	resp := feedResponse{
		Records:    view,
		Count:      len(view),
		Page:       page.Number,
		PageSize:   page.Size,
		TotalPages: h.engine.TotalPages(),
		Filter:     h.engine.Filter(),
		Sort:       h.engine.Sort(),
		Ingesting:  h.engine.IsIngesting(),
	}
	if err := h.engine.LastIngestError(); err != nil {
		resp.LastError = err.Error()
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// SetFilters replaces the active filter criteria.
func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var criteria models.FilterCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid filter payload")
		return
	}

	if criteria.Window != "" {
		if _, ok := criteria.Window.Duration(); !ok {
			httputil.WriteError(w, http.StatusBadRequest, "unknown time window")
			return
		}
	}

	h.engine.SetFilter(criteria)
	h.logger.WithContext(r.Context()).Info("filters updated")
	httputil.WriteJSON(w, http.StatusOK, criteria)
}

// ClearFilters removes all filter dimensions.
func (h *Handler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearFilters()
	httputil.WriteJSON(w, http.StatusOK, models.FilterCriteria{})
}

type sortRequest struct {
	Field models.SortField `json:"field"`
}

// SetSort selects a sort field; repeating the active field flips the
// direction.
func (h *Handler) SetSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid sort payload")
		return
	}

	if !req.Field.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "unknown sort field")
		return
	}

	spec := h.engine.SetSort(req.Field)
	httputil.WriteJSON(w, http.StatusOK, spec)
}

type pageRequest struct {
	Page int `json:"page"`
}

// SetPage moves the pagination window and fetches that page.
func (h *Handler) SetPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid page payload")
		return
	}

	if err := h.engine.SetPage(r.Context(), req.Page); err != nil {
		h.logger.WithContext(r.Context()).Warn("page fetch failed", "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "failed to fetch page")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.engine.Page())
}

type ingestionStatus struct {
	Ingesting bool   `json:"ingesting"`
	LastError string `json:"last_error,omitempty"`
}

// StartIngestion arms the polling loop.
func (h *Handler) StartIngestion(w http.ResponseWriter, r *http.Request) {
	h.engine.StartIngestion()
	h.logger.WithContext(r.Context()).Info("ingestion started")
	httputil.WriteJSON(w, http.StatusOK, ingestionStatus{Ingesting: h.engine.IsIngesting()})
}

// StopIngestion cancels the pending cycle.
func (h *Handler) StopIngestion(w http.ResponseWriter, r *http.Request) {
	h.engine.StopIngestion()
	h.logger.WithContext(r.Context()).Info("ingestion stopped")
	httputil.WriteJSON(w, http.StatusOK, ingestionStatus{Ingesting: h.engine.IsIngesting()})
}

// GetIngestion reports scheduler state.
func (h *Handler) GetIngestion(w http.ResponseWriter, r *http.Request) {
	status := ingestionStatus{Ingesting: h.engine.IsIngesting()}
	if err := h.engine.LastIngestError(); err != nil {
		status.LastError = err.Error()
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

type aggregatesResponse struct {
	Stats  models.AggregateStats `json:"stats"`
	Trends models.TrendDeltas    `json:"trends"`
}

// GetAggregates returns the last good stats/trends snapshot.
func (h *Handler) GetAggregates(w http.ResponseWriter, r *http.Request) {
	stats, trends := h.engine.GetAggregates()
	httputil.WriteJSON(w, http.StatusOK, aggregatesResponse{Stats: stats, Trends: trends})
}

// RefreshAggregates fetches a fresh stats/trends pair. On failure the
// last good snapshot is retained and 502 is returned.
func (h *Handler) RefreshAggregates(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RefreshStats(r.Context()); err != nil {
		h.logger.WithContext(r.Context()).Warn("stats refresh failed", "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "stats refresh failed, retaining last snapshot")
		return
	}

	stats, trends := h.engine.GetAggregates()
	httputil.WriteJSON(w, http.StatusOK, aggregatesResponse{Stats: stats, Trends: trends})
}
