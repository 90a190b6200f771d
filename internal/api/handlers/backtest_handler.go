// Package handlers holds the HTTP handlers for the job-control API:
// submitting backtests, polling their status, and downloading a
// finished run's report.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"crossspread/internal/api"
	"crossspread/internal/report"
)

// BacktestHandler serves the /backtests routes.
type BacktestHandler struct {
	svc *api.Service
}

// NewBacktestHandler returns a BacktestHandler backed by svc.
func NewBacktestHandler(svc *api.Service) *BacktestHandler {
	return &BacktestHandler{svc: svc}
}

type createBacktestRequest struct {
	Symbols                 []string `json:"symbols"`
	Venues                  []string `json:"venues"`
	Start                   string   `json:"start"`
	End                     string   `json:"end"`
	SizeInCoins             string   `json:"size_in_coins"`
	EntrySpreadThresholdBps string   `json:"entry_spread_threshold_bps"`
	ExitSpreadThresholdBps  string   `json:"exit_spread_threshold_bps"`
	MaxSlippageBps          string   `json:"max_slippage_bps"`
	MaxPositionHoldTime     string   `json:"max_position_hold_time"`
	MaxConcurrentPositions  int      `json:"max_concurrent_positions"`
	SliceCount              int      `json:"slice_count"`
	SliceIntervalMs         int      `json:"slice_interval_ms"`
}

// CreateBacktest handles POST /api/v1/backtests.
func (h *BacktestHandler) CreateBacktest(w http.ResponseWriter, r *http.Request) {
	var body createBacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(body.Symbols) == 0 || len(body.Venues) < 2 {
		http.Error(w, "at least one symbol and at least two venues are required", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(time.RFC3339, body.Start)
	if err != nil {
		http.Error(w, "invalid start time: "+err.Error(), http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, body.End)
	if err != nil {
		http.Error(w, "invalid end time: "+err.Error(), http.StatusBadRequest)
		return
	}

	req := api.JobRequest{
		Symbols:                body.Symbols,
		Venues:                 body.Venues,
		Start:                  start,
		End:                    end,
		MaxConcurrentPositions: body.MaxConcurrentPositions,
		SliceCount:             body.SliceCount,
		SliceIntervalMs:        body.SliceIntervalMs,
	}
	req.SizeInCoins = parseDecimalOrZero(body.SizeInCoins)
	req.EntrySpreadThresholdBps = parseDecimalOrZero(body.EntrySpreadThresholdBps)
	req.ExitSpreadThresholdBps = parseDecimalOrZero(body.ExitSpreadThresholdBps)
	req.MaxSlippageBps = parseDecimalOrZero(body.MaxSlippageBps)
	if body.MaxPositionHoldTime != "" {
		if d, err := time.ParseDuration(body.MaxPositionHoldTime); err == nil {
			req.MaxPositionHoldTime = d
		}
	}

	job := h.svc.Submit(req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"id":     job.ID,
		"status": string(job.Status),
	})
}

// GetBacktest handles GET /api/v1/backtests/{id}.
func (h *BacktestHandler) GetBacktest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.svc.Store().Get(id)
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	resp := map[string]interface{}{
		"id":     job.ID,
		"status": job.Status,
	}
	if job.Err != nil {
		resp["error"] = job.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetBacktestReportJSON handles GET /api/v1/backtests/{id}/report.json.
func (h *BacktestHandler) GetBacktestReportJSON(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.svc.Store().Get(id)
	if !ok || job.Result == nil {
		http.Error(w, "report not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := report.WriteJSON(w, job.Result, time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetBacktestReportCSV handles GET /api/v1/backtests/{id}/report.csv.
func (h *BacktestHandler) GetBacktestReportCSV(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.svc.Store().Get(id)
	if !ok || job.Result == nil {
		http.Error(w, "report not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := report.WriteCSV(w, job.Result); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseDecimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
