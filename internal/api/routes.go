// Package api is the job-control HTTP surface: submit a backtest, poll
// its status, download its report, and stream its progress over a
// websocket.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"crossspread/internal/api/handlers"
	"crossspread/internal/api/middleware"
	"crossspread/internal/api/wsstream"
)

// Dependencies bundles everything SetupRoutes needs to wire handlers.
type Dependencies struct {
	Service *Service
	Hub     *wsstream.Hub
	Log     *zap.Logger
}

// SetupRoutes builds the router:
//
//	/api/v1/
//	  ├── POST   /backtests                   - submit a backtest job
//	  ├── GET    /backtests/{id}               - poll job status
//	  ├── GET    /backtests/{id}/report.json   - download JSON report
//	  └── GET    /backtests/{id}/report.csv    - download CSV trade list
//	/ws/progress                               - websocket progress stream
//	/health                                    - liveness probe
//	/metrics                                   - Prometheus scrape endpoint
func SetupRoutes(deps *Dependencies) *mux.Router {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS)

	if deps.Service != nil {
		h := handlers.NewBacktestHandler(deps.Service)
		api := router.PathPrefix("/api/v1").Subrouter()
		api.HandleFunc("/backtests", h.CreateBacktest).Methods("POST")
		api.HandleFunc("/backtests/{id}", h.GetBacktest).Methods("GET")
		api.HandleFunc("/backtests/{id}/report.json", h.GetBacktestReportJSON).Methods("GET")
		api.HandleFunc("/backtests/{id}/report.csv", h.GetBacktestReportCSV).Methods("GET")
	}

	if deps.Hub != nil {
		router.HandleFunc("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
			wsstream.ServeWS(deps.Hub, log, w, r)
		}).Methods("GET")
	}

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}
