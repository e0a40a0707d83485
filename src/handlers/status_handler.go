package handlers

import (
	"net/http"
	"time"

	"github.com/username/etfolio/backend/src/services"
	"github.com/username/etfolio/backend/src/utils"
)

// StatusHandler reports data availability and refresh freshness for the UI
// sidebar.
type StatusHandler struct {
	analyzer  services.AnalyzerService
	refresher *services.RefreshService
}

func NewStatusHandler(analyzer services.AnalyzerService, refresher *services.RefreshService) *StatusHandler {
	return &StatusHandler{analyzer: analyzer, refresher: refresher}
}

func (h *StatusHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"has_data":  false,
		"etf_count": 0,
	}

	if dataset, err := h.analyzer.Dataset(); err == nil {
		resp["has_data"] = true
		resp["etf_count"] = len(dataset.ETFs)
		resp["has_amounts"] = dataset.HasAmounts()
		resp["loaded_at"] = dataset.LoadedAt.Format(time.RFC3339)
	}

	if last := h.refresher.LastRefresh(); !last.IsZero() {
		resp["last_refresh"] = last.Format(time.RFC3339)
	}

	utils.SendJSON(w, resp, http.StatusOK)
}
