package handlers

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/etfolio/backend/src/logger"
	"github.com/username/etfolio/backend/src/models"
	"github.com/username/etfolio/backend/src/parsers/twse"
	"github.com/username/etfolio/backend/src/services"
	"github.com/username/etfolio/backend/src/utils"
)

// PortfolioHandler serves the session portfolio editor and its aggregation.
type PortfolioHandler struct {
	analyzer services.AnalyzerService
}

func NewPortfolioHandler(analyzer services.AnalyzerService) *PortfolioHandler {
	return &PortfolioHandler{analyzer: analyzer}
}

// HandleGetPortfolio lists the session's current positions.
func (h *PortfolioHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusInternalServerError)
		return
	}
	summary := h.analyzer.Summarize(session.PortfolioSnapshot())
	utils.SendJSON(w, map[string]any{"positions": summary.Positions}, http.StatusOK)
}

// HandleSetQuantity sets the held quantity for one ETF. The body carries the
// quantity in thousand-share lots, matching what the UI's number input works
// in; it is scaled x1000 to whole shares. A quantity of zero (or less)
// removes the entry.
func (h *PortfolioHandler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusInternalServerError)
		return
	}

	code := twse.NormalizeCode(chi.URLParam(r, "code"))

	var req struct {
		QuantityLots float64 `json:"quantity_lots"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid body", http.StatusBadRequest)
		return
	}
	if math.IsNaN(req.QuantityLots) || math.IsInf(req.QuantityLots, 0) {
		utils.SendJSONError(w, "Invalid quantity", http.StatusBadRequest)
		return
	}

	if _, found := h.analyzer.ETF(code); !found {
		utils.SendJSONError(w, "ETF not found", http.StatusNotFound)
		return
	}

	quantity := int(req.QuantityLots * models.SharesPerLot)
	session.WithPortfolio(func(p models.Portfolio) {
		if quantity > 0 {
			p[code] = quantity
		} else {
			delete(p, code)
		}
	})
	logger.FromContext(r.Context()).Info("Portfolio quantity updated", "code", code, "quantity", quantity)

	utils.SendJSON(w, map[string]any{"code": code, "quantity": quantity}, http.StatusOK)
}

// HandleRemoveETF removes one ETF from the session portfolio.
func (h *PortfolioHandler) HandleRemoveETF(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusInternalServerError)
		return
	}

	code := twse.NormalizeCode(chi.URLParam(r, "code"))
	session.WithPortfolio(func(p models.Portfolio) {
		delete(p, code)
	})
	logger.FromContext(r.Context()).Info("Portfolio entry removed", "code", code)

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSummary aggregates the session portfolio: total cost, annual and
// average dividends, yield, and the month x code dividend table.
func (h *PortfolioHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "session required", http.StatusInternalServerError)
		return
	}
	summary := h.analyzer.Summarize(session.PortfolioSnapshot())
	utils.SendJSON(w, summary, http.StatusOK)
}
