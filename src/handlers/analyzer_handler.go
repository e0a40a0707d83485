package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/etfolio/backend/src/logger"
	"github.com/username/etfolio/backend/src/models"
	"github.com/username/etfolio/backend/src/security/validation"
	"github.com/username/etfolio/backend/src/services"
	"github.com/username/etfolio/backend/src/utils"
)

// AnalyzerHandler serves the ETF browser: listing, frequency groups, search,
// and per-ETF detail.
type AnalyzerHandler struct {
	analyzer services.AnalyzerService
}

func NewAnalyzerHandler(analyzer services.AnalyzerService) *AnalyzerHandler {
	return &AnalyzerHandler{analyzer: analyzer}
}

// etfListing is one row of the browser list.
type etfListing struct {
	Code       string                `json:"code"`
	Name       string                `json:"name"`
	Label      models.FrequencyLabel `json:"frequency_label,omitempty"`
	ClosePrice float64               `json:"close_price,omitempty"`
	HasPrice   bool                  `json:"has_price"`
}

func (h *AnalyzerHandler) listing(codes []string) []etfListing {
	out := make([]etfListing, 0, len(codes))
	for _, code := range codes {
		entry := etfListing{Code: code, Name: h.analyzer.Name(code)}
		if etf, ok := h.analyzer.ETF(code); ok {
			entry.Label = etf.Label
		}
		if price, ok := h.analyzer.Price(code); ok {
			entry.ClosePrice = price
			entry.HasPrice = true
		}
		out = append(out, entry)
	}
	return out
}

// HandleListETFs returns every code present in both the price and dividend
// tables. Empty with has_data=false in the no-data state.
func (h *AnalyzerHandler) HandleListETFs(w http.ResponseWriter, r *http.Request) {
	codes := h.analyzer.AllCodes()
	utils.SendJSON(w, map[string]any{
		"has_data": len(codes) > 0,
		"etfs":     h.listing(codes),
	}, http.StatusOK)
}

// HandleFrequencyGroups returns label -> sorted codes.
func (h *AnalyzerHandler) HandleFrequencyGroups(w http.ResponseWriter, r *http.Request) {
	groups := h.analyzer.FrequencyGroups()
	utils.SendJSON(w, map[string]any{
		"has_data": len(groups) > 0,
		"groups":   groups,
	}, http.StatusOK)
}

// HandleSearch filters the browser list by a sanitized free-text keyword.
func (h *AnalyzerHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := validation.SanitizeSearchKeyword(r.URL.Query().Get("q"))
	matched := h.analyzer.Search(keyword)
	logger.FromContext(r.Context()).Debug("ETF search", "keyword", keyword, "matches", len(matched))
	utils.SendJSON(w, map[string]any{
		"keyword": keyword,
		"etfs":    h.listing(matched),
	}, http.StatusOK)
}

// HandleGetETF returns the classification and events for one code.
func (h *AnalyzerHandler) HandleGetETF(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	etf, ok := h.analyzer.ETF(code)
	if !ok {
		utils.SendJSONError(w, "ETF not found", http.StatusNotFound)
		return
	}

	resp := struct {
		*models.ClassifiedETF
		ClosePrice float64 `json:"close_price,omitempty"`
		HasPrice   bool    `json:"has_price"`
	}{ClassifiedETF: etf}
	if price, ok := h.analyzer.Price(code); ok {
		resp.ClosePrice = price
		resp.HasPrice = true
	}
	utils.SendJSON(w, resp, http.StatusOK)
}
