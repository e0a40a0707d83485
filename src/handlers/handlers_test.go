package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/etfolio/backend/src/logger"
	"github.com/username/etfolio/backend/src/models"
	"github.com/username/etfolio/backend/src/parsers/twse"
	"github.com/username/etfolio/backend/src/services"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	path := filepath.Join(t.TempDir(), "snapshot.csv")
	quarterly := []int{2, 5, 8, 11}
	var rows []twse.SnapshotRow
	for _, m := range quarterly {
		rows = append(rows, twse.SnapshotRow{
			Event: models.DividendEvent{
				Code: "00878", Name: "Cathay ESG High Div",
				ExDate:        time.Date(2024, time.Month(m), 27, 0, 0, 0, 0, time.UTC),
				AmountPerUnit: 0.5,
			},
			Close: 100,
		})
	}
	require.NoError(t, twse.WriteSnapshot(path, rows))

	analyzer := services.NewAnalyzerService(path, cache.New(time.Minute, time.Minute))
	sessionStore := NewSessionStore(time.Hour)

	analyzerHandler := NewAnalyzerHandler(analyzer)
	portfolioHandler := NewPortfolioHandler(analyzer)
	projectionHandler := NewProjectionHandler()

	r := chi.NewRouter()
	r.Use(ContextualLoggerMiddleware)
	r.Route("/api", func(r chi.Router) {
		r.Use(sessionStore.Middleware)
		r.Get("/etfs", analyzerHandler.HandleListETFs)
		r.Get("/etfs/search", analyzerHandler.HandleSearch)
		r.Get("/etfs/{code}", analyzerHandler.HandleGetETF)
		r.Get("/portfolio", portfolioHandler.HandleGetPortfolio)
		r.Put("/portfolio/{code}", portfolioHandler.HandleSetQuantity)
		r.Delete("/portfolio/{code}", portfolioHandler.HandleRemoveETF)
		r.Get("/portfolio/summary", portfolioHandler.HandleGetSummary)
		r.Post("/projection", projectionHandler.HandleProject)
		r.Get("/projection", projectionHandler.HandleGetProjectionInput)
	})
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestSessionMiddlewareSetsCookie(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/etfs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "first request must set a session cookie")
	assert.NotEmpty(t, sessionCookie.Value)
	assert.True(t, sessionCookie.HttpOnly)

	// A request that presents the cookie gets no new one.
	rec = doRequest(t, router, http.MethodGet, "/api/etfs", "", []*http.Cookie{sessionCookie})
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionStoreConcurrentFirstRequests(t *testing.T) {
	store := NewSessionStore(time.Hour)

	const workers = 16
	states := make([]*SessionState, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = store.get("same-session-id")
		}(i)
	}
	wg.Wait()

	// Every caller must resolve to the same state; a lost write here would
	// silently drop a portfolio edit.
	for i := 1; i < workers; i++ {
		assert.Same(t, states[0], states[i])
	}
}

func TestPortfolioLifecycle(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/portfolio", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := rec.Result().Cookies()

	rec = doRequest(t, router, http.MethodPut, "/api/portfolio/00878", `{"quantity_lots": 2}`, session)
	require.Equal(t, http.StatusOK, rec.Code)
	var setResp struct {
		Code     string `json:"code"`
		Quantity int    `json:"quantity"`
	}
	decodeBody(t, rec, &setResp)
	assert.Equal(t, "00878", setResp.Code)
	assert.Equal(t, 2000, setResp.Quantity)

	rec = doRequest(t, router, http.MethodGet, "/api/portfolio/summary", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		TotalCost       float64 `json:"total_cost"`
		AnnualDividends float64 `json:"annual_dividends"`
		Yield           float64 `json:"yield"`
	}
	decodeBody(t, rec, &summary)
	assert.Equal(t, float64(200000), summary.TotalCost)
	assert.Equal(t, float64(4000), summary.AnnualDividends)
	assert.InDelta(t, 2.0, summary.Yield, 1e-9)

	// Another browser session sees an empty portfolio.
	rec = doRequest(t, router, http.MethodGet, "/api/portfolio/summary", "", nil)
	decodeBody(t, rec, &summary)
	assert.Zero(t, summary.TotalCost)

	rec = doRequest(t, router, http.MethodDelete, "/api/portfolio/00878", "", session)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/portfolio/summary", "", session)
	decodeBody(t, rec, &summary)
	assert.Zero(t, summary.TotalCost)
}

func TestSetQuantityValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/api/portfolio/00878", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/api/portfolio/99999", `{"quantity_lots": 1}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Zero lots removes the entry rather than storing a zero.
	rec = doRequest(t, router, http.MethodGet, "/api/portfolio", "", nil)
	session := rec.Result().Cookies()
	doRequest(t, router, http.MethodPut, "/api/portfolio/00878", `{"quantity_lots": 1}`, session)
	doRequest(t, router, http.MethodPut, "/api/portfolio/00878", `{"quantity_lots": 0}`, session)

	rec = doRequest(t, router, http.MethodGet, "/api/portfolio", "", session)
	var resp struct {
		Positions []any `json:"positions"`
	}
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.Positions)
}

func TestProjectionEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/projection", "", nil)
	session := rec.Result().Cookies()
	var defaults models.ProjectionInput
	decodeBody(t, rec, &defaults)
	assert.Equal(t, 30, defaults.CurrentAge)
	assert.Equal(t, 65, defaults.RetirementAge)

	body := `{"current_age":30,"retirement_age":40,"initial_amount":10000,"monthly_contribution":0,"annual_return_pct":6}`
	rec = doRequest(t, router, http.MethodPost, "/api/projection", body, session)
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.ProjectionResult
	decodeBody(t, rec, &result)
	require.Len(t, result.Ages, 11)
	assert.Equal(t, 30, result.Ages[0])
	assert.Equal(t, 40, result.Ages[10])
	assert.Greater(t, result.FinalValue, 10000.0)
	assert.InDelta(t, result.FinalValue*0.06/12, result.MonthlyPassiveIncome, 1e-9)

	// The stored input comes back on the next GET for the same session.
	rec = doRequest(t, router, http.MethodGet, "/api/projection", "", session)
	var stored models.ProjectionInput
	decodeBody(t, rec, &stored)
	assert.Equal(t, 40, stored.RetirementAge)
	assert.Equal(t, float64(10000), stored.InitialAmount)

	rec = doRequest(t, router, http.MethodPost, "/api/projection",
		`{"current_age":65,"retirement_age":30}`, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestETFBrowserEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/etfs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		HasData bool `json:"has_data"`
		ETFs    []struct {
			Code     string `json:"code"`
			HasPrice bool   `json:"has_price"`
		} `json:"etfs"`
	}
	decodeBody(t, rec, &listResp)
	require.True(t, listResp.HasData)
	require.Len(t, listResp.ETFs, 1)
	assert.Equal(t, "00878", listResp.ETFs[0].Code)
	assert.True(t, listResp.ETFs[0].HasPrice)

	rec = doRequest(t, router, http.MethodGet, "/api/etfs/search?q=Cathay", "", nil)
	decodeBody(t, rec, &listResp)
	assert.Len(t, listResp.ETFs, 1)

	rec = doRequest(t, router, http.MethodGet, "/api/etfs/878", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Code       string  `json:"code"`
		Label      string  `json:"frequency_label"`
		ClosePrice float64 `json:"close_price"`
	}
	decodeBody(t, rec, &detail)
	assert.Equal(t, "00878", detail.Code)
	assert.Equal(t, string(models.FrequencyQuarterlyFeb), detail.Label)
	assert.Equal(t, float64(100), detail.ClosePrice)

	rec = doRequest(t, router, http.MethodGet, "/api/etfs/99999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
