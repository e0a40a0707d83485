package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/username/etfolio/backend/src/logger"
	"golang.org/x/net/publicsuffix"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// --- API Response Structs ---

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// --- Service Implementation ---

type marketServiceImpl struct {
	baseURL       string
	httpClient    http.Client
	isInitialized bool
	crumb         string
	mu            sync.Mutex
}

// NewMarketService creates a market-data client against a Yahoo-compatible
// quote API. The session (cookies + crumb) is bootstrapped lazily in the
// background so construction never blocks startup.
func NewMarketService(baseURL string, timeout time.Duration) MarketService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	s := &marketServiceImpl{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}

	go s.initializeSession()

	return s
}

func (s *marketServiceImpl) initializeSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isInitialized && s.crumb != "" {
		return
	}

	logger.L.Info("Initializing market data session and fetching crumb...")

	for _, url := range []string{"https://fc.yahoo.com", "https://finance.yahoo.com"} {
		req, _ := http.NewRequest("GET", url, nil)
		req.Header.Set("User-Agent", userAgent)
		if resp, err := s.httpClient.Do(req); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
	}

	req, _ := http.NewRequest("GET", s.baseURL+"/v1/test/getcrumb", nil)
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.L.Error("Failed to fetch crumb", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		s.crumb = string(bodyBytes)
		s.isInitialized = true
		logger.L.Info("Market data session initialized")
	} else {
		logger.L.Warn("Failed to fetch crumb", "status", resp.Status)
	}
}

// ensureSession initializes the session if needed and returns the crumb
// snapshotted under the lock, so callers never read it concurrently with a
// re-initialization.
func (s *marketServiceImpl) ensureSession() string {
	s.mu.Lock()
	needsInit := !s.isInitialized || s.crumb == ""
	s.mu.Unlock()

	if needsInit {
		s.initializeSession()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crumb
}

// symbolFor maps a canonical exchange code to the quote API symbol. Bond and
// alternative codes (containing 'B') trade on the OTC board.
func symbolFor(code string) string {
	if strings.Contains(code, "B") {
		return code + ".TWO"
	}
	return code + ".TW"
}

// FetchInstrument returns the latest close and the trailing 12 months of
// dividend events for one instrument.
func (s *marketServiceImpl) FetchInstrument(ctx context.Context, code string) (*InstrumentData, error) {
	crumb := s.ensureSession()

	now := time.Now()
	oneYearAgo := now.AddDate(-1, 0, 0)
	symbol := symbolFor(code)

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div&crumb=%s",
		s.baseURL, symbol, oneYearAgo.Unix(), now.Unix(), crumb)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call chart API for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		s.mu.Lock()
		s.isInitialized = false
		s.mu.Unlock()
		return nil, fmt.Errorf("chart API status 401 (Unauthorized) - crumb invalid")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart API returned non-OK status %d for %s", resp.StatusCode, symbol)
	}

	var data chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode chart response for %s: %w", symbol, err)
	}
	if data.Chart.Error != nil {
		return nil, fmt.Errorf("chart API returned an error for %s: %v", symbol, data.Chart.Error)
	}
	if len(data.Chart.Result) == 0 || data.Chart.Result[0].Meta.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("no price data found for %s", symbol)
	}

	result := data.Chart.Result[0]
	asOf := now
	if result.Meta.RegularMarketTime > 0 {
		asOf = time.Unix(result.Meta.RegularMarketTime, 0)
	}

	instrument := &InstrumentData{
		Code:       code,
		Name:       result.Meta.ShortName,
		ClosePrice: result.Meta.RegularMarketPrice,
		AsOf:       asOf,
	}
	for _, div := range result.Events.Dividends {
		if div.Amount > 0 {
			instrument.Dividends = append(instrument.Dividends, InstrumentDividend{
				ExDate: time.Unix(div.Date, 0),
				Amount: div.Amount,
			})
		}
	}
	sort.Slice(instrument.Dividends, func(i, j int) bool {
		return instrument.Dividends[i].ExDate.Before(instrument.Dividends[j].ExDate)
	})

	return instrument, nil
}
