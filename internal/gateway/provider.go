package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// ProviderError is the base error every MarketDataProvider failure wraps.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// TickerNotFoundError means the provider has no data for the requested
// ticker.
type TickerNotFoundError struct {
	Ticker string
}

func (e *TickerNotFoundError) Error() string {
	return fmt.Sprintf("ticker not found: %s", e.Ticker)
}

// RateLimitedError means the provider rejected the request for exceeding
// its call budget; RetryAfter is zero when the provider didn't say.
type RateLimitedError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
}

// MarketDataProvider fetches bars for a ticker. The analysis core never
// calls this directly; only the gateway does, keeping C1-C9 free of
// network calls.
type MarketDataProvider interface {
	GetBars(ctx context.Context, ticker string, tf types.Timeframe, window string) ([]types.Bar, error)
	Name() string
}

// DefaultWindow mirrors the provider base's per-timeframe lookback
// default: enough bars for structure detection and behavior inference
// without over-fetching.
func DefaultWindow(tf types.Timeframe) string {
	switch tf {
	case types.Timeframe1m:
		return "5d"
	case types.Timeframe5m:
		return "1mo"
	case types.Timeframe1d:
		return "1y"
	default:
		return "5d"
	}
}

// restBar is the wire shape a generic REST bar provider returns.
type restBar struct {
	T string  `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// RESTProvider fetches bars from a generic JSON REST endpoint of the
// shape {"bars": [{"t","o","h","l","c","v"}, ...]}.
type RESTProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRESTProvider returns a provider hitting baseURL/bars with an API key
// query parameter.
func NewRESTProvider(name, baseURL, apiKey string) *RESTProvider {
	return &RESTProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (p *RESTProvider) Name() string { return p.name }

func (p *RESTProvider) GetBars(ctx context.Context, ticker string, tf types.Timeframe, window string) ([]types.Bar, error) {
	if window == "" {
		window = DefaultWindow(tf)
	}

	endpoint, err := url.Parse(p.baseURL + "/bars")
	if err != nil {
		return nil, &ProviderError{Provider: p.name, Op: "get_bars", Err: err}
	}
	q := endpoint.Query()
	q.Set("ticker", ticker)
	q.Set("timeframe", string(tf))
	q.Set("window", window)
	if p.apiKey != "" {
		q.Set("apikey", p.apiKey)
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &ProviderError{Provider: p.name, Op: "get_bars", Err: err}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.name, Op: "get_bars", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, &TickerNotFoundError{Ticker: ticker}
	case http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &RateLimitedError{Provider: p.name, RetryAfter: retryAfter}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: p.name, Op: "get_bars", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var payload struct {
		Bars []restBar `json:"bars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{Provider: p.name, Op: "decode", Err: err}
	}

	return convertRESTBars(payload.Bars)
}

func convertRESTBars(raw []restBar) ([]types.Bar, error) {
	bars := make([]types.Bar, 0, len(raw))
	for _, rb := range raw {
		t, err := time.Parse(time.RFC3339, rb.T)
		if err != nil {
			return nil, fmt.Errorf("parse bar time %q: %w", rb.T, err)
		}
		bars = append(bars, types.Bar{Time: t, Open: rb.O, High: rb.H, Low: rb.L, Close: rb.C, Volume: rb.V})
	}
	return bars, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// alpacaBar is Alpaca's v2 bars wire shape.
type alpacaBar struct {
	T string  `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// AlpacaProvider fetches bars from Alpaca's market data v2 API.
type AlpacaProvider struct {
	baseURL    string
	apiKeyID   string
	apiSecret  string
	httpClient *http.Client
}

// NewAlpacaProvider returns a provider bound to Alpaca's data API.
func NewAlpacaProvider(baseURL, apiKeyID, apiSecret string) *AlpacaProvider {
	if baseURL == "" {
		baseURL = "https://data.alpaca.markets"
	}
	return &AlpacaProvider{
		baseURL:   baseURL,
		apiKeyID:  apiKeyID,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (p *AlpacaProvider) Name() string { return "alpaca" }

func (p *AlpacaProvider) GetBars(ctx context.Context, ticker string, tf types.Timeframe, window string) ([]types.Bar, error) {
	timeframe, err := alpacaTimeframe(tf)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/stocks/%s/bars", p.baseURL, url.PathEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "get_bars", Err: err}
	}
	q := req.URL.Query()
	q.Set("timeframe", timeframe)
	q.Set("limit", "1000")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("APCA-API-KEY-ID", p.apiKeyID)
	req.Header.Set("APCA-API-SECRET-KEY", p.apiSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "get_bars", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, &TickerNotFoundError{Ticker: ticker}
	case http.StatusTooManyRequests:
		return nil, &RateLimitedError{Provider: p.Name(), RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), Op: "get_bars", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var payload struct {
		Bars []alpacaBar `json:"bars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "decode", Err: err}
	}

	bars := make([]types.Bar, 0, len(payload.Bars))
	for _, ab := range payload.Bars {
		t, err := time.Parse(time.RFC3339, ab.T)
		if err != nil {
			return nil, fmt.Errorf("parse bar time %q: %w", ab.T, err)
		}
		bars = append(bars, types.Bar{Time: t, Open: ab.O, High: ab.H, Low: ab.L, Close: ab.C, Volume: ab.V})
	}
	return bars, nil
}

func alpacaTimeframe(tf types.Timeframe) (string, error) {
	switch tf {
	case types.Timeframe1m:
		return "1Min", nil
	case types.Timeframe5m:
		return "5Min", nil
	case types.Timeframe1d:
		return "1Day", nil
	default:
		return "", types.NewInvalidTimeframeError(string(tf))
	}
}
