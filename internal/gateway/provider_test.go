package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/songzhiyuan98/klinelens-go/internal/gateway"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

func TestRESTProviderGetBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ticker") != "QQQ" {
			t.Errorf("ticker query = %q, want QQQ", r.URL.Query().Get("ticker"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"bars": []map[string]any{
				{"t": "2024-01-15T09:30:00Z", "o": 624.0, "h": 624.5, "l": 623.8, "c": 624.2, "v": 1000.0},
			},
		})
	}))
	defer srv.Close()

	p := gateway.NewRESTProvider("test", srv.URL, "key")
	bars, err := p.GetBars(context.Background(), "QQQ", types.Timeframe1m, "")
	if err != nil {
		t.Fatalf("GetBars error: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("len(bars) = %d, want 1", len(bars))
	}
	if bars[0].Close != 624.2 {
		t.Errorf("close = %v, want 624.2", bars[0].Close)
	}
}

func TestRESTProviderTickerNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := gateway.NewRESTProvider("test", srv.URL, "")
	_, err := p.GetBars(context.Background(), "ZZZZ", types.Timeframe1m, "")
	var notFound *gateway.TickerNotFoundError
	if !asTickerNotFound(err, &notFound) {
		t.Fatalf("err = %v, want *TickerNotFoundError", err)
	}
}

func TestRESTProviderRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := gateway.NewRESTProvider("test", srv.URL, "")
	_, err := p.GetBars(context.Background(), "QQQ", types.Timeframe1m, "")
	var rateLimited *gateway.RateLimitedError
	if !asRateLimited(err, &rateLimited) {
		t.Fatalf("err = %v, want *RateLimitedError", err)
	}
	if rateLimited.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", rateLimited.RetryAfter)
	}
}

func TestDefaultWindow(t *testing.T) {
	cases := map[types.Timeframe]string{
		types.Timeframe1m: "5d",
		types.Timeframe5m: "1mo",
		types.Timeframe1d: "1y",
	}
	for tf, want := range cases {
		if got := gateway.DefaultWindow(tf); got != want {
			t.Errorf("DefaultWindow(%v) = %q, want %q", tf, got, want)
		}
	}
}

func asTickerNotFound(err error, target **gateway.TickerNotFoundError) bool {
	e, ok := err.(*gateway.TickerNotFoundError)
	if ok {
		*target = e
	}
	return ok
}

func asRateLimited(err error, target **gateway.RateLimitedError) bool {
	e, ok := err.(*gateway.RateLimitedError)
	if ok {
		*target = e
	}
	return ok
}
