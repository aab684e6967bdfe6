package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// TickerMetadata describes the cached range for one ticker/timeframe pair.
type TickerMetadata struct {
	Ticker    string
	Timeframe types.Timeframe
	Start     time.Time
	End       time.Time
	BarCount  int
}

// BarStore is an in-memory cache of provider-fetched bars, refreshed on a
// per-ticker TTL rather than persisted to disk: the gateway is a stateless
// pass-through in front of the analysis core, not a data warehouse.
type BarStore struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	provider MarketDataProvider
	ttl      time.Duration

	cache     map[string][]types.Bar
	fetchedAt map[string]time.Time
	metadata  map[string]TickerMetadata
	tickers   []string
}

// NewBarStore wires a provider and a cache freshness window.
func NewBarStore(logger *zap.Logger, provider MarketDataProvider, ttl time.Duration) *BarStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &BarStore{
		logger:    logger.Named("barstore"),
		provider:  provider,
		ttl:       ttl,
		cache:     make(map[string][]types.Bar),
		fetchedAt: make(map[string]time.Time),
		metadata:  make(map[string]TickerMetadata),
	}
}

func cacheKey(ticker string, tf types.Timeframe) string {
	return fmt.Sprintf("%s_%s", ticker, tf)
}

// GetBars returns cached bars for ticker/tf, refetching from the provider
// when the cache is empty or past its TTL.
func (s *BarStore) GetBars(ctx context.Context, ticker string, tf types.Timeframe, window string) ([]types.Bar, error) {
	key := cacheKey(ticker, tf)

	s.mu.RLock()
	bars, ok := s.cache[key]
	fetchedAt := s.fetchedAt[key]
	s.mu.RUnlock()

	if ok && time.Since(fetchedAt) < s.ttl {
		return bars, nil
	}

	fresh, err := s.provider.GetBars(ctx, ticker, tf, window)
	if err != nil {
		if ok {
			s.logger.Warn("provider refresh failed, serving stale cache",
				zap.String("ticker", ticker), zap.Error(err))
			return bars, nil
		}
		return nil, err
	}

	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Time.Before(fresh[j].Time) })

	s.mu.Lock()
	s.cache[key] = fresh
	s.fetchedAt[key] = time.Now()
	seen := false
	for _, t := range s.tickers {
		if t == ticker {
			seen = true
			break
		}
	}
	if !seen {
		s.tickers = append(s.tickers, ticker)
	}
	if len(fresh) > 0 {
		s.metadata[key] = TickerMetadata{
			Ticker: ticker, Timeframe: tf,
			Start: fresh[0].Time, End: fresh[len(fresh)-1].Time, BarCount: len(fresh),
		}
	}
	s.mu.Unlock()

	return fresh, nil
}

// Tickers returns every ticker this store has ever fetched, in first-seen
// order.
func (s *BarStore) Tickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.tickers))
	copy(out, s.tickers)
	return out
}

// Metadata returns the cached range for ticker/tf, if any.
func (s *BarStore) Metadata(ticker string, tf types.Timeframe) (TickerMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metadata[cacheKey(ticker, tf)]
	return m, ok
}

// Invalidate drops the cached entry for ticker/tf, forcing the next
// GetBars to hit the provider.
func (s *BarStore) Invalidate(ticker string, tf types.Timeframe) {
	key := cacheKey(ticker, tf)
	s.mu.Lock()
	delete(s.cache, key)
	delete(s.fetchedAt, key)
	s.mu.Unlock()
}
