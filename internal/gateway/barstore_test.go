package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/songzhiyuan98/klinelens-go/internal/gateway"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

type fakeProvider struct {
	name  string
	bars  []types.Bar
	err   error
	calls int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) GetBars(ctx context.Context, ticker string, tf types.Timeframe, window string) ([]types.Bar, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.bars, nil
}

func barsAt(times ...time.Time) []types.Bar {
	bars := make([]types.Bar, len(times))
	for i, tm := range times {
		bars[i] = types.Bar{Time: tm, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}
	}
	return bars
}

func TestBarStoreFetchesOnceWithinTTL(t *testing.T) {
	provider := &fakeProvider{name: "fake", bars: barsAt(time.Now())}
	store := gateway.NewBarStore(zap.NewNop(), provider, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := store.GetBars(context.Background(), "QQQ", types.Timeframe1m, ""); err != nil {
			t.Fatalf("GetBars error: %v", err)
		}
	}
	if provider.calls != 1 {
		t.Errorf("provider.calls = %d, want 1", provider.calls)
	}
}

func TestBarStoreServesStaleOnProviderError(t *testing.T) {
	provider := &fakeProvider{name: "fake", bars: barsAt(time.Now())}
	store := gateway.NewBarStore(zap.NewNop(), provider, time.Nanosecond)

	if _, err := store.GetBars(context.Background(), "QQQ", types.Timeframe1m, ""); err != nil {
		t.Fatalf("first GetBars error: %v", err)
	}

	provider.err = errors.New("provider down")
	bars, err := store.GetBars(context.Background(), "QQQ", types.Timeframe1m, "")
	if err != nil {
		t.Fatalf("GetBars with stale fallback error: %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("len(bars) = %d, want 1 (stale)", len(bars))
	}
}

func TestBarStorePropagatesErrorWithoutCache(t *testing.T) {
	provider := &fakeProvider{name: "fake", err: errors.New("provider down")}
	store := gateway.NewBarStore(zap.NewNop(), provider, time.Minute)

	if _, err := store.GetBars(context.Background(), "QQQ", types.Timeframe1m, ""); err == nil {
		t.Fatal("expected error with no cache to fall back to")
	}
}

func TestBarStoreSortsAndRecordsMetadata(t *testing.T) {
	now := time.Now()
	provider := &fakeProvider{name: "fake", bars: barsAt(now.Add(time.Minute), now)}
	store := gateway.NewBarStore(zap.NewNop(), provider, time.Minute)

	bars, err := store.GetBars(context.Background(), "QQQ", types.Timeframe1m, "")
	if err != nil {
		t.Fatalf("GetBars error: %v", err)
	}
	if !bars[0].Time.Before(bars[1].Time) {
		t.Fatal("bars not sorted ascending by time")
	}

	meta, ok := store.Metadata("QQQ", types.Timeframe1m)
	if !ok {
		t.Fatal("expected metadata to be recorded")
	}
	if meta.BarCount != 2 {
		t.Errorf("BarCount = %d, want 2", meta.BarCount)
	}
}
