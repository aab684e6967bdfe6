package gateway_test

import (
	"testing"

	"github.com/songzhiyuan98/klinelens-go/internal/gateway"
)

func TestMetricsIndependentRegistries(t *testing.T) {
	a := gateway.NewMetrics()
	b := gateway.NewMetrics()

	a.RequestsTotal.WithLabelValues("/api/v1/health", "2xx").Inc()

	familiesA, err := a.Registry().Gather()
	if err != nil {
		t.Fatalf("a.Registry().Gather() error: %v", err)
	}
	familiesB, err := b.Registry().Gather()
	if err != nil {
		t.Fatalf("b.Registry().Gather() error: %v", err)
	}

	if len(familiesA) == 0 {
		t.Fatal("expected at least one metric family registered on a")
	}
	if len(familiesB) == 0 {
		t.Fatal("expected at least one metric family registered on b (gauges/histograms register at construction)")
	}

	for _, f := range familiesA {
		if f.GetName() == "gateway_requests_total" {
			return
		}
	}
	t.Fatal("gateway_requests_total not found in a's gathered families")
}
