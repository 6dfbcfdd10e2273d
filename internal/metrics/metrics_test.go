package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectorsAreRegisteredAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CostUnitsConsumed.Add(42)
	m.FramesPushed.Inc()
	m.TransactionsTotal.WithLabelValues("committed").Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var found bool
	for _, f := range families {
		if f.GetName() == "radixkernel_cost_units_consumed_total" {
			found = true
			if got := f.Metric[0].Counter.GetValue(); got != 42 {
				t.Fatalf("cost units counter = %v, want 42", got)
			}
		}
	}
	if !found {
		t.Fatalf("expected radixkernel_cost_units_consumed_total to be registered")
	}
}
