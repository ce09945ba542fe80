package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	EventsIn.WithLabelValues("In").Add(3)
	if got := testutil.ToFloat64(EventsIn.WithLabelValues("In")); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}

func TestRegistryHasAllCollectors(t *testing.T) {
	mf, err := Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mf) == 0 {
		// metrics only appear once they have at least one label combination
		// recorded, so this is just a smoke check that Gather doesn't error.
		t.Log("no metric families recorded yet, which is fine before first use")
	}
}
