package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollectorWithRegistry_Isolated(t *testing.T) {
	// Two collectors on separate registries must not collide
	a := NewCollectorWithRegistry("climate_test", prometheus.NewRegistry())
	b := NewCollectorWithRegistry("climate_test", prometheus.NewRegistry())

	a.RecordAPIRequest("/api/v1.0/stations", "GET", "200")

	if got := testutil.ToFloat64(a.APIRequestsTotal.WithLabelValues("/api/v1.0/stations", "GET", "200")); got != 1 {
		t.Errorf("collector a requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.APIRequestsTotal.WithLabelValues("/api/v1.0/stations", "GET", "200")); got != 0 {
		t.Errorf("collector b requests = %v, want 0", got)
	}
}

func TestRecordQuery(t *testing.T) {
	c := NewCollectorWithRegistry("climate_test", prometheus.NewRegistry())

	c.RecordQuery("temperature_stats", nil)
	c.RecordQuery("temperature_stats", nil)
	c.RecordQuery("temperature_stats", errors.New("store down"))

	if got := testutil.ToFloat64(c.QueriesTotal.WithLabelValues("temperature_stats", "success")); got != 2 {
		t.Errorf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.QueriesTotal.WithLabelValues("temperature_stats", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestUpdateDBConnectionPool(t *testing.T) {
	c := NewCollectorWithRegistry("climate_test", prometheus.NewRegistry())

	c.UpdateDBConnectionPool(2, 3, 5)

	want := map[string]float64{"in_use": 2, "idle": 3, "total": 5}
	for state, v := range want {
		if got := testutil.ToFloat64(c.DBConnectionPool.WithLabelValues(state)); got != v {
			t.Errorf("pool %s = %v, want %v", state, got, v)
		}
	}
}

func TestTimer_ObserveDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWithRegistry("climate_test", reg)

	timer := c.NewTimer(c.QueryDuration.WithLabelValues("stations"))
	if d := timer.ObserveDuration(); d < 0 {
		t.Errorf("duration = %v, want >= 0", d)
	}

	if n := testutil.CollectAndCount(c.QueryDuration); n != 1 {
		t.Errorf("query duration series = %d, want 1", n)
	}
}
