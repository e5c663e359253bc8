package observe

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestAuthMetrics(t *testing.T) (AuthMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewAuthMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewAuthMetrics() error: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name in ResourceMetrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumByAttr totals an int64 sum's data points whose attribute key equals value.
func sumByAttr(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestAuthMetrics_RecordDecision(t *testing.T) {
	m, reader := newTestAuthMetrics(t)
	ctx := context.Background()

	m.RecordDecision(ctx, "GET /api/user/me", "allow")
	m.RecordDecision(ctx, "GET /api/admin/users", "forbidden")
	m.RecordDecision(ctx, "GET /api/admin/users", "forbidden")
	m.RecordDecision(ctx, "GET /api/user/me", "unauthorized")

	found := findMetric(collect(t, reader), "auth.decisions")
	if found == nil {
		t.Fatal("auth.decisions metric not found")
	}
	if got := sumByAttr(t, found, "auth.decision", "forbidden"); got != 2 {
		t.Errorf("forbidden = %d, want 2", got)
	}
	if got := sumByAttr(t, found, "http.route", "GET /api/user/me"); got != 2 {
		t.Errorf("user route = %d, want 2", got)
	}
}

func TestAuthMetrics_RecordVerification(t *testing.T) {
	m, reader := newTestAuthMetrics(t)
	ctx := context.Background()

	for _, outcome := range []string{"valid", "valid", "expired", "absent"} {
		m.RecordVerification(ctx, outcome)
	}

	found := findMetric(collect(t, reader), "auth.verifications")
	if found == nil {
		t.Fatal("auth.verifications metric not found")
	}
	if got := sumByAttr(t, found, "auth.outcome", "valid"); got != 2 {
		t.Errorf("valid = %d, want 2", got)
	}
	if got := sumByAttr(t, found, "auth.outcome", "expired"); got != 1 {
		t.Errorf("expired = %d, want 1", got)
	}
}

func TestAuthMetrics_RecordLogin(t *testing.T) {
	m, reader := newTestAuthMetrics(t)

	m.RecordLogin(context.Background(), "invalid_credentials", 120*time.Millisecond)

	rm := collect(t, reader)
	counter := findMetric(rm, "auth.logins")
	if counter == nil {
		t.Fatal("auth.logins metric not found")
	}
	if got := sumByAttr(t, counter, "auth.outcome", "invalid_credentials"); got != 1 {
		t.Errorf("invalid_credentials = %d, want 1", got)
	}

	hist := findMetric(rm, "auth.login.duration_ms")
	if hist == nil {
		t.Fatal("auth.login.duration_ms metric not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	if len(h.DataPoints) != 1 || h.DataPoints[0].Sum != 120 {
		t.Errorf("unexpected histogram data: %+v", h.DataPoints)
	}
}

func TestAuthMetrics_ConcurrentRecording(t *testing.T) {
	m, reader := newTestAuthMetrics(t)

	const numGoroutines = 100
	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordVerification(context.Background(), "valid")
		}()
	}
	wg.Wait()

	found := findMetric(collect(t, reader), "auth.verifications")
	if found == nil {
		t.Fatal("auth.verifications metric not found")
	}
	if got := sumByAttr(t, found, "auth.outcome", "valid"); got != numGoroutines {
		t.Errorf("expected count %d, got %d", numGoroutines, got)
	}
}
