package health

import (
	"context"
	"runtime"
	"testing"
)

func TestNewMemoryChecker(t *testing.T) {
	tests := []struct {
		name         string
		config       MemoryCheckerConfig
		wantWarning  float64
		wantCritical float64
	}{
		{"defaults", MemoryCheckerConfig{}, 0.8, 0.95},
		{"custom", MemoryCheckerConfig{WarningThreshold: 0.7, CriticalThreshold: 0.9}, 0.7, 0.9},
		{"warning out of range", MemoryCheckerConfig{WarningThreshold: 1.5}, 0.8, 0.95},
		{"critical below warning", MemoryCheckerConfig{WarningThreshold: 0.9, CriticalThreshold: 0.7}, 0.9, 0.99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewMemoryChecker(tt.config).config
			if cfg.WarningThreshold != tt.wantWarning {
				t.Errorf("WarningThreshold = %v, want %v", cfg.WarningThreshold, tt.wantWarning)
			}
			if cfg.CriticalThreshold < tt.wantCritical-1e-9 || cfg.CriticalThreshold > tt.wantCritical+1e-9 {
				t.Errorf("CriticalThreshold = %v, want %v", cfg.CriticalThreshold, tt.wantCritical)
			}
		})
	}
}

func TestMemoryChecker_Thresholds(t *testing.T) {
	tests := []struct {
		heap uint64
		want Status
	}{
		{heap: 100, want: StatusHealthy},
		{heap: 850, want: StatusDegraded},
		{heap: 990, want: StatusUnhealthy},
	}
	for _, tt := range tests {
		m := NewMemoryChecker(MemoryCheckerConfig{MaxAlloc: 1000})
		m.readStats = func(s *runtime.MemStats) { s.HeapAlloc = tt.heap }

		got := m.Check(context.Background())
		if got.Status != tt.want {
			t.Errorf("heap %d: status = %v, want %v (%s)", tt.heap, got.Status, tt.want, got.Message)
		}
		if got.Details["budget_bytes"] != uint64(1000) {
			t.Errorf("budget_bytes = %v, want 1000", got.Details["budget_bytes"])
		}
	}
}

func TestMemoryChecker_Live(t *testing.T) {
	m := NewMemoryChecker(MemoryCheckerConfig{})
	if m.Name() != "memory" {
		t.Errorf("Name() = %q, want memory", m.Name())
	}

	result := m.Check(context.Background())
	for _, key := range []string{"heap_alloc_bytes", "budget_bytes", "num_gc", "goroutines"} {
		if _, ok := result.Details[key]; !ok {
			t.Errorf("Details missing key %q", key)
		}
	}
}

func TestMemoryChecker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := NewMemoryChecker(MemoryCheckerConfig{}).Check(ctx); got.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", got.Status)
	}
}
