package health

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"runtime/debug"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap share of MaxAlloc that reports degraded.
	// Between 0 and 1. Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the heap share of MaxAlloc that reports unhealthy.
	// Between 0 and 1. Default: 0.95
	CriticalThreshold float64

	// MaxAlloc is the heap budget in bytes. Zero uses GOMEMLIMIT when one is
	// set and the memory obtained from the OS otherwise.
	MaxAlloc uint64
}

// MemoryChecker reports heap usage against a budget. The in-memory user
// store and the per-client login limiter both grow with traffic, so a heap
// near its limit is the first sign the process is about to fall over.
type MemoryChecker struct {
	config    MemoryCheckerConfig
	readStats func(*runtime.MemStats)
}

// NewMemoryChecker creates a memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	return &MemoryChecker{config: config, readStats: runtime.ReadMemStats}
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check compares the live heap against the budget.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	var stats runtime.MemStats
	m.readStats(&stats)

	budget := m.budget(stats.Sys)
	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"heap_sys_bytes":   stats.HeapSys,
		"budget_bytes":     budget,
		"num_gc":           stats.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}
	if budget == 0 {
		return Healthy("memory stats unavailable").WithDetails(details)
	}

	ratio := float64(stats.HeapAlloc) / float64(budget)
	details["usage_percent"] = ratio * 100

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("memory usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("memory usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("memory usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}

func (m *MemoryChecker) budget(sys uint64) uint64 {
	if m.config.MaxAlloc > 0 {
		return m.config.MaxAlloc
	}
	// A negative argument reads the limit without changing it.
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit != math.MaxInt64 {
		return uint64(limit)
	}
	return sys
}
