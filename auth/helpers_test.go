package auth

import (
	"context"
	"sync"
	"time"
)

// recordingMetrics captures AuthMetrics calls.
type recordingMetrics struct {
	mu            sync.Mutex
	decisions     []string
	verifications []string
	logins        []string
}

func (m *recordingMetrics) RecordDecision(_ context.Context, route, decision string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, route+" "+decision)
}

func (m *recordingMetrics) RecordVerification(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, outcome)
}

func (m *recordingMetrics) RecordLogin(_ context.Context, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, outcome)
}

func identity(principal string, roles ...string) *Identity {
	return &Identity{Principal: principal, Roles: NewRoles(roles...)}
}
