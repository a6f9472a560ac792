package mongo

import (
	"context"
	"time"
)

// Status summarizes connection health.
type Status string

const (
	// StatusHealthy means the round-trip probe succeeded on a connected handle.
	StatusHealthy Status = "healthy"
	// StatusDegraded means the connection is being established or re-established.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy means the connection is down or the probe failed.
	StatusUnhealthy Status = "unhealthy"
)

// HealthReport is the result of one health probe. Created fresh on every
// check and discarded after serialization; never persisted.
type HealthReport struct {
	Status     Status    `json:"status"`
	LatencyMs  int64     `json:"latencyMs"`
	ReadyState string    `json:"readyState"`
	CheckedAt  time.Time `json:"checkedAt"`
	Err        *ClassifiedError
}

// CheckHealth issues a trivial round-trip command against the handle's
// server and measures wall-clock latency. A nil handle probes the manager's
// cached connection for the default database. CheckHealth never returns an
// error: failures are classified and embedded in an unhealthy report.
func (m *Manager) CheckHealth(ctx context.Context, h *Handle) HealthReport {
	report := HealthReport{CheckedAt: time.Now()}

	if h == nil {
		m.mu.RLock()
		h = m.handles[m.cfg.DBName]
		m.mu.RUnlock()
	}
	if h == nil {
		report.Status = StatusUnhealthy
		report.ReadyState = StateDisconnected.String()
		report.Err = newClassified(KindConnectionFailed, "no connection has been established", ErrNotConnected)
		return report
	}

	report.ReadyState = h.State().String()

	if h.Synthetic() {
		report.Status = StatusHealthy
		return report
	}

	switch h.State() {
	case StateConnecting, StateDisconnecting:
		report.Status = StatusDegraded
		return report
	case StateDisconnected, StateError:
		report.Status = StatusUnhealthy
		report.Err = newClassified(KindConnectionFailed, "connection is not established", ErrNotConnected)
		return report
	}

	start := time.Now()
	err := h.conn.Ping(ctx)
	report.LatencyMs = time.Since(start).Milliseconds()
	m.meter.HealthProbe(time.Since(start))

	if err != nil {
		// A failed probe poisons the handle so the next acquisition opens a
		// fresh connecting cycle instead of reusing a dead connection.
		h.setState(StateError)
		report.Status = StatusUnhealthy
		report.ReadyState = h.State().String()
		report.Err = Classify(err)
		return report
	}

	h.touch()
	report.Status = StatusHealthy
	return report
}

// DatabaseHealth is the caller-facing convenience combining acquisition and
// probing under the configured health ceiling. The ceiling is distinct from
// connection timeouts: a slow probe reports unhealthy instead of blocking
// the calling request.
func (m *Manager) DatabaseHealth(ctx context.Context) HealthReport {
	ceiling := m.cfg.HealthTimeout
	if ceiling <= 0 {
		ceiling = 5 * time.Second
	}

	probeCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	done := make(chan HealthReport, 1)
	go func() {
		h, err := m.Acquire(probeCtx)
		if err != nil {
			done <- HealthReport{
				Status:     StatusUnhealthy,
				ReadyState: StateError.String(),
				CheckedAt:  time.Now(),
				Err:        Classify(err),
			}
			return
		}
		done <- m.CheckHealth(probeCtx, h)
	}()

	select {
	case report := <-done:
		return report
	case <-probeCtx.Done():
		return HealthReport{
			Status:     StatusUnhealthy,
			ReadyState: StateConnecting.String(),
			CheckedAt:  time.Now(),
			Err:        newClassified(KindConnectionTimeout, "health check timed out", ErrHealthcheckTimeout),
		}
	}
}
