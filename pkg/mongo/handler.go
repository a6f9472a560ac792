package mongo

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/subtrackapp/subtrack/pkg/logger"
)

// healthResponse is the wire shape of the health endpoint. Raw causes never
// appear here; only the classified kind and user-safe message do.
type healthResponse struct {
	Status     Status    `json:"status"`
	LatencyMs  int64     `json:"latencyMs"`
	ReadyState string    `json:"readyState"`
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
	Code       string    `json:"code,omitempty"`
}

// HealthHandler returns an HTTP handler reporting database health as
// structured JSON: 200 when healthy, 503 with a Retry-After header
// otherwise. Suitable for readiness probes and status pages.
func HealthHandler(m *Manager, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := m.DatabaseHealth(r.Context())

		resp := healthResponse{
			Status:     report.Status,
			LatencyMs:  report.LatencyMs,
			ReadyState: report.ReadyState,
			Timestamp:  report.CheckedAt,
		}

		status := http.StatusOK
		if report.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
			w.Header().Set("Retry-After", "5")
			if report.Err != nil {
				resp.Error = report.Err.Message
				resp.Code = string(report.Err.Kind)
				log.ErrorContext(r.Context(), "database health check failed",
					logger.Component("mongo"),
					slog.Any("error", report.Err),
				)
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// LivenessHandler returns a trivial 200 handler for liveness probes. It
// deliberately checks nothing: a live process that lost its database must
// fail readiness, not liveness.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	}
}
