package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/subtrackapp/subtrack/pkg/logger"
)

// ReadinessHandler runs every dependency check and reports 200 READY when all
// of them pass. Any failure produces 503 NOT_READY with a Retry-After hint so
// orchestrators pull the instance out of rotation and probe again shortly.
// With no checks supplied the handler degrades to a liveness probe.
func ReadinessHandler(log *slog.Logger, checks ...func(*http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, check := range checks {
			if err := check(r); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				w.Header().Set("Retry-After", "5")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
