package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"inkframe/internal/utils"

	"github.com/lithammer/shortuuid/v4"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger tags each request with a short ID, logs it on
// completion and feeds the request/error counters.
func RequestLogger(metrics *utils.MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			requestID := shortuuid.New()

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			metrics.IncrementRequests()
			if recorder.status >= 500 {
				metrics.IncrementErrors()
			}

			slog.Info("request",
				"id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(startTime).Round(time.Microsecond),
			)
		})
	}
}
