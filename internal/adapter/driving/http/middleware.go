package httphandler

import (
	"log/slog"
	"net/http"
	"time"
)

// responseRecorder captures the status code a handler writes so the request
// log can report it.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *responseRecorder) WriteHeader(status int) {
	rr.status = status
	rr.ResponseWriter.WriteHeader(status)
}

// withRequestLog logs one line per request. Hub callback traffic also carries
// hub.mode: subscribe and unsubscribe confirmations share the /pubsub path
// and are indistinguishable in the log without it.
func withRequestLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Microsecond),
		}
		if mode := r.URL.Query().Get("hub.mode"); mode != "" {
			attrs = append(attrs, "hub_mode", mode)
		}

		logger.Info("http request", attrs...)
	})
}

// withRecovery turns a handler panic into a logged 500 instead of a dropped
// connection.
func withRecovery(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logger.Error("handler panicked",
					"path", r.URL.Path,
					"panic", v,
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
