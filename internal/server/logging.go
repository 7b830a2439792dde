package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/telhawk-systems/debugconsole/internal/httputil"
	"github.com/telhawk-systems/debugconsole/internal/logging"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// logRequests writes one access log line per request. Health and metrics
// probes log at debug, server errors at error.
func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		level := slog.LevelInfo
		switch {
		case sw.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case r.URL.Path == "/healthz" || r.URL.Path == "/metrics":
			level = slog.LevelDebug
		}
		logger.LogAttrs(r.Context(), level, "request completed",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.Status(sw.status),
			logging.Duration(time.Since(start).Milliseconds()),
			logging.ClientIP(httputil.GetClientIP(r)),
		)
	})
}
