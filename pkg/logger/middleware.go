package logger

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/screwyprof/stakecart/pkg/httpkit"
)

// responseWriter captures the status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytesOut   int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.bytesOut += size
	return size, err
}

// NewMiddleware creates HTTP request logging middleware.
// Server errors are logged at error level, client errors at warn level.
func NewMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			r = r.WithContext(httpkit.WithErrorTracking(r.Context()))
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.Int("status", rw.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int("bytes_in", max(0, int(r.ContentLength))),
				slog.Int("bytes_out", rw.bytesOut),
			}
			if err := httpkit.Error(r.Context()); err != nil {
				attrs = append(attrs, slog.String("error", errorMessage(err)))
			}

			logger.LogAttrs(r.Context(), levelFor(rw.statusCode), "HTTP", attrs...)
		})
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// errorMessage prefers the detailed cause of HTTP errors
func errorMessage(err error) string {
	var httpErr httpkit.HTTPError
	if errors.As(err, &httpErr) && httpErr.Cause() != nil {
		return httpErr.Cause().Error()
	}
	return err.Error()
}
