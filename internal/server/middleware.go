package server

import (
	"net/http"
	"time"

	"shopwhiz/internal/common/logger"

	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger echoes the request id and writes one structured line per request.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			if id := middleware.GetReqID(r.Context()); id != "" {
				ww.Header().Set(middleware.RequestIDHeader, id)
			}

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := map[string]interface{}{
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     status,
					"bytes":      ww.BytesWritten(),
					"durationMs": time.Since(start).Milliseconds(),
					"requestId":  middleware.GetReqID(r.Context()),
				}
				if status >= http.StatusInternalServerError {
					log.Error("request failed", fields)
					return
				}
				log.Info("request completed", fields)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
