package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// quietPaths are polled by orchestrators and scrapers; their requests are
// logged at debug level.
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// Middleware logs one line per request once it is served. The request logger
// (request id, method, path) is stored in the request context for handlers.
// When chi matched a route, the line carries the route pattern and the job
// id taken from the {id} URL parameter.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLogger := &CtxLogger{logger.WithFields(map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})}

			next.ServeHTTP(ww, r.WithContext(reqLogger.WithContext(r.Context())))

			fields := map[string]interface{}{
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
				if id := rctx.URLParam("id"); id != "" {
					fields["job_id"] = id
				}
			}

			done := reqLogger.WithFields(fields)
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				done.Error("Request failed")
			case quietPaths[r.URL.Path]:
				done.Debug("Request served")
			default:
				done.Info("Request served")
			}
		})
	}
}
