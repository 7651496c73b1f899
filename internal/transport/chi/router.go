package chi

import (
	"net/http"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	logpkg "github.com/rx-radar/medsearch/internal/logger"
	"github.com/rx-radar/medsearch/internal/metrics"
)

// RouterConfig holds routing settings.
type RouterConfig struct {
	SearchPath    string
	AllowedOrigin string
	APIKeys       []string // guard /metrics; empty leaves it open
}

// NewRouter mounts the search, health and metrics routes with the standard middleware stack.
func NewRouter(s *Server, cfg RouterConfig, logger *zap.Logger) http.Handler {
	if cfg.SearchPath == "" {
		cfg.SearchPath = "/search"
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}

	r := chirouter.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(middleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	r.Group(func(r chirouter.Router) {
		r.Use(CORSMiddleware(cfg.AllowedOrigin))
		r.Post(cfg.SearchPath, s.Search)
		r.Options(cfg.SearchPath, PreflightHandler(cfg.AllowedOrigin))
	})

	r.Get("/health", s.Health)
	r.With(BearerAuthMiddleware(cfg.APIKeys)).Get("/metrics", s.Metrics)

	return r
}

// jsonRecoverer is a recovery middleware that returns the generic search error instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeJSON(w, http.StatusInternalServerError, statusBody{Status: "error", Message: msgInternal})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi middleware.RequestID already placed request_id in context
			requestID := middleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
