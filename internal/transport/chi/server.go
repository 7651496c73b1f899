package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rx-radar/medsearch/internal/domain"
	"github.com/rx-radar/medsearch/internal/domain/search/request"
	logpkg "github.com/rx-radar/medsearch/internal/logger"
	"github.com/rx-radar/medsearch/internal/metrics"
	"github.com/rx-radar/medsearch/internal/version"
	healthuc "github.com/rx-radar/medsearch/internal/usecase/health"
	searchuc "github.com/rx-radar/medsearch/internal/usecase/search"
)

// Client-facing messages.
const (
	msgShowPayment     = "Request is valid show payment"
	msgDontShowPayment = "Request is valid dont show payment"
	msgInternal        = "An error occurred during the search"
	msgUnauthorized    = "Unauthorized"
	msgRateLimited     = "User searched too many times"
	msgBodyTooLarge    = "request body is too large"
)

const defaultMaxBodyBytes = 64 << 10

// statusBody is the {"status":"error","message":...} shape used for validation and internal errors.
type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// errorBody is the {"error":...} shape used for auth and rate-limit rejections.
type errorBody struct {
	Error string `json:"error"`
}

// messageBody is the success shape.
type messageBody struct {
	Message string `json:"message"`
}

type healthBody struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, r *http.Request, err error) bool

// Server serves the search endpoint and operational routes.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	maxBodyBytes  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		search:       search,
		health:       health,
		logger:       logger,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrUnauthorized, "unauthorized", http.StatusUnauthorized, errorBody{Error: msgUnauthorized}),
		sentinelHandler(domain.ErrRateLimited, "rate_limited", http.StatusBadRequest, errorBody{Error: msgRateLimited}),
	}
	return s
}

// WithMaxBodyBytes caps the accepted search body size.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBodyBytes = n
	}
	return s
}

// Search handles POST on the search path.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.SearchRejectionsTotal.WithLabelValues("validation").Inc()
			writeJSON(w, http.StatusRequestEntityTooLarge, statusBody{Status: "error", Message: msgBodyTooLarge})
			return
		}
		// a truncated body is indistinguishable from a malformed one
		body = nil
	}

	payload, err := request.Parse(body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	out, err := s.search.Submit(r.Context(), payload)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	logpkg.FromContext(r.Context()).Info("search request stored",
		zap.String("search_request_uuid", out.RequestID),
		zap.String("user_uuid", out.UserUUID),
		zap.String("destination", string(out.Destination)),
		zap.Bool("new_user", out.NewUser),
	)

	msg := msgDontShowPayment
	if out.ShowPayment() {
		msg = msgShowPayment
	}
	writeJSON(w, http.StatusOK, messageBody{Message: msg})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthBody{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// validationHandler answers *domain.ValidationError with its client message.
func validationHandler(w http.ResponseWriter, r *http.Request, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	metrics.SearchRejectionsTotal.WithLabelValues("validation").Inc()
	logpkg.FromContext(r.Context()).Info("search request rejected",
		zap.String("field", ve.Field), zap.String("reason", ve.Message))
	writeJSON(w, http.StatusBadRequest, statusBody{Status: "error", Message: ve.Message})
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, reason string, status int, body any) errorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		metrics.SearchRejectionsTotal.WithLabelValues(reason).Inc()
		logpkg.FromContext(r.Context()).Warn("search request rejected", zap.String("reason", reason), zap.Error(err))
		writeJSON(w, status, body)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range s.errorHandlers {
		if h(w, r, err) {
			return
		}
	}

	s.logger.Error("internal error",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
		zap.Bool("storage_unavailable", errors.Is(err, domain.ErrStorageUnavailable)),
		zap.Bool("data_integrity", errors.Is(err, domain.ErrDataIntegrity)),
	)
	metrics.SearchRejectionsTotal.WithLabelValues("internal").Inc()
	writeJSON(w, http.StatusInternalServerError, statusBody{Status: "error", Message: msgInternal})
}
