package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guardian/panda-go/internal/logging"
	"github.com/guardian/panda-go/internal/panda"
)

// Handler serves the sidecar's HTTP endpoints.
type Handler struct {
	verifier Verifier
	gatherer prometheus.Gatherer
	logger   logging.Logger
}

// New creates a Handler. A nil gatherer serves the default registry.
func New(verifier Verifier, gatherer prometheus.Gatherer, logger logging.Logger) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{
		verifier: verifier,
		gatherer: gatherer,
		logger:   logger.With("module", "httpx"),
	}
}

// Router returns the chi router with every endpoint registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	r.Get("/verify", h.handleVerify)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.verifier, h.logger))
		r.Get("/whoami", h.handleWhoAmI)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleVerify reports the verification result for the request's cookies.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := GetRequestID(ctx)

	result, err := h.verifier.Verify(ctx, r.Header.Get("Cookie"))
	if err != nil {
		if !errors.Is(err, panda.ErrKeyUnavailable) {
			h.logger.Error(ctx, "unexpected verification error", "error", err, "request_id", requestID)
		}
		writeKeyUnavailable(w)
		return
	}

	setRefreshHeader(w, result)
	if err := writeJSON(w, StatusFor(result), NewResultView(result)); err != nil {
		h.logger.Error(ctx, "failed to write verify response", "error", err, "request_id", requestID)
	}
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := GetUser(ctx)
	if !ok {
		h.logger.Error(ctx, "user missing from context despite auth middleware",
			"request_id", GetRequestID(ctx),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	if err := writeJSON(w, http.StatusOK, user); err != nil {
		h.logger.Error(ctx, "failed to write whoami response", "error", err)
	}
}
