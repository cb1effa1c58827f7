package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"procurement-flow/internal/app"
	"procurement-flow/internal/metrics"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Options configure NewHandler. Metrics and Logger are optional.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	logger    *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := &Handler{svc: svc, jwtSecret: opts.JWTSecret, logger: opts.Logger}

	var observe func(string, string, int, time.Duration)
	if opts.Metrics != nil {
		observe = opts.Metrics.ObserveHTTP
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(opts.Logger, observe))
	r.Use(Recoverer(opts.Logger))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ──────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	// ── Protected API routes (401 JSON if unauthenticated) ─────────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Catalog
		r.Get("/api/suppliers", h.apiListSuppliers)
		r.Post("/api/suppliers", h.apiCreateSupplier)
		r.Get("/api/materials", h.apiListMaterials)
		r.Post("/api/materials", h.apiCreateMaterial)
		r.Get("/api/materials/{id}", h.apiGetMaterial)
		r.Post("/api/materials/{id}/conversions", h.apiSetUnitConversion)
		r.Get("/api/option-groups", h.apiListOptionGroups)
		r.Post("/api/option-groups", h.apiCreateOptionGroup)
		r.Post("/api/option-groups/{id}/options", h.apiCreateOption)
		r.Get("/api/options", h.apiOptionCatalog)

		// Settings
		r.Get("/api/settings/{key}", h.apiGetSetting)
		r.Put("/api/settings/{key}", h.apiPutSetting)

		// Ordering tokens
		r.Get("/api/ordering-tokens", h.apiListOrderingTokens)
		r.Post("/api/ordering-tokens", h.apiIssueOrderingToken)
		r.Post("/api/ordering-tokens/{id}/enabled", h.apiSetOrderingTokenEnabled)
		r.Post("/api/ordering/scan", h.apiScanOrder)

		// Purchase orders
		r.Get("/api/purchase-orders", h.apiListPurchaseOrders)
		r.Post("/api/purchase-orders", h.apiPlaceOrder)
		r.Get("/api/purchase-orders/{id}", h.apiGetPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/approved", h.apiApproved)
		r.Post("/api/purchase-orders/{id}/cancel", h.apiCancelPurchaseOrder)
		r.Post("/api/purchase-orders/{id}/recompute", h.apiRecomputeTotals)
		r.Post("/api/purchase-orders/{id}/receivings", h.apiReceive)
		r.Post("/api/purchase-order-items/{id}/cancel", h.apiCancelItem)
		r.Put("/api/purchase-order-items/{id}/expected-date", h.apiUpdateExpectedDate)

		r.Get("/api/dashboard", h.apiDashboard)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter, writing 400 when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty means no date.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dateField parses a date body field, writing 400 on failure.
func dateField(w http.ResponseWriter, r *http.Request, field, s string) (*time.Time, bool) {
	t, err := parseDate(s)
	if err != nil {
		writeError(w, r, field+": expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	return t, true
}
