package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ruconnect/internal/platform/metrics"
	"ruconnect/internal/platform/middleware"
	"ruconnect/pkg/platform/httputil"
	"ruconnect/pkg/ruc"
)

// ValidationHandler serves standalone RUC validation, so a client can
// give field-level feedback before submitting a registration. The
// endpoint is public: it discloses nothing but arithmetic.
type ValidationHandler struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewValidationHandler(m *metrics.Metrics, logger *slog.Logger) *ValidationHandler {
	return &ValidationHandler{metrics: m, logger: logger}
}

// Register mounts the validation endpoints.
func (h *ValidationHandler) Register(r chi.Router) {
	r.Post("/validation/ruc", h.HandleValidateRUC)
}

// ValidateRUCRequest is the payload for POST /validation/ruc.
type ValidateRUCRequest struct {
	RUC string `json:"ruc"`
}

// ValidateRUCResponse reports the verdict. Message carries the first
// violated rule, phrased for direct display, and is absent when valid.
type ValidateRUCResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// HandleValidateRUC handles POST /validation/ruc requests.
func (h *ValidationHandler) HandleValidateRUC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ValidateRUCRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	violation := ruc.Check(req.RUC)
	h.metrics.IncrementRUCValidation(violation.String())

	resp := ValidateRUCResponse{Valid: violation == ruc.ViolationNone}
	if !resp.Valid {
		resp.Message = violation.Message()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
