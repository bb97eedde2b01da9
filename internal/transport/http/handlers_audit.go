package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ruconnect/internal/audit"
	"ruconnect/internal/platform/middleware"
	"ruconnect/pkg/domain"
	dErrors "ruconnect/pkg/domain-errors"
	"ruconnect/pkg/platform/httputil"
)

// AuditService defines the interface for audit trail queries.
type AuditService interface {
	ListByActor(ctx context.Context, actor domain.UserID, limit int) ([]audit.Event, error)
}

// AuditHandler serves the caller's own audit trail.
type AuditHandler struct {
	service AuditService
	logger  *slog.Logger
}

func NewAuditHandler(service AuditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{service: service, logger: logger}
}

// RegisterProtected mounts the audit endpoints.
func (h *AuditHandler) RegisterProtected(r chi.Router) {
	r.Get("/audit", h.HandleList)
}

// AuditListResponse is the HTTP response for GET /audit.
type AuditListResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

// HandleList handles GET /audit requests, returning the current user's
// recent events newest first.
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actor := middleware.CurrentUserID(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.service.ListByActor(ctx, actor, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit listing failed",
			"request_id", requestID,
			"user_id", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, AuditListResponse{Events: events, Count: len(events)})
}
