package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ruconnect/internal/client"
	"ruconnect/internal/platform/middleware"
	"ruconnect/pkg/domain"
	dErrors "ruconnect/pkg/domain-errors"
	"ruconnect/pkg/platform/httputil"
)

// Service defines the interface for client-registration operations.
type Service interface {
	Register(ctx context.Context, actor domain.UserID, input client.RegisterInput) (*client.Client, error)
	Get(ctx context.Context, id domain.ClientID) (*client.Client, error)
	List(ctx context.Context, filter client.ListFilter) ([]*client.Client, error)
	Update(ctx context.Context, actor domain.UserID, id domain.ClientID, input client.UpdateInput) (*client.Client, error)
	Deactivate(ctx context.Context, actor domain.UserID, id domain.ClientID) (*client.Client, error)
	Reactivate(ctx context.Context, actor domain.UserID, id domain.ClientID) (*client.Client, error)
}

// Handler wires client-registration endpoints to the client service.
// Every endpoint requires authentication.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a client handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterProtected mounts the client-registration endpoints.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/clients", h.HandleRegister)
	r.Get("/clients", h.HandleList)
	r.Get("/clients/{clientID}", h.HandleGet)
	r.Patch("/clients/{clientID}", h.HandleUpdate)
	r.Post("/clients/{clientID}/deactivate", h.HandleDeactivate)
	r.Post("/clients/{clientID}/reactivate", h.HandleReactivate)
}

// HandleRegister handles POST /clients requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actor := middleware.CurrentUserID(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterClientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Register(ctx, actor, client.RegisterInput{
		RUC:   req.RUC,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "client registration rejected",
			"request_id", requestID,
			"user_id", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "client registered",
		"request_id", requestID,
		"user_id", actor,
		"client_id", record.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromClient(record))
}

// HandleList handles GET /clients requests. Status, free-text query and
// paging come from query parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	filter := client.ListFilter{
		Status: client.ClientStatus(r.URL.Query().Get("status")),
		Query:  r.URL.Query().Get("q"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	records, err := h.service.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "client listing failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromClientList(records))
}

// HandleGet handles GET /clients/{clientID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	id, err := domain.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Get(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "client lookup failed",
			"request_id", requestID,
			"client_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromClient(record))
}

// HandleUpdate handles PATCH /clients/{clientID} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actor := middleware.CurrentUserID(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	id, err := domain.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateClientRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Update(ctx, actor, id, client.UpdateInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "client update rejected",
			"request_id", requestID,
			"user_id", actor,
			"client_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "client updated",
		"request_id", requestID,
		"user_id", actor,
		"client_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, FromClient(record))
}

// HandleDeactivate handles POST /clients/{clientID}/deactivate requests.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "deactivated", h.service.Deactivate)
}

// HandleReactivate handles POST /clients/{clientID}/reactivate requests.
func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reactivated", h.service.Reactivate)
}

func (h *Handler) transition(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	apply func(ctx context.Context, actor domain.UserID, id domain.ClientID) (*client.Client, error),
) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	actor := middleware.CurrentUserID(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	id, err := domain.ParseClientID(chi.URLParam(r, "clientID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := apply(ctx, actor, id)
	if err != nil {
		h.logger.WarnContext(ctx, "client status change rejected",
			"request_id", requestID,
			"user_id", actor,
			"client_id", id,
			"action", action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "client "+action,
		"request_id", requestID,
		"user_id", actor,
		"client_id", id,
	)
	httputil.WriteJSON(w, http.StatusOK, FromClient(record))
}

// queryInt parses an integer query parameter, treating absent or
// malformed values as zero. The service clamps ranges.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
