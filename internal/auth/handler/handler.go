package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ruconnect/internal/auth"
	"ruconnect/internal/platform/middleware"
	"ruconnect/pkg/domain"
	dErrors "ruconnect/pkg/domain-errors"
	"ruconnect/pkg/platform/httputil"
)

// Service defines the interface for account and session operations.
type Service interface {
	Register(ctx context.Context, username, password, name string) (*auth.User, error)
	Login(ctx context.Context, username, password, userAgent string) (*auth.LoginResult, error)
	Logout(ctx context.Context, userID domain.UserID, sessionID domain.SessionID, tokenID string) error
	Sessions(ctx context.Context, userID domain.UserID, currentSessionID domain.SessionID) (*auth.SessionsResult, error)
	RevokeSession(ctx context.Context, userID domain.UserID, sessionID domain.SessionID) error
	GetUser(ctx context.Context, userID domain.UserID) (*auth.User, error)
}

// Handler wires account endpoints to the auth service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an auth handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the endpoints that work without a bearer token.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterProtected mounts the endpoints that require authentication.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/me", h.HandleMe)
	r.Get("/auth/sessions", h.HandleSessions)
	r.Delete("/auth/sessions/{sessionID}", h.HandleRevokeSession)
}

// HandleRegister handles POST /auth/register requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.Register(ctx, req.Username, req.Password, req.Name)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestID,
			"username", req.Username,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestID,
		"user_id", user.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromUser(user))
}

// HandleLogin handles POST /auth/login requests.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, req.Username, req.Password, r.UserAgent())
	if err != nil {
		h.logger.WarnContext(ctx, "login rejected",
			"request_id", requestID,
			"username", req.Username,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "login succeeded",
		"request_id", requestID,
		"user_id", result.User.ID,
		"session_id", result.Session.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, FromLoginResult(result))
}

// HandleLogout handles POST /auth/logout requests. The presented
// token's JTI lands on the revocation list, so the token dies with the
// session.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID := middleware.CurrentUserID(ctx)
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	sessionID := middleware.CurrentSessionID(ctx)

	if err := h.service.Logout(ctx, userID, sessionID, middleware.GetTokenID(ctx)); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session logged out",
		"request_id", requestID,
		"user_id", userID,
		"session_id", sessionID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /auth/me requests.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID := middleware.CurrentUserID(ctx)
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	user, err := h.service.GetUser(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "profile lookup failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromUser(user))
}

// HandleSessions handles GET /auth/sessions requests.
func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID := middleware.CurrentUserID(ctx)
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	result, err := h.service.Sessions(ctx, userID, middleware.CurrentSessionID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "session listing failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleRevokeSession handles DELETE /auth/sessions/{sessionID}
// requests. Users can only revoke their own sessions.
func (h *Handler) HandleRevokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	userID := middleware.CurrentUserID(ctx)
	if userID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	sessionID, err := domain.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RevokeSession(ctx, userID, sessionID); err != nil {
		h.logger.ErrorContext(ctx, "session revocation failed",
			"request_id", requestID,
			"user_id", userID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session revoked",
		"request_id", requestID,
		"user_id", userID,
		"session_id", sessionID,
	)
	w.WriteHeader(http.StatusNoContent)
}
