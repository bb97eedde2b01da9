package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ruconnect/internal/bluetooth"
	"ruconnect/internal/platform/middleware"
	"ruconnect/pkg/platform/httputil"
)

// Manager defines the interface for companion link operations.
type Manager interface {
	Scan(ctx context.Context, window time.Duration) ([]bluetooth.Device, error)
	Devices() []bluetooth.Device
	Connect(ctx context.Context, address string) (*bluetooth.Status, error)
	Disconnect(ctx context.Context) error
	Write(ctx context.Context, payload []byte) error
	ReadDeviceInfo(ctx context.Context) (*bluetooth.DeviceInfo, error)
	Status() bluetooth.Status
}

// Handler wires the companion-link endpoints to the bluetooth manager.
// Every endpoint requires authentication; the link is a local resource,
// not a public surface.
type Handler struct {
	manager Manager
	logger  *slog.Logger
}

// New constructs a bluetooth handler with its dependencies.
func New(manager Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// RegisterProtected mounts the companion-link endpoints.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/bluetooth/scan", h.HandleScan)
	r.Get("/bluetooth/devices", h.HandleDevices)
	r.Post("/bluetooth/connect/{address}", h.HandleConnect)
	r.Post("/bluetooth/disconnect", h.HandleDisconnect)
	r.Get("/bluetooth/status", h.HandleStatus)
	r.Post("/bluetooth/write", h.HandleWrite)
	r.Get("/bluetooth/device-info", h.HandleDeviceInfo)
}

// HandleScan handles POST /bluetooth/scan requests. The scan blocks for
// the requested window and responds with the full sweep result.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var window time.Duration
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[ScanRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		window = time.Duration(req.WindowMS) * time.Millisecond
	}

	devices, err := h.manager.Scan(ctx, window)
	if err != nil {
		h.logger.WarnContext(ctx, "bluetooth scan rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, DeviceListResponse{Devices: devices, Count: len(devices)})
}

// HandleDevices handles GET /bluetooth/devices requests, returning the
// last scan snapshot without sweeping again.
func (h *Handler) HandleDevices(w http.ResponseWriter, r *http.Request) {
	devices := h.manager.Devices()
	httputil.WriteJSON(w, http.StatusOK, DeviceListResponse{Devices: devices, Count: len(devices)})
}

// HandleConnect handles POST /bluetooth/connect/{address} requests.
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	address := chi.URLParam(r, "address")

	status, err := h.manager.Connect(ctx, address)
	if err != nil {
		h.logger.WarnContext(ctx, "companion connect rejected",
			"request_id", requestID,
			"address", address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "companion connected",
		"request_id", requestID,
		"address", address,
	)
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleDisconnect handles POST /bluetooth/disconnect requests.
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	if err := h.manager.Disconnect(ctx); err != nil {
		h.logger.WarnContext(ctx, "companion disconnect rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles GET /bluetooth/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.manager.Status()
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleWrite handles POST /bluetooth/write requests, sending the
// payload to the companion's command characteristic.
func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[WriteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.manager.Write(ctx, []byte(req.Payload)); err != nil {
		h.logger.WarnContext(ctx, "companion write rejected",
			"request_id", requestID,
			"size", len(req.Payload),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDeviceInfo handles GET /bluetooth/device-info requests, reading
// the companion's identity characteristic afresh.
func (h *Handler) HandleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	info, err := h.manager.ReadDeviceInfo(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "companion device-info read rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, info)
}
