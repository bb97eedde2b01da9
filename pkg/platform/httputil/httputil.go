// Package httputil carries the JSON helpers every HTTP handler shares:
// response writing, the error envelope and generic request decoding.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "ruconnect/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies. All API payloads are small JSON
// documents.
const maxBodyBytes = 1 << 20

// Validatable lets request types check and normalize themselves right
// after decoding. DecodeAndPrepare calls it when implemented.
type Validatable interface {
	Validate() error
}

// ErrorResponse is the error envelope shared by every endpoint.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// fielded is implemented by validation aggregates that expose per-field
// messages.
type fielded interface {
	error
	ByField() map[string]string
}

// WriteError translates an error into the shared envelope. Field-level
// validation failures expand into the fields map; internal errors reveal
// no detail to the caller.
func WriteError(w http.ResponseWriter, err error) {
	var fieldErrs fielded
	if errors.As(err, &fieldErrs) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   string(dErrors.CodeInvalidInput),
			Message: "validation failed",
			Fields:  fieldErrs.ByField(),
		})
		return
	}

	code := dErrors.GetCode(err)
	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.Message = dErrors.Message(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(err), resp)
}

// DecodeAndPrepare decodes the JSON body into T and runs its validation
// when T implements Validatable. On failure it writes the error response
// and returns ok=false; the handler just returns.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "malformed request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed JSON body"))
		return nil, false
	}

	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "request validation failed",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
