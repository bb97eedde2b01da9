package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"ruconnect/internal/audit"
	"ruconnect/internal/platform/middleware"
	"ruconnect/pkg/domain"
)

func newTestRouter(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.JWTValidator == nil {
		deps.JWTValidator = rejectAllValidator{}
	}
	return New(deps)
}

// rejectAllValidator stands in where no authenticated route is under
// test.
type rejectAllValidator struct{}

func (rejectAllValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	return nil, errors.New("no tokens in this test")
}

func TestValidateRUCEndpoint(t *testing.T) {
	router := newTestRouter(t, Deps{
		Public: []PublicHandler{NewValidationHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))},
	})

	cases := []struct {
		name    string
		ruc     string
		valid   bool
		message string
	}{
		{name: "valid legal entity", ruc: "20123456786", valid: true},
		{name: "valid with surrounding whitespace", ruc: "  20123456786  ", valid: true},
		{name: "wrong check digit", ruc: "20123456780", message: "RUC is not valid"},
		{name: "wrong prefix", ruc: "30123456786", message: "RUC must start with 10, 15, 17, or 20."},
		{name: "non-digit character", ruc: "2012345678a", message: "RUC must contain only digits."},
		{name: "too short", ruc: "2012345678", message: "RUC must have exactly 11 digits."},
		{name: "empty", ruc: "", message: "RUC is required."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, _ := json.Marshal(map[string]string{"ruc": tc.ruc})
			req := httptest.NewRequest(http.MethodPost, "/validation/ruc", bytes.NewReader(raw))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var resp struct {
				Valid   bool   `json:"valid"`
				Message string `json:"message"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Valid != tc.valid {
				t.Fatalf("expected valid=%v for %q, got %v", tc.valid, tc.ruc, resp.Valid)
			}
			if resp.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, resp.Message)
			}
		})
	}
}

func TestValidationRejectsWrongContentType(t *testing.T) {
	router := newTestRouter(t, Deps{
		Public: []PublicHandler{NewValidationHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))},
	})

	req := httptest.NewRequest(http.MethodPost, "/validation/ruc", bytes.NewReader([]byte(`ruc=20123456786`)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for form payload, got %d", rec.Code)
	}
}

func TestHealthzReportsDependencyState(t *testing.T) {
	healthy := newTestRouter(t, Deps{
		Health: []HealthChecker{
			{Name: "store", Check: func(context.Context) error { return nil }},
		},
	})

	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for healthy daemon, got %d", rec.Code)
	}

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp.Status != "ok" || resp.Checks["store"] != "ok" {
		t.Fatalf("unexpected health payload: %+v", resp)
	}

	degraded := newTestRouter(t, Deps{
		Health: []HealthChecker{
			{Name: "store", Check: func(context.Context) error { return nil }},
			{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
		},
	})

	rec = httptest.NewRecorder()
	degraded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for degraded daemon, got %d", rec.Code)
	}
}

func TestProtectedGroupRequiresToken(t *testing.T) {
	svc := audit.NewService(audit.NewInMemoryStore())
	router := newTestRouter(t, Deps{
		Protected: []FeatureHandler{NewAuditHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestAuditEndpointListsOwnEvents(t *testing.T) {
	store := audit.NewInMemoryStore()
	actor := domain.NewUserID()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		event := audit.Event{ID: uuid.New(), Type: audit.EventLogin, Actor: actor, At: time.Now()}
		if err := store.Append(ctx, event); err != nil {
			t.Fatalf("failed to seed audit store: %v", err)
		}
	}

	router := newTestRouter(t, Deps{
		Protected:    []FeatureHandler{NewAuditHandler(audit.NewService(store), slog.New(slog.NewTextHandler(io.Discard, nil)))},
		JWTValidator: staticValidator{userID: actor.String()},
	})

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing audit events, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode audit response: %v", err)
	}
	if resp.Count != 3 {
		t.Fatalf("expected 3 events, got %d", resp.Count)
	}
}

// staticValidator authenticates every request as a fixed user.
type staticValidator struct{ userID string }

func (v staticValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	return &middleware.JWTClaims{UserID: v.userID, SessionID: domain.NewSessionID().String(), JTI: "test-jti"}, nil
}
