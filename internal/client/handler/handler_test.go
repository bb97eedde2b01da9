package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ruconnect/internal/audit"
	"ruconnect/internal/client"
	"ruconnect/internal/platform/middleware"
	"ruconnect/pkg/domain"
)

// ============================================================================
// Justification for unit tests: these run the real service and memory
// store behind the router, so they prove the full registration flow a
// field operator exercises: create, duplicate rejection, field-level
// validation messages, lookup, listing filters and the status cycle.
// ============================================================================

// validRUC carries check digit 6 (sum 148, remainder 5).
const validRUC = "20123456786"

func TestRegisterClient(t *testing.T) {
	router, _ := newClientRouter(t)

	rec := postJSON(t, router, "/clients", map[string]string{
		"ruc":   validRUC,
		"name":  "Bodega San Martin",
		"email": "ventas@sanmartin.pe",
		"phone": "+51 987 654 321",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering client, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID     uuid.UUID `json:"id"`
		RUC    string    `json:"ruc"`
		Name   string    `json:"name"`
		Status string    `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode client response: %v", err)
	}
	if resp.ID == uuid.Nil || resp.RUC != validRUC || resp.Status != "active" {
		t.Fatalf("unexpected client payload: %+v", resp)
	}

	dup := postJSON(t, router, "/clients", map[string]string{
		"ruc":  validRUC,
		"name": "Bodega San Martin II",
	})
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate RUC, got %d", dup.Code)
	}
}

func TestRegisterClientFieldErrors(t *testing.T) {
	router, _ := newClientRouter(t)

	rec := postJSON(t, router, "/clients", map[string]string{
		"ruc":  "20123456780", // wrong check digit
		"name": "B",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid fields, got %d", rec.Code)
	}

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Fields["ruc"] != "RUC is not valid" {
		t.Fatalf("expected checksum message on ruc field, got %v", resp.Fields)
	}
	if resp.Fields["name"] == "" {
		t.Fatalf("expected name field error, got %v", resp.Fields)
	}

	prefix := postJSON(t, router, "/clients", map[string]string{
		"ruc":  "30123456786",
		"name": "Bodega San Martin",
	})
	if err := json.NewDecoder(prefix.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Fields["ruc"] != "RUC must start with 10, 15, 17, or 20." {
		t.Fatalf("expected prefix message on ruc field, got %v", resp.Fields)
	}
}

func TestGetAndListClients(t *testing.T) {
	router, _ := newClientRouter(t)

	created := registerClient(t, router, validRUC, "Bodega San Martin")
	registerClient(t, router, "10123456781", "Farmacia Flores")

	rec := doRequest(t, router, http.MethodGet, "/clients/"+created, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching client, got %d", rec.Code)
	}

	missing := doRequest(t, router, http.MethodGet, "/clients/"+uuid.NewString(), nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown client, got %d", missing.Code)
	}

	malformed := doRequest(t, router, http.MethodGet, "/clients/not-a-uuid", nil)
	if malformed.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed client id, got %d", malformed.Code)
	}

	list := doRequest(t, router, http.MethodGet, "/clients?q=bodega", nil)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200 listing clients, got %d", list.Code)
	}
	var listing struct {
		Clients []struct {
			Name string `json:"name"`
		} `json:"clients"`
		Count int `json:"count"`
	}
	if err := json.NewDecoder(list.Body).Decode(&listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if listing.Count != 1 || listing.Clients[0].Name != "Bodega San Martin" {
		t.Fatalf("expected the bodega alone, got %+v", listing)
	}
}

func TestUpdateAndStatusCycle(t *testing.T) {
	router, _ := newClientRouter(t)
	id := registerClient(t, router, validRUC, "Bodega San Martin")

	upd := doRequest(t, router, http.MethodPatch, "/clients/"+id, map[string]string{
		"name":  "Bodega San Martin EIRL",
		"email": "contacto@sanmartin.pe",
	})
	if upd.Code != http.StatusOK {
		t.Fatalf("expected 200 updating client, got %d: %s", upd.Code, upd.Body.String())
	}

	deact := doRequest(t, router, http.MethodPost, "/clients/"+id+"/deactivate", nil)
	if deact.Code != http.StatusOK {
		t.Fatalf("expected 200 deactivating, got %d: %s", deact.Code, deact.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(deact.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode deactivate response: %v", err)
	}
	if resp.Status != "inactive" {
		t.Fatalf("expected inactive status, got %q", resp.Status)
	}

	again := doRequest(t, router, http.MethodPost, "/clients/"+id+"/deactivate", nil)
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409 deactivating twice, got %d", again.Code)
	}

	react := doRequest(t, router, http.MethodPost, "/clients/"+id+"/reactivate", nil)
	if react.Code != http.StatusOK {
		t.Fatalf("expected 200 reactivating, got %d", react.Code)
	}
}

func TestClientEndpointsRequireIdentity(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := client.NewService(client.NewInMemoryStore(), audit.NewPublisher(16, nil, logger), nil, logger)
	h := New(svc, logger)

	// No identity middleware on this router.
	r := chi.NewRouter()
	h.RegisterProtected(r)

	rec := postJSON(t, r, "/clients", map[string]string{"ruc": validRUC, "name": "Bodega"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

// ----------------------------------------------------------------------------
// helpers
// ----------------------------------------------------------------------------

// newClientRouter builds the handler over the real service and memory
// store, with a fixed authenticated user seeded the way the auth
// middleware would.
func newClientRouter(t *testing.T) (http.Handler, domain.UserID) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	actor := domain.NewUserID()

	svc := client.NewService(client.NewInMemoryStore(), audit.NewPublisher(16, nil, logger), nil, logger)
	h := New(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, actor.String())
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.RegisterProtected(r)
	return r, actor
}

func registerClient(t *testing.T, router http.Handler, taxID, name string) string {
	t.Helper()
	rec := postJSON(t, router, "/clients", map[string]string{"ruc": taxID, "name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 registering %s, got %d: %s", taxID, rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode client response: %v", err)
	}
	return resp.ID
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	return doRequest(t, router, http.MethodPost, path, payload)
}

func doRequest(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
