package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"billmitra/backend/internal/catalog"
	"billmitra/backend/internal/domain"
	"billmitra/backend/internal/learning"
	"billmitra/backend/internal/service"
	"billmitra/backend/internal/store/memory"
	"billmitra/backend/internal/suggest"
)

// newTestAPI builds a full API with the seeded in-memory store, real
// AuthManager and real Service so handler tests exercise the complete
// request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	hsnEntries, err := repo.ListHSNEntries(context.Background())
	if err != nil {
		t.Fatalf("list hsn entries: %v", err)
	}
	lookup := catalog.NewLookup(hsnEntries)
	adapter := suggest.NewAdapter(repo, nil, 0)
	svc := service.New(repo, adapter, lookup, learning.NewEngine(repo), 10, 0)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "main-business")
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func loginToken(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/customers", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSuggestEndpointRanksTemplatesFirst(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/catalog/suggest?q=web", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Candidates []domain.Candidate `json:"candidates"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Candidates) < 2 {
		t.Fatalf("expected at least 2 candidates, got %d", len(body.Candidates))
	}
	if body.Candidates[0].Origin != domain.OriginUserTemplate {
		t.Fatalf("first candidate origin = %q, want user template", body.Candidates[0].Origin)
	}
}

func TestHSNLookupEndpoint(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/catalog/hsn/998314", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/catalog/hsn/000000", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", rec.Code)
	}
}

func TestCustomerCreateValidatesGSTIN(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/customers", token, map[string]any{
		"name":       "Bad GSTIN Pvt Ltd",
		"gstin":      "not-a-gstin",
		"state_code": "29",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

type draftEnvelope struct {
	Draft domain.DraftView `json:"draft"`
}

func TestDraftComposeAndSubmitFlow(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/drafts", token, map[string]string{"surface": "full"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open draft returned %d: %s", rec.Code, rec.Body.String())
	}
	var opened draftEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&opened); err != nil {
		t.Fatalf("decode draft: %v", err)
	}
	draftID := opened.Draft.ID
	if len(opened.Draft.Items) != 1 {
		t.Fatalf("new draft has %d items, want 1", len(opened.Draft.Items))
	}

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/drafts/"+draftID+"/header", token, map[string]string{
		"customer_id": "cst_seed_02",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch header returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/drafts/"+draftID+"/items/0", token, map[string]any{
		"description": "GST Filing Assistance",
		"quantity":    1,
		"rate":        5000,
		"gst_rate":    18,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch item returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/drafts/"+draftID+"/submit", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit returned %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.SubmitResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode submit result: %v", err)
	}
	// Seed profile and cst_seed_02 share state code 29, so the split is CGST/SGST.
	if result.Invoice.CGST != 450 || result.Invoice.SGST != 450 || result.Invoice.IGST != 0 {
		t.Fatalf("split = %v/%v/%v, want 450/450/0", result.Invoice.CGST, result.Invoice.SGST, result.Invoice.IGST)
	}
	if result.Invoice.Total != 5900 {
		t.Fatalf("total = %v, want 5900", result.Invoice.Total)
	}

	// The draft no longer exists.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/drafts/"+draftID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after submit, got %d", rec.Code)
	}

	// The invoice is retrievable.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/invoices/"+result.Invoice.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get invoice returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDraftSubmitWithoutBuyerReturns422(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/drafts", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open draft returned %d: %s", rec.Code, rec.Body.String())
	}
	var opened draftEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&opened); err != nil {
		t.Fatalf("decode draft: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/drafts/"+opened.Draft.ID+"/submit", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestProfileUpsertForbiddenForAccountant(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "accountant", "accounts123")

	rec := doJSON(t, handler, http.MethodPut, "/api/v1/profile", token, map[string]string{
		"legal_name": "Acme LLP",
		"gstin":      "29ABCDE1234F1Z5",
		"state_code": "29",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRemoveLastItemKeepsOneRow(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := loginToken(t, handler, "owner", "owner123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/drafts", token, nil)
	var opened draftEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&opened); err != nil {
		t.Fatalf("decode draft: %v", err)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/drafts/"+opened.Draft.ID+"/items/0", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove item returned %d: %s", rec.Code, rec.Body.String())
	}

	var after draftEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&after); err != nil {
		t.Fatalf("decode draft: %v", err)
	}
	if len(after.Draft.Items) != 1 {
		t.Fatalf("draft has %d items after removing the only row, want 1", len(after.Draft.Items))
	}
}
