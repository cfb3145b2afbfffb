package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"billmitra/backend/internal/compose"
	"billmitra/backend/internal/domain"
	"billmitra/backend/internal/service"
	"billmitra/backend/internal/store"
)

type API struct {
	service      *service.Service
	auth         *AuthManager
	ownerID      string
	loginLimiter *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, ownerID string) *API {
	if ownerID == "" {
		ownerID = "main-business"
	}
	return &API{
		service:      svc,
		auth:         auth,
		ownerID:      ownerID,
		loginLimiter: newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("POST /api/v1/auth/login", a.handleLogin)

	anyRole := []string{domain.RoleOwner, domain.RoleAccountant}
	ownerOnly := []string{domain.RoleOwner}

	mux.HandleFunc("GET /api/v1/catalog/suggest", a.requireAuth(a.handleSuggest, anyRole...))
	mux.HandleFunc("GET /api/v1/catalog/hsn/{code}", a.requireAuth(a.handleHSNRates, anyRole...))

	mux.HandleFunc("POST /api/v1/drafts", a.requireAuth(a.handleDraftOpen, anyRole...))
	mux.HandleFunc("GET /api/v1/drafts/{id}", a.requireAuth(a.handleDraftGet, anyRole...))
	mux.HandleFunc("DELETE /api/v1/drafts/{id}", a.requireAuth(a.handleDraftClose, anyRole...))
	mux.HandleFunc("PATCH /api/v1/drafts/{id}/header", a.requireAuth(a.handleDraftHeaderPatch, anyRole...))
	mux.HandleFunc("POST /api/v1/drafts/{id}/items", a.requireAuth(a.handleDraftItemAdd, anyRole...))
	mux.HandleFunc("PATCH /api/v1/drafts/{id}/items/{index}", a.requireAuth(a.handleDraftItemPatch, anyRole...))
	mux.HandleFunc("DELETE /api/v1/drafts/{id}/items/{index}", a.requireAuth(a.handleDraftItemRemove, anyRole...))
	mux.HandleFunc("POST /api/v1/drafts/{id}/items/{index}/search", a.requireAuth(a.handleDraftItemSearch, anyRole...))
	mux.HandleFunc("POST /api/v1/drafts/{id}/items/{index}/apply", a.requireAuth(a.handleDraftItemApply, anyRole...))
	mux.HandleFunc("POST /api/v1/drafts/{id}/submit", a.requireAuth(a.handleDraftSubmit, anyRole...))

	mux.HandleFunc("GET /api/v1/customers", a.requireAuth(a.handleCustomerList, anyRole...))
	mux.HandleFunc("POST /api/v1/customers", a.requireAuth(a.handleCustomerCreate, anyRole...))
	mux.HandleFunc("GET /api/v1/customers/{id}", a.requireAuth(a.handleCustomerGet, anyRole...))

	mux.HandleFunc("GET /api/v1/templates", a.requireAuth(a.handleTemplateList, anyRole...))
	mux.HandleFunc("POST /api/v1/templates", a.requireAuth(a.handleTemplateCreate, anyRole...))
	mux.HandleFunc("PATCH /api/v1/templates/{id}", a.requireAuth(a.handleTemplateUpdate, anyRole...))

	mux.HandleFunc("GET /api/v1/profile", a.requireAuth(a.handleProfileGet, anyRole...))
	mux.HandleFunc("PUT /api/v1/profile", a.requireAuth(a.handleProfileUpsert, ownerOnly...))
	mux.HandleFunc("POST /api/v1/profile/plan", a.requireAuth(a.handlePlanChange, ownerOnly...))

	mux.HandleFunc("GET /api/v1/invoices", a.requireAuth(a.handleInvoiceList, anyRole...))
	mux.HandleFunc("GET /api/v1/invoices/{id}", a.requireAuth(a.handleInvoiceGet, anyRole...))
	mux.HandleFunc("GET /api/v1/invoices/{id}/payments", a.requireAuth(a.handlePaymentList, anyRole...))
	mux.HandleFunc("POST /api/v1/payments", a.requireAuth(a.handlePaymentCreate, anyRole...))

	mux.HandleFunc("GET /api/v1/notifications", a.requireAuth(a.handleNotificationList, anyRole...))
	mux.HandleFunc("GET /api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, ownerOnly...))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSuggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	candidates := a.service.Suggest(r.Context(), a.ownerID, query)
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

func (a *API) handleHSNRates(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	rates := a.service.HSNRates(code)
	if len(rates) == 0 {
		writeError(w, http.StatusNotFound, errors.New("code not in master list"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": code, "rates": rates})
}

type draftOpenRequest struct {
	Surface string `json:"surface"`
}

func (req draftOpenRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Surface, validation.In(
			string(compose.SurfaceFull),
			string(compose.SurfaceQuick),
			string(compose.SurfaceTemplates),
		)),
	)
}

func (a *API) handleDraftOpen(w http.ResponseWriter, r *http.Request) {
	// An empty body opens a full-surface draft.
	var req draftOpenRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Surface == "" {
		req.Surface = string(compose.SurfaceFull)
	}

	view, err := a.service.OpenDraft(r.Context(), a.ownerID, compose.Surface(req.Surface))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"draft": view})
}

func (a *API) handleDraftGet(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.GetDraft(r.Context(), a.ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": view})
}

func (a *API) handleDraftClose(w http.ResponseWriter, r *http.Request) {
	if err := a.service.CloseDraft(r.Context(), a.ownerID, r.PathValue("id")); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDraftHeaderPatch(w http.ResponseWriter, r *http.Request) {
	var patch domain.DraftHeaderPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := a.service.PatchDraftHeader(r.Context(), a.ownerID, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": view})
}

func (a *API) handleDraftItemAdd(w http.ResponseWriter, r *http.Request) {
	view, err := a.service.AddDraftItem(r.Context(), a.ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"draft": view})
}

func (a *API) handleDraftItemPatch(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	var patch domain.LineItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := a.service.PatchDraftItem(r.Context(), a.ownerID, r.PathValue("id"), index, patch)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": view})
}

func (a *API) handleDraftItemRemove(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	view, err := a.service.RemoveDraftItem(r.Context(), a.ownerID, r.PathValue("id"), index)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": view})
}

type itemSearchRequest struct {
	Query string `json:"query"`
	Open  bool   `json:"open"`
}

func (a *API) handleDraftItemSearch(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	var req itemSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := a.service.SetItemSearch(r.Context(), a.ownerID, r.PathValue("id"), index, req.Query, req.Open)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": view})
}

type applySuggestionRequest struct {
	CandidateIndex int `json:"candidate_index"`
}

func (a *API) handleDraftItemApply(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	var req applySuggestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := a.service.ApplySuggestion(r.Context(), a.ownerID, r.PathValue("id"), index, req.CandidateIndex)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": view})
}

func (a *API) handleDraftSubmit(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.SubmitDraft(r.Context(), a.ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GSTIN format: 2-digit state code, PAN, entity number, Z, check character.
var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][0-9A-Z]Z[0-9A-Z]$`)

var stateCodePattern = regexp.MustCompile(`^(0[1-9]|[1-2][0-9]|3[0-8])$`)

func validateCustomerCreate(req domain.CustomerCreateRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.GSTIN, validation.Match(gstinPattern)),
		validation.Field(&req.StateCode, validation.Required, validation.Match(stateCodePattern)),
	)
}

func (a *API) handleCustomerList(w http.ResponseWriter, r *http.Request) {
	customers, err := a.service.ListCustomers(r.Context(), a.ownerID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (a *API) handleCustomerCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateCustomerCreate(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	customer, err := a.service.CreateCustomer(r.Context(), a.ownerID, req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
}

func (a *API) handleCustomerGet(w http.ResponseWriter, r *http.Request) {
	customer, err := a.service.GetCustomer(r.Context(), a.ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
}

func validateTemplateCreate(req domain.TemplateCreateRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Kind, validation.Required, validation.In(domain.TemplateKindService, domain.TemplateKindProduct)),
		validation.Field(&req.GSTRate, validation.Min(0.0), validation.Max(28.0)),
	)
}

func (a *API) handleTemplateList(w http.ResponseWriter, r *http.Request) {
	templates, err := a.service.ListTemplates(r.Context(), a.ownerID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (a *API) handleTemplateCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.TemplateCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateTemplateCreate(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	template, err := a.service.CreateTemplate(r.Context(), a.ownerID, req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"template": template})
}

func (a *API) handleTemplateUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.TemplateUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	template, err := a.service.UpdateTemplate(r.Context(), a.ownerID, r.PathValue("id"), req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"template": template})
}

func validateProfileUpsert(req domain.ProfileUpsertRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.LegalName, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.GSTIN, validation.Required, validation.Match(gstinPattern)),
		validation.Field(&req.StateCode, validation.Required, validation.Match(stateCodePattern)),
		validation.Field(&req.InvoicePrefix, validation.Length(0, 12)),
	)
}

func (a *API) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	profile, err := a.service.GetProfile(r.Context(), a.ownerID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (a *API) handleProfileUpsert(w http.ResponseWriter, r *http.Request) {
	var req domain.ProfileUpsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validateProfileUpsert(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	profile, err := a.service.UpsertProfile(r.Context(), a.ownerID, req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

type planChangeRequest struct {
	Plan string `json:"plan"`
}

func (req planChangeRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Plan, validation.Required, validation.In(
			string(domain.PlanFree),
			string(domain.PlanPro),
		)),
	)
}

func (a *API) handlePlanChange(w http.ResponseWriter, r *http.Request) {
	var req planChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	profile, err := a.service.SetPlan(r.Context(), a.ownerID, domain.SubscriptionPlan(req.Plan))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (a *API) handleInvoiceList(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
	invoices, err := a.service.ListInvoices(r.Context(), a.ownerID, limit)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (a *API) handleInvoiceGet(w http.ResponseWriter, r *http.Request) {
	invoice, err := a.service.GetInvoice(r.Context(), a.ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": invoice})
}

func (a *API) handlePaymentList(w http.ResponseWriter, r *http.Request) {
	payments, err := a.service.ListPayments(r.Context(), a.ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func validatePaymentCreate(req domain.PaymentCreateRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.InvoiceID, validation.Required),
		validation.Field(&req.Amount, validation.Required, validation.Min(0.01)),
		validation.Field(&req.Method, validation.Required, validation.In("cash", "upi", "bank", "card", "cheque")),
	)
}

func (a *API) handlePaymentCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := validatePaymentCreate(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	payment, err := a.service.RecordPayment(r.Context(), a.ownerID, req)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"payment": payment})
}

func (a *API) handleNotificationList(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 20, 100)
	notifications, err := a.service.ListNotifications(r.Context(), a.ownerID, limit)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -7)
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("date must be YYYY-MM-DD"))
			return
		}
		from = day
		to = day.AddDate(0, 0, 1)
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	logs, err := a.service.ListAuditLogs(r.Context(), a.ownerID, from, to, limit)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, errors.New("item index must be a non-negative integer"))
		return 0, false
	}
	return index, true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, compose.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, compose.ErrSessionForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrInvalidInvoice), errors.Is(err, compose.ErrNoSuchItem):
		return http.StatusBadRequest
	case errors.Is(err, compose.ErrNotSubmittable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrDuplicateTemplate):
		return http.StatusConflict
	case errors.Is(err, store.ErrSubscriptionRequired):
		return http.StatusPaymentRequired
	case strings.Contains(strings.ToLower(err.Error()), "role required"):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx responses get a generic message so internal details never leak.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
