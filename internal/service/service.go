package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"billmitra/backend/internal/catalog"
	"billmitra/backend/internal/compose"
	"billmitra/backend/internal/domain"
	"billmitra/backend/internal/learning"
	"billmitra/backend/internal/store"
	"billmitra/backend/internal/suggest"
	"billmitra/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const (
	defaultFreePlanInvoiceLimit = 10
	defaultDueDays              = 15
	defaultInvoicePrefix        = "INV"
)

type Service struct {
	repo      store.Repository
	suggester *suggest.Adapter
	hsn       *catalog.Lookup
	learner   *learning.Engine
	sessions  *compose.Manager

	mu     sync.Mutex
	drafts map[string]*draftSession

	freePlanInvoiceLimit int
	debounceWindow       time.Duration
}

func New(repo store.Repository, suggester *suggest.Adapter, hsn *catalog.Lookup, learner *learning.Engine, freePlanInvoiceLimit int, debounceWindow time.Duration) *Service {
	if freePlanInvoiceLimit <= 0 {
		freePlanInvoiceLimit = defaultFreePlanInvoiceLimit
	}

	return &Service{
		repo:                 repo,
		suggester:            suggester,
		hsn:                  hsn,
		learner:              learner,
		sessions:             compose.NewManager(),
		drafts:               make(map[string]*draftSession),
		freePlanInvoiceLimit: freePlanInvoiceLimit,
		debounceWindow:       debounceWindow,
	}
}

// draftSession pairs a composition session with its suggestion pipeline.
// Candidates always belong to exactly one line item at a time; opening the
// search on another item discards them.
type draftSession struct {
	session   *compose.Session
	suggester *suggest.Debounced

	mu            sync.Mutex
	candidates    []domain.Candidate
	candidatesFor int
}

// accept is the debounced delivery sink. A search error degrades to an
// empty candidate list so the user keeps typing undisturbed.
func (d *draftSession) accept(res suggest.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if res.Err != nil {
		log.Printf("[service] WARN: suggestion search %q failed: %v", res.Query, res.Err)
		d.candidates = nil
		return
	}
	d.candidates = res.Candidates
}

func (d *draftSession) view() domain.DraftView {
	snap := d.session.Snapshot()

	d.mu.Lock()
	candidates := make([]domain.Candidate, len(d.candidates))
	copy(candidates, d.candidates)
	candidatesFor := d.candidatesFor
	d.mu.Unlock()

	return domain.DraftView{
		ID:            snap.ID,
		Surface:       string(snap.Surface),
		Header:        snap.Header,
		Items:         snap.Items,
		Preview:       compose.RoundPreview(snap.Preview),
		Candidates:    candidates,
		CandidatesFor: candidatesFor,
	}
}

func (s *Service) OpenDraft(ctx context.Context, ownerID string, surface compose.Surface) (domain.DraftView, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.DraftView{}, fmt.Errorf("authenticated actor required")
	}

	header := domain.DraftHeader{
		IssueDate: time.Now().UTC().Truncate(24 * time.Hour),
	}
	header.DueDate = header.IssueDate.AddDate(0, 0, defaultDueDays)

	profile, err := s.repo.GetProfile(ctx, ownerID)
	switch {
	case err == nil:
		header.Terms = profile.DefaultTerms
	case errors.Is(err, store.ErrNotFound):
		// Draft can still be composed; a profile is only required at submit.
	default:
		return domain.DraftView{}, err
	}

	session := s.sessions.Open(ownerID, surface, header)

	ds := &draftSession{session: session, candidatesFor: -1}
	ds.suggester = suggest.NewDebounced(s.suggester, s.debounceWindow, ds.accept)

	s.mu.Lock()
	s.drafts[session.ID] = ds
	s.mu.Unlock()

	return ds.view(), nil
}

func (s *Service) draft(draftID string, ownerID string) (*draftSession, error) {
	if _, err := s.sessions.Get(draftID, ownerID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	ds, ok := s.drafts[draftID]
	s.mu.Unlock()

	if !ok {
		return nil, compose.ErrSessionNotFound
	}
	return ds, nil
}

func (s *Service) GetDraft(_ context.Context, ownerID string, draftID string) (domain.DraftView, error) {
	ds, err := s.draft(draftID, ownerID)
	if err != nil {
		return domain.DraftView{}, err
	}
	return ds.view(), nil
}

func (s *Service) CloseDraft(_ context.Context, ownerID string, draftID string) error {
	if _, err := s.draft(draftID, ownerID); err != nil {
		return err
	}
	s.discardDraft(draftID)
	return nil
}

func (s *Service) discardDraft(draftID string) {
	s.sessions.Close(draftID)

	s.mu.Lock()
	delete(s.drafts, draftID)
	s.mu.Unlock()
}

func (s *Service) AddDraftItem(_ context.Context, ownerID string, draftID string) (domain.DraftView, error) {
	ds, err := s.draft(draftID, ownerID)
	if err != nil {
		return domain.DraftView{}, err
	}
	ds.session.AddItem()
	return ds.view(), nil
}

func (s *Service) RemoveDraftItem(_ context.Context, ownerID string, draftID string, index int) (domain.DraftView, error) {
	ds, err := s.draft(draftID, ownerID)
	if err != nil {
		return domain.DraftView{}, err
	}

	if ds.session.RemoveItem(index) {
		// Held candidates follow the row they were fetched for: a removal
		// at that row drops them, a removal below it shifts the index.
		ds.mu.Lock()
		switch {
		case ds.candidatesFor == index:
			ds.candidates = nil
			ds.candidatesFor = -1
		case ds.candidatesFor > index:
			ds.candidatesFor--
		}
		ds.mu.Unlock()
	}

	return ds.view(), nil
}

func (s *Service) PatchDraftItem(_ context.Context, ownerID string, draftID string, index int, patch domain.LineItemPatch) (domain.DraftView, error) {
	ds, err := s.draft(draftID, ownerID)
	if err != nil {
		return domain.DraftView{}, err
	}
	if _, err := ds.session.PatchItem(index, patch); err != nil {
		return domain.DraftView{}, err
	}
	return ds.view(), nil
}

func (s *Service) PatchDraftHeader(_ context.Context, ownerID string, draftID string, patch domain.DraftHeaderPatch) (domain.DraftView, error) {
	ds, err := s.draft(draftID, ownerID)
	if err != nil {
		return domain.DraftView{}, err
	}
	ds.session.PatchHeader(patch)
	return ds.view(), nil
}

// SetItemSearch updates the search cursor of one line and, when the
// dropdown is open with a long-enough query, schedules a debounced
// suggestion search. Results arrive asynchronously on the draft view.
func (s *Service) SetItemSearch(_ context.Context, ownerID string, draftID string, index int, query string, open bool) (domain.DraftView, error) {
	ds, err := s.draft(draftID, ownerID)
	if err != nil {
		return domain.DraftView{}, err
	}

	patch := domain.LineItemPatch{SearchQuery: &query, SearchOpen: &open}
	if _, err := ds.session.PatchItem(index, patch); err != nil {
		return domain.DraftView{}, err
	}

	ds.mu.Lock()
	ds.candidatesFor = index
	ds.candidates = nil
	ds.mu.Unlock()

	if open && len(strings.TrimSpace(query)) >= suggest.MinQueryLength {
		// Delivery outlives the HTTP request that triggered it.
		ds.suggester.Search(context.Background(), ownerID, query)
	} else {
		// A closed dropdown or a too-short query invalidates any search
		// already in flight.
		ds.suggester.Issue()
	}

	return ds.view(), nil
}

// ApplySuggestion applies one of the currently held candidates to the line
// item the search belongs to, then closes the dropdown.
func (s *Service) ApplySuggestion(_ context.Context, ownerID string, draftID string, index int, candidateIndex int) (domain.DraftView, error) {
	ds, err := s.draft(draftID, ownerID)
	if err != nil {
		return domain.DraftView{}, err
	}

	ds.mu.Lock()
	if ds.candidatesFor != index || candidateIndex < 0 || candidateIndex >= len(ds.candidates) {
		ds.mu.Unlock()
		return domain.DraftView{}, fmt.Errorf("%w: no such candidate", compose.ErrNoSuchItem)
	}
	candidate := ds.candidates[candidateIndex]
	ds.candidates = nil
	ds.candidatesFor = -1
	ds.mu.Unlock()

	// Drop any still-pending search so a late delivery cannot reopen the
	// dropdown after the pick.
	ds.suggester.Issue()

	if _, err := ds.session.ApplyToItem(index, candidate); err != nil {
		return domain.DraftView{}, err
	}
	return ds.view(), nil
}

// Suggest is the synchronous suggestion endpoint used outside of a draft.
// Adapter failures degrade to an empty list.
func (s *Service) Suggest(ctx context.Context, ownerID string, query string) []domain.Candidate {
	candidates, err := s.suggester.Search(ctx, ownerID, query)
	if err != nil {
		log.Printf("[service] WARN: suggestion search %q failed: %v", query, err)
		return []domain.Candidate{}
	}
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	return candidates
}

func (s *Service) HSNRates(code string) []float64 {
	return s.hsn.Rates(code)
}

// SubmitDraft finalizes a draft into a persisted invoice. The tax split is
// decided here from the seller and buyer state codes, never by the client.
// A failed submit leaves the draft open so the user can fix and retry.
func (s *Service) SubmitDraft(ctx context.Context, ownerID string, draftID string) (domain.SubmitResult, error) {
	ds, err := s.draft(draftID, ownerID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	if err := ds.session.ValidateForSubmit(); err != nil {
		return domain.SubmitResult{}, err
	}
	snap := ds.session.Snapshot()

	profile, err := s.repo.GetProfile(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SubmitResult{}, fmt.Errorf("%w: business profile required", compose.ErrNotSubmittable)
		}
		return domain.SubmitResult{}, err
	}

	customer, err := s.repo.GetCustomerByID(ctx, ownerID, snap.Header.CustomerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.SubmitResult{}, fmt.Errorf("%w: unknown customer %s", compose.ErrNotSubmittable, snap.Header.CustomerID)
		}
		return domain.SubmitResult{}, err
	}

	now := time.Now().UTC()
	if profile.Plan == domain.PlanFree {
		issued, err := s.repo.CountInvoicesInMonth(ctx, ownerID, now.Year(), now.Month())
		if err != nil {
			return domain.SubmitResult{}, err
		}
		if issued >= s.freePlanInvoiceLimit {
			return domain.SubmitResult{}, fmt.Errorf("%w: free plan allows %d invoices per month", store.ErrSubscriptionRequired, s.freePlanInvoiceLimit)
		}
	}

	lines := make([]domain.InvoiceLine, 0, len(snap.Items))
	var subtotal, tax float64
	for _, item := range snap.Items {
		base := item.Quantity * item.Rate * (1 - item.DiscountPercent/100)
		lineTax := base * item.GSTRate / 100
		subtotal += base
		tax += lineTax

		if !item.Code.IsZero() && s.hsn.Exists(item.Code.Value) && !s.hsn.RateMatches(item.Code.Value, item.GSTRate) {
			log.Printf("[service] WARN: item %q uses %s %s with rate %.2f%%, master list disagrees", item.Description, item.Code.Kind, item.Code.Value, item.GSTRate)
		}

		printDescription := item.Description
		if !item.PrintDescription.CanAutoFill() {
			printDescription = item.PrintDescription.Value
		}

		lines = append(lines, domain.InvoiceLine{
			Description:      strings.TrimSpace(item.Description),
			PrintDescription: printDescription,
			Code:             item.Code,
			GSTRate:          item.GSTRate,
			Unit:             item.Unit,
			Quantity:         item.Quantity,
			Rate:             item.Rate,
			DiscountPercent:  item.DiscountPercent,
			LineAmount:       compose.Round2(base),
			TaxAmount:        compose.Round2(lineTax),
			TemplateID:       item.TemplateID,
		})
	}

	fy := fiscalYear(snap.Header.IssueDate)
	seq, err := s.repo.NextInvoiceSeq(ctx, ownerID, fy)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	prefix := profile.InvoicePrefix
	if prefix == "" {
		prefix = defaultInvoicePrefix
	}

	invoice := domain.Invoice{
		ID:             xid.New("inv"),
		OwnerID:        ownerID,
		Number:         fmt.Sprintf("%s/%s/%04d", prefix, fy, seq),
		CustomerID:     customer.ID,
		IssueDate:      snap.Header.IssueDate,
		DueDate:        snap.Header.DueDate,
		ReverseCharge:  snap.Header.ReverseCharge,
		ExportType:     snap.Header.ExportType,
		EcommerceGSTIN: snap.Header.EcommerceGSTIN,
		Terms:          snap.Header.Terms,
		Lines:          lines,
		Subtotal:       compose.Round2(subtotal),
		Total:          compose.Round2(subtotal + tax),
		Status:         domain.InvoiceStatusIssued,
		CreatedAt:      now,
	}

	if interstate(profile.StateCode, customer.StateCode, snap.Header.ExportType) {
		invoice.IGST = compose.Round2(tax)
	} else {
		half := compose.Round2(tax / 2)
		invoice.CGST = half
		invoice.SGST = half
	}

	created, err := s.repo.CreateInvoice(ctx, invoice)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	report := s.learner.Learn(ctx, ownerID, created.Lines)
	if report.Saved > 0 {
		notification := domain.Notification{
			ID:        xid.New("ntf"),
			OwnerID:   ownerID,
			Kind:      domain.NotificationTemplatesLearned,
			Message:   fmt.Sprintf("Saved %d new item template(s) from invoice %s", report.Saved, created.Number),
			CreatedAt: now,
		}
		if err := s.repo.CreateNotification(ctx, notification); err != nil {
			log.Printf("[service] WARN: failed to create notification for %s: %v", created.ID, err)
		}
	}

	s.logAudit(ctx, ownerID, "invoice_submit", "invoice", created.ID, fmt.Sprintf("number=%s,total=%.2f,learned=%d", created.Number, created.Total, report.Saved))

	s.discardDraft(draftID)

	return domain.SubmitResult{Invoice: *created, TemplatesLearned: report.Saved}, nil
}

// fiscalYear formats the Indian fiscal year (April to March) an issue date
// falls into, e.g. "2026-27" for any date from 2026-04-01 to 2027-03-31.
func fiscalYear(t time.Time) string {
	year := t.Year()
	if t.Month() < time.April {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// interstate reports whether supply crosses state lines. Exports always
// attract IGST regardless of state codes.
func interstate(sellerState string, buyerState string, exportType string) bool {
	if exportType != "" {
		return true
	}
	return sellerState != buyerState
}

func (s *Service) CreateCustomer(ctx context.Context, ownerID string, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.GSTIN = strings.ToUpper(strings.TrimSpace(req.GSTIN))
	req.StateCode = strings.TrimSpace(req.StateCode)

	if req.Name == "" || req.StateCode == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name and state code are required", store.ErrInvalidInvoice)
	}
	if req.GSTIN != "" && (len(req.GSTIN) < 2 || req.StateCode != req.GSTIN[:2]) {
		return domain.Customer{}, fmt.Errorf("%w: state code %s does not match GSTIN prefix", store.ErrInvalidInvoice, req.StateCode)
	}

	customer := domain.Customer{
		ID:        xid.New("cst"),
		OwnerID:   ownerID,
		Name:      req.Name,
		GSTIN:     req.GSTIN,
		StateCode: req.StateCode,
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logAudit(ctx, ownerID, "customer_create", "customer", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context, ownerID string) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, ownerID)
}

func (s *Service) GetCustomer(ctx context.Context, ownerID string, customerID string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, ownerID, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateTemplate(ctx context.Context, ownerID string, req domain.TemplateCreateRequest) (domain.Template, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Template{}, fmt.Errorf("%w: template name is required", store.ErrInvalidInvoice)
	}
	if req.Kind != domain.TemplateKindService && req.Kind != domain.TemplateKindProduct {
		return domain.Template{}, fmt.Errorf("%w: unknown template kind %q", store.ErrInvalidInvoice, req.Kind)
	}

	existing, err := s.repo.ListTemplates(ctx, ownerID)
	if err != nil {
		return domain.Template{}, err
	}
	for _, template := range existing {
		if strings.EqualFold(template.Name, req.Name) && template.Code.Equal(req.Code) {
			return domain.Template{}, fmt.Errorf("%w: %s", store.ErrDuplicateTemplate, req.Name)
		}
	}

	template := domain.Template{
		ID:          xid.New("tpl"),
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Code:        req.Code,
		GSTRate:     req.GSTRate,
		Unit:        strings.TrimSpace(req.Unit),
		BaseRate:    req.BaseRate,
		Kind:        req.Kind,
		IsActive:    true,
		IsDefault:   req.IsDefault,
		CreatedAt:   time.Now().UTC(),
	}

	created, err := s.repo.CreateTemplate(ctx, template)
	if err != nil {
		return domain.Template{}, err
	}

	s.logAudit(ctx, ownerID, "template_create", "template", created.ID, fmt.Sprintf("name=%s,kind=%s", created.Name, created.Kind))
	return *created, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, ownerID string, templateID string, req domain.TemplateUpdateRequest) (domain.Template, error) {
	existing, err := s.repo.GetTemplateByID(ctx, ownerID, templateID)
	if err != nil {
		return domain.Template{}, err
	}

	template := *existing
	if req.Name != nil {
		template.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		template.Description = strings.TrimSpace(*req.Description)
	}
	if req.Code != nil {
		template.Code = *req.Code
	}
	if req.GSTRate != nil {
		template.GSTRate = *req.GSTRate
	}
	if req.Unit != nil {
		template.Unit = *req.Unit
	}
	if req.BaseRate != nil {
		template.BaseRate = *req.BaseRate
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		template.IsDefault = *req.IsDefault
	}
	if template.Name == "" {
		return domain.Template{}, fmt.Errorf("%w: template name is required", store.ErrInvalidInvoice)
	}

	updated, err := s.repo.UpdateTemplate(ctx, template)
	if err != nil {
		return domain.Template{}, err
	}

	s.logAudit(ctx, ownerID, "template_update", "template", updated.ID, fmt.Sprintf("name=%s,active=%t", updated.Name, updated.IsActive))
	return *updated, nil
}

func (s *Service) ListTemplates(ctx context.Context, ownerID string) ([]domain.Template, error) {
	return s.repo.ListTemplates(ctx, ownerID)
}

func (s *Service) GetProfile(ctx context.Context, ownerID string) (domain.BusinessProfile, error) {
	profile, err := s.repo.GetProfile(ctx, ownerID)
	if err != nil {
		return domain.BusinessProfile{}, err
	}
	return *profile, nil
}

// UpsertProfile writes the seller profile. The subscription plan and the
// original creation time survive updates; SetPlan is the only way to move
// between plans.
func (s *Service) UpsertProfile(ctx context.Context, ownerID string, req domain.ProfileUpsertRequest) (domain.BusinessProfile, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleOwner {
		return domain.BusinessProfile{}, fmt.Errorf("owner role required")
	}

	req.LegalName = strings.TrimSpace(req.LegalName)
	req.GSTIN = strings.ToUpper(strings.TrimSpace(req.GSTIN))
	req.StateCode = strings.TrimSpace(req.StateCode)

	if req.LegalName == "" || req.GSTIN == "" || req.StateCode == "" {
		return domain.BusinessProfile{}, fmt.Errorf("%w: legal name, GSTIN and state code are required", store.ErrInvalidInvoice)
	}
	if len(req.GSTIN) < 2 || req.StateCode != req.GSTIN[:2] {
		return domain.BusinessProfile{}, fmt.Errorf("%w: state code %s does not match GSTIN prefix", store.ErrInvalidInvoice, req.StateCode)
	}

	profile := domain.BusinessProfile{
		OwnerID:       ownerID,
		LegalName:     req.LegalName,
		TradeName:     strings.TrimSpace(req.TradeName),
		GSTIN:         req.GSTIN,
		StateCode:     req.StateCode,
		Address:       strings.TrimSpace(req.Address),
		InvoicePrefix: strings.TrimSpace(req.InvoicePrefix),
		DefaultTerms:  strings.TrimSpace(req.DefaultTerms),
		Plan:          domain.PlanFree,
		CreatedAt:     time.Now().UTC(),
	}
	if profile.InvoicePrefix == "" {
		profile.InvoicePrefix = defaultInvoicePrefix
	}

	if existing, err := s.repo.GetProfile(ctx, ownerID); err == nil {
		profile.Plan = existing.Plan
		profile.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.BusinessProfile{}, err
	}

	saved, err := s.repo.UpsertProfile(ctx, profile)
	if err != nil {
		return domain.BusinessProfile{}, err
	}

	s.logAudit(ctx, ownerID, "profile_upsert", "profile", ownerID, fmt.Sprintf("gstin=%s", saved.GSTIN))
	return *saved, nil
}

func (s *Service) SetPlan(ctx context.Context, ownerID string, plan domain.SubscriptionPlan) (domain.BusinessProfile, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleOwner {
		return domain.BusinessProfile{}, fmt.Errorf("owner role required")
	}
	if plan != domain.PlanFree && plan != domain.PlanPro {
		return domain.BusinessProfile{}, fmt.Errorf("%w: unknown plan %q", store.ErrInvalidInvoice, plan)
	}

	existing, err := s.repo.GetProfile(ctx, ownerID)
	if err != nil {
		return domain.BusinessProfile{}, err
	}

	profile := *existing
	profile.Plan = plan

	saved, err := s.repo.UpsertProfile(ctx, profile)
	if err != nil {
		return domain.BusinessProfile{}, err
	}

	s.logAudit(ctx, ownerID, "plan_change", "profile", ownerID, fmt.Sprintf("plan=%s", plan))
	return *saved, nil
}

func (s *Service) ListInvoices(ctx context.Context, ownerID string, limit int) ([]domain.Invoice, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListInvoices(ctx, ownerID, limit)
}

func (s *Service) GetInvoice(ctx context.Context, ownerID string, invoiceID string) (domain.Invoice, error) {
	invoice, err := s.repo.GetInvoiceByID(ctx, ownerID, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *invoice, nil
}

// RecordPayment applies a payment against an invoice. Amounts beyond the
// outstanding balance are capped; the final payment flips the status to
// paid, anything earlier to partial.
func (s *Service) RecordPayment(ctx context.Context, ownerID string, req domain.PaymentCreateRequest) (domain.Payment, error) {
	if req.Amount <= 0 {
		return domain.Payment{}, fmt.Errorf("%w: payment amount must be positive", store.ErrInvalidInvoice)
	}

	invoice, err := s.repo.GetInvoiceByID(ctx, ownerID, req.InvoiceID)
	if err != nil {
		return domain.Payment{}, err
	}

	outstanding := compose.Round2(invoice.Total - invoice.AmountPaid)
	if outstanding <= 0 {
		return domain.Payment{}, fmt.Errorf("%w: invoice %s is already settled", store.ErrInvalidInvoice, invoice.Number)
	}

	amount := req.Amount
	if amount > outstanding {
		amount = outstanding
	}

	payment := domain.Payment{
		ID:         xid.New("pay"),
		InvoiceID:  invoice.ID,
		Amount:     amount,
		Method:     strings.TrimSpace(req.Method),
		Reference:  strings.TrimSpace(req.Reference),
		ReceivedAt: time.Now().UTC(),
	}

	created, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		return domain.Payment{}, err
	}

	paid := compose.Round2(invoice.AmountPaid + amount)
	status := domain.InvoiceStatusPartial
	if paid >= invoice.Total-0.005 {
		status = domain.InvoiceStatusPaid
	}
	if err := s.repo.SetInvoicePaymentState(ctx, invoice.ID, paid, status); err != nil {
		return domain.Payment{}, err
	}

	s.logAudit(ctx, ownerID, "payment_record", "invoice", invoice.ID, fmt.Sprintf("amount=%.2f,status=%s", amount, status))
	return *created, nil
}

func (s *Service) ListPayments(ctx context.Context, ownerID string, invoiceID string) ([]domain.Payment, error) {
	if _, err := s.repo.GetInvoiceByID(ctx, ownerID, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, invoiceID)
}

func (s *Service) ListNotifications(ctx context.Context, ownerID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListNotifications(ctx, ownerID, limit)
}

func (s *Service) ListAuditLogs(ctx context.Context, ownerID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleOwner {
		return nil, fmt.Errorf("owner role required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, ownerID, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, ownerID string, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		OwnerID:       ownerID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}
