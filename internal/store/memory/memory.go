package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"billmitra/backend/internal/domain"
	"billmitra/backend/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	catalogEntries  []domain.CatalogEntry
	hsnEntries      []domain.HSNEntry
	templatesByID   map[string]domain.Template
	customersByID   map[string]domain.Customer
	profilesByOwner map[string]domain.BusinessProfile
	invoicesByID    map[string]domain.Invoice
	invoiceSeqs     map[string]int
	paymentsByID    map[string]domain.Payment
	notifications   []domain.Notification
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

const seedOwnerID = "main-business"

// seedUsers builds the initial accounts for dev/demo mode. Credentials come
// from SEED_OWNER_PASSWORD and SEED_ACCOUNTANT_PASSWORD; hardcoded dev
// defaults are used when unset, with a warning. Production deployments use
// PostgreSQL (DATABASE_URL) and never hit this path.
func seedUsers() map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	accountantPwd := envOr("SEED_ACCOUNTANT_PASSWORD", "accounts123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_ACCOUNTANT_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD and SEED_ACCOUNTANT_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, domain.RoleOwner},
		{"accountant", accountantPwd, domain.RoleAccountant},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func sac(value string) domain.ClassificationCode {
	return domain.ClassificationCode{Kind: domain.CodeKindSAC, Value: value}
}

func hsn(value string) domain.ClassificationCode {
	return domain.ClassificationCode{Kind: domain.CodeKindHSN, Value: value}
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	catalogEntries := []domain.CatalogEntry{
		{ID: "cat_svc_01", Kind: domain.CatalogKindService, Name: "Web Development", Description: "Website design and development", Code: sac("998314"), GSTRate: 18, DefaultUnit: "hour", DefaultRate: 1500},
		{ID: "cat_svc_02", Kind: domain.CatalogKindService, Name: "Software Consulting", Description: "IT consulting and advisory", Code: sac("998313"), GSTRate: 18, DefaultUnit: "hour", DefaultRate: 2000},
		{ID: "cat_svc_03", Kind: domain.CatalogKindService, Name: "Graphic Design", Description: "Logo, branding and design work", Code: sac("998391"), GSTRate: 18, DefaultUnit: "project", DefaultRate: 8000},
		{ID: "cat_svc_04", Kind: domain.CatalogKindService, Name: "Digital Marketing", Description: "SEO and social media campaigns", Code: sac("998365"), GSTRate: 18, DefaultUnit: "month", DefaultRate: 15000},
		{ID: "cat_svc_05", Kind: domain.CatalogKindService, Name: "Accounting Services", Description: "Bookkeeping and GST filing", Code: sac("998222"), GSTRate: 18, DefaultUnit: "month", DefaultRate: 5000},
		{ID: "cat_svc_06", Kind: domain.CatalogKindService, Name: "Legal Consulting", Description: "Contract drafting and review", Code: sac("998212"), GSTRate: 18, DefaultUnit: "hour", DefaultRate: 3000},
		{ID: "cat_svc_07", Kind: domain.CatalogKindService, Name: "Transport Services", Description: "Goods transport by road", Code: sac("996511"), GSTRate: 5, DefaultUnit: "trip", DefaultRate: 4500},
		{ID: "cat_svc_08", Kind: domain.CatalogKindService, Name: "Training Services", Description: "Corporate skill training", Code: sac("999293"), GSTRate: 18, DefaultUnit: "day", DefaultRate: 12000},
		{ID: "cat_prd_01", Kind: domain.CatalogKindProduct, Name: "Laptop Computer", Description: "Portable computer systems", Code: hsn("84713010"), GSTRate: 18, DefaultUnit: "pcs", DefaultRate: 55000},
		{ID: "cat_prd_02", Kind: domain.CatalogKindProduct, Name: "Mobile Phone", Description: "Smartphones and feature phones", Code: hsn("85171300"), GSTRate: 18, DefaultUnit: "pcs", DefaultRate: 20000},
		{ID: "cat_prd_03", Kind: domain.CatalogKindProduct, Name: "Office Chair", Description: "Seating furniture", Code: hsn("94013000"), GSTRate: 18, DefaultUnit: "pcs", DefaultRate: 7500},
		{ID: "cat_prd_04", Kind: domain.CatalogKindProduct, Name: "Printer Ink Cartridge", Description: "Consumables for inkjet printers", Code: hsn("84439951"), GSTRate: 18, DefaultUnit: "pcs", DefaultRate: 1800},
		{ID: "cat_prd_05", Kind: domain.CatalogKindProduct, Name: "Cotton T-Shirt", Description: "Knitted apparel", Code: hsn("610910"), GSTRate: 5, DefaultUnit: "pcs", DefaultRate: 400},
		{ID: "cat_prd_06", Kind: domain.CatalogKindProduct, Name: "LED Bulb", Description: "Energy efficient lighting", Code: hsn("85395000"), GSTRate: 12, DefaultUnit: "pcs", DefaultRate: 150},
		{ID: "cat_prd_07", Kind: domain.CatalogKindProduct, Name: "Packaged Tea", Description: "Black tea in retail packs", Code: hsn("090240"), GSTRate: 5, DefaultUnit: "kg", DefaultRate: 600},
		{ID: "cat_prd_08", Kind: domain.CatalogKindProduct, Name: "Steel Utensils", Description: "Kitchen articles of stainless steel", Code: hsn("732393"), GSTRate: 12, DefaultUnit: "set", DefaultRate: 2200},
	}

	hsnEntries := []domain.HSNEntry{
		{Code: "998314", GSTRate: 18},
		{Code: "998313", GSTRate: 18},
		{Code: "998391", GSTRate: 18},
		{Code: "998365", GSTRate: 18},
		{Code: "998222", GSTRate: 18},
		{Code: "998212", GSTRate: 18},
		{Code: "996511", GSTRate: 5},
		{Code: "996511", GSTRate: 12, ConditionDesc: "with input tax credit"},
		{Code: "999293", GSTRate: 18},
		{Code: "84713010", GSTRate: 18},
		{Code: "8471", GSTRate: 18},
		{Code: "85171300", GSTRate: 18},
		{Code: "94013000", GSTRate: 18},
		{Code: "84439951", GSTRate: 18},
		{Code: "610910", GSTRate: 5},
		{Code: "6109", GSTRate: 5},
		{Code: "85395000", GSTRate: 12},
		{Code: "090240", GSTRate: 5},
		{Code: "732393", GSTRate: 12},
	}

	templates := map[string]domain.Template{
		"tpl_seed_01": {
			ID: "tpl_seed_01", OwnerID: seedOwnerID, Name: "Monthly Retainer", Description: "Monthly development retainer",
			Code: sac("998314"), GSTRate: 18, Unit: "month", BaseRate: 40000,
			Kind: domain.TemplateKindService, IsActive: true, IsDefault: true, CreatedAt: now,
		},
		"tpl_seed_02": {
			ID: "tpl_seed_02", OwnerID: seedOwnerID, Name: "Website Maintenance", Description: "Quarterly website maintenance",
			Code: sac("998314"), GSTRate: 18, Unit: "quarter", BaseRate: 9000,
			Kind: domain.TemplateKindService, IsActive: true, CreatedAt: now,
		},
	}

	customers := map[string]domain.Customer{
		"cst_seed_01": {
			ID: "cst_seed_01", OwnerID: seedOwnerID, Name: "Deshmukh Traders",
			GSTIN: "27AABCD1234E1Z5", StateCode: "27", Email: "accounts@deshmukhtraders.example", CreatedAt: now,
		},
		"cst_seed_02": {
			ID: "cst_seed_02", OwnerID: seedOwnerID, Name: "Kaveri Textiles",
			GSTIN: "29AAACK9876F1Z2", StateCode: "29", Phone: "+91-9876543210", CreatedAt: now,
		},
	}

	profiles := map[string]domain.BusinessProfile{
		seedOwnerID: {
			OwnerID:       seedOwnerID,
			LegalName:     "Demo Business Services",
			GSTIN:         "29AAACD0000A1Z7",
			StateCode:     "29",
			InvoicePrefix: "INV",
			DefaultTerms:  "Payment due within 15 days",
			Plan:          domain.PlanFree,
			CreatedAt:     now,
		},
	}

	return &Store{
		catalogEntries:  catalogEntries,
		hsnEntries:      hsnEntries,
		templatesByID:   templates,
		customersByID:   customers,
		profilesByOwner: profiles,
		invoicesByID:    make(map[string]domain.Invoice),
		invoiceSeqs:     make(map[string]int),
		paymentsByID:    make(map[string]domain.Payment),
		notifications:   make([]domain.Notification, 0, 32),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) SearchCatalog(_ context.Context, query string, kinds []domain.CatalogKind, limit int) ([]domain.CatalogEntry, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	wanted := make(map[domain.CatalogKind]bool, len(kinds))
	for _, kind := range kinds {
		wanted[kind] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CatalogEntry
	for _, entry := range s.catalogEntries {
		if len(wanted) > 0 && !wanted[entry.Kind] {
			continue
		}
		if !strings.Contains(strings.ToLower(entry.Name), query) &&
			!strings.Contains(strings.ToLower(entry.Description), query) {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) ListHSNEntries(_ context.Context) ([]domain.HSNEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.HSNEntry, len(s.hsnEntries))
	copy(out, s.hsnEntries)
	return out, nil
}

func (s *Store) CreateTemplate(_ context.Context, template domain.Template) (*domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.templatesByID {
		if existing.OwnerID == template.OwnerID &&
			strings.EqualFold(existing.Name, template.Name) &&
			existing.Code.Equal(template.Code) {
			return nil, store.ErrDuplicateTemplate
		}
	}

	s.templatesByID[template.ID] = template
	return &template, nil
}

func (s *Store) UpdateTemplate(_ context.Context, template domain.Template) (*domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.templatesByID[template.ID]
	if !ok || existing.OwnerID != template.OwnerID {
		return nil, store.ErrNotFound
	}
	s.templatesByID[template.ID] = template
	return &template, nil
}

func (s *Store) GetTemplateByID(_ context.Context, ownerID string, templateID string) (*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	template, ok := s.templatesByID[templateID]
	if !ok || template.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return &template, nil
}

func (s *Store) ListTemplates(_ context.Context, ownerID string) ([]domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Template, 0, len(s.templatesByID))
	for _, template := range s.templatesByID {
		if template.OwnerID == ownerID {
			out = append(out, template)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customersByID[customer.ID] = customer
	return &customer, nil
}

func (s *Store) GetCustomerByID(_ context.Context, ownerID string, customerID string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customersByID[customerID]
	if !ok || customer.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return &customer, nil
}

func (s *Store) ListCustomers(_ context.Context, ownerID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Customer, 0, len(s.customersByID))
	for _, customer := range s.customersByID {
		if customer.OwnerID == ownerID {
			out = append(out, customer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetProfile(_ context.Context, ownerID string) (*domain.BusinessProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profilesByOwner[ownerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &profile, nil
}

func (s *Store) UpsertProfile(_ context.Context, profile domain.BusinessProfile) (*domain.BusinessProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profilesByOwner[profile.OwnerID] = profile
	return &profile, nil
}

func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.ID == "" || invoice.Number == "" || len(invoice.Lines) == 0 {
		return nil, store.ErrInvalidInvoice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.invoicesByID[invoice.ID] = invoice
	return &invoice, nil
}

func (s *Store) GetInvoiceByID(_ context.Context, ownerID string, invoiceID string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, ok := s.invoicesByID[invoiceID]
	if !ok || invoice.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return &invoice, nil
}

func (s *Store) ListInvoices(_ context.Context, ownerID string, limit int) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Invoice, 0, len(s.invoicesByID))
	for _, invoice := range s.invoicesByID {
		if invoice.OwnerID == ownerID {
			out = append(out, invoice)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) NextInvoiceSeq(_ context.Context, ownerID string, fiscalYear string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerID + "|" + fiscalYear
	s.invoiceSeqs[key]++
	return s.invoiceSeqs[key], nil
}

func (s *Store) CountInvoicesInMonth(_ context.Context, ownerID string, year int, month time.Month) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, invoice := range s.invoicesByID {
		if invoice.OwnerID != ownerID {
			continue
		}
		if invoice.CreatedAt.Year() == year && invoice.CreatedAt.Month() == month {
			count++
		}
	}
	return count, nil
}

func (s *Store) CreatePayment(_ context.Context, payment domain.Payment) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoicesByID[payment.InvoiceID]; !ok {
		return nil, store.ErrNotFound
	}
	s.paymentsByID[payment.ID] = payment
	return &payment, nil
}

func (s *Store) ListPayments(_ context.Context, invoiceID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Payment, 0, 4)
	for _, payment := range s.paymentsByID {
		if payment.InvoiceID == invoiceID {
			out = append(out, payment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

func (s *Store) SetInvoicePaymentState(_ context.Context, invoiceID string, amountPaid float64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoice, ok := s.invoicesByID[invoiceID]
	if !ok {
		return store.ErrNotFound
	}
	invoice.AmountPaid = amountPaid
	invoice.Status = status
	s.invoicesByID[invoiceID] = invoice
	return nil
}

func (s *Store) CreateNotification(_ context.Context, notification domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, notification)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, ownerID string, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Notification, 0, limit)
	// Newest first.
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if s.notifications[i].OwnerID != ownerID {
			continue
		}
		out = append(out, s.notifications[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, ownerID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if entry.OwnerID != ownerID {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		out = append(out, user)
	}
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
