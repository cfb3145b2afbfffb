package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"billmitra/backend/internal/domain"
	"billmitra/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SearchCatalog(ctx context.Context, query string, kinds []domain.CatalogKind, limit int) ([]domain.CatalogEntry, error) {
	if limit < 1 {
		limit = 8
	}
	kindValues := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		kindValues = append(kindValues, string(kind))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, name, description, code_kind, code_value, gst_rate, default_unit, default_rate
		FROM catalog_entries
		WHERE (name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		  AND kind = ANY($2)
		ORDER BY kind, name
		LIMIT $3
	`, query, kindValues, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.CatalogEntry, 0, limit)
	for rows.Next() {
		var entry domain.CatalogEntry
		if err := rows.Scan(&entry.ID, &entry.Kind, &entry.Name, &entry.Description, &entry.Code.Kind, &entry.Code.Value, &entry.GSTRate, &entry.DefaultUnit, &entry.DefaultRate); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Store) ListHSNEntries(ctx context.Context) ([]domain.HSNEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, gst_rate, COALESCE(condition_desc, '')
		FROM hsn_entries
		ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.HSNEntry, 0, 256)
	for rows.Next() {
		var entry domain.HSNEntry
		if err := rows.Scan(&entry.Code, &entry.GSTRate, &entry.ConditionDesc); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Store) CreateTemplate(ctx context.Context, template domain.Template) (*domain.Template, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, owner_id, name, description, code_kind, code_value, gst_rate, unit, base_rate, kind, is_active, is_default, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, template.ID, template.OwnerID, template.Name, template.Description, template.Code.Kind, template.Code.Value,
		template.GSTRate, template.Unit, template.BaseRate, template.Kind, template.IsActive, template.IsDefault, template.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateTemplate
		}
		return nil, err
	}

	created := template
	return &created, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, template domain.Template) (*domain.Template, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates
		SET name = $3, description = $4, code_kind = $5, code_value = $6, gst_rate = $7, unit = $8, base_rate = $9, is_active = $10, is_default = $11
		WHERE id = $1 AND owner_id = $2
	`, template.ID, template.OwnerID, template.Name, template.Description, template.Code.Kind, template.Code.Value,
		template.GSTRate, template.Unit, template.BaseRate, template.IsActive, template.IsDefault)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := template
	return &updated, nil
}

func (s *Store) GetTemplateByID(ctx context.Context, ownerID string, templateID string) (*domain.Template, error) {
	var template domain.Template
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, description, code_kind, code_value, gst_rate, unit, base_rate, kind, is_active, is_default, created_at
		FROM templates
		WHERE id = $1 AND owner_id = $2
	`, templateID, ownerID).Scan(&template.ID, &template.OwnerID, &template.Name, &template.Description,
		&template.Code.Kind, &template.Code.Value, &template.GSTRate, &template.Unit, &template.BaseRate,
		&template.Kind, &template.IsActive, &template.IsDefault, &template.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

func (s *Store) ListTemplates(ctx context.Context, ownerID string) ([]domain.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, description, code_kind, code_value, gst_rate, unit, base_rate, kind, is_active, is_default, created_at
		FROM templates
		WHERE owner_id = $1
		ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]domain.Template, 0, 64)
	for rows.Next() {
		var template domain.Template
		if err := rows.Scan(&template.ID, &template.OwnerID, &template.Name, &template.Description,
			&template.Code.Kind, &template.Code.Value, &template.GSTRate, &template.Unit, &template.BaseRate,
			&template.Kind, &template.IsActive, &template.IsDefault, &template.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, owner_id, name, gstin, state_code, email, phone, address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, customer.ID, customer.OwnerID, customer.Name, customer.GSTIN, customer.StateCode,
		customer.Email, customer.Phone, customer.Address, customer.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, ownerID string, customerID string) (*domain.Customer, error) {
	var customer domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, gstin, state_code, email, phone, address, created_at
		FROM customers
		WHERE id = $1 AND owner_id = $2
	`, customerID, ownerID).Scan(&customer.ID, &customer.OwnerID, &customer.Name, &customer.GSTIN,
		&customer.StateCode, &customer.Email, &customer.Phone, &customer.Address, &customer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context, ownerID string) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, gstin, state_code, email, phone, address, created_at
		FROM customers
		WHERE owner_id = $1
		ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(&customer.ID, &customer.OwnerID, &customer.Name, &customer.GSTIN,
			&customer.StateCode, &customer.Email, &customer.Phone, &customer.Address, &customer.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return customers, nil
}

func (s *Store) GetProfile(ctx context.Context, ownerID string) (*domain.BusinessProfile, error) {
	var profile domain.BusinessProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id, legal_name, trade_name, gstin, state_code, address, invoice_prefix, default_terms, plan, created_at
		FROM business_profiles
		WHERE owner_id = $1
	`, ownerID).Scan(&profile.OwnerID, &profile.LegalName, &profile.TradeName, &profile.GSTIN,
		&profile.StateCode, &profile.Address, &profile.InvoicePrefix, &profile.DefaultTerms, &profile.Plan, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (s *Store) UpsertProfile(ctx context.Context, profile domain.BusinessProfile) (*domain.BusinessProfile, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO business_profiles (owner_id, legal_name, trade_name, gstin, state_code, address, invoice_prefix, default_terms, plan, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (owner_id) DO UPDATE SET
			legal_name = EXCLUDED.legal_name,
			trade_name = EXCLUDED.trade_name,
			gstin = EXCLUDED.gstin,
			state_code = EXCLUDED.state_code,
			address = EXCLUDED.address,
			invoice_prefix = EXCLUDED.invoice_prefix,
			default_terms = EXCLUDED.default_terms,
			plan = EXCLUDED.plan
	`, profile.OwnerID, profile.LegalName, profile.TradeName, profile.GSTIN, profile.StateCode,
		profile.Address, profile.InvoicePrefix, profile.DefaultTerms, profile.Plan, profile.CreatedAt)
	if err != nil {
		return nil, err
	}

	saved := profile
	return &saved, nil
}

func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.ID == "" || invoice.Number == "" || len(invoice.Lines) == 0 {
		return nil, store.ErrInvalidInvoice
	}

	linesJSON, err := json.Marshal(invoice.Lines)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, owner_id, number, customer_id, issue_date, due_date, reverse_charge, export_type, ecommerce_gstin, terms, lines, subtotal, cgst, sgst, igst, total, amount_paid, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, invoice.ID, invoice.OwnerID, invoice.Number, invoice.CustomerID, invoice.IssueDate, invoice.DueDate,
		invoice.ReverseCharge, invoice.ExportType, invoice.EcommerceGSTIN, invoice.Terms, linesJSON,
		invoice.Subtotal, invoice.CGST, invoice.SGST, invoice.IGST, invoice.Total, invoice.AmountPaid,
		invoice.Status, invoice.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInvoice
		}
		return nil, err
	}

	created := invoice
	return &created, nil
}

func scanInvoice(scan func(...any) error) (*domain.Invoice, error) {
	var invoice domain.Invoice
	var linesRaw []byte
	err := scan(&invoice.ID, &invoice.OwnerID, &invoice.Number, &invoice.CustomerID, &invoice.IssueDate,
		&invoice.DueDate, &invoice.ReverseCharge, &invoice.ExportType, &invoice.EcommerceGSTIN, &invoice.Terms,
		&linesRaw, &invoice.Subtotal, &invoice.CGST, &invoice.SGST, &invoice.IGST, &invoice.Total,
		&invoice.AmountPaid, &invoice.Status, &invoice.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(linesRaw, &invoice.Lines); err != nil {
		return nil, err
	}
	return &invoice, nil
}

const invoiceColumns = `id, owner_id, number, customer_id, issue_date, due_date, reverse_charge, export_type, ecommerce_gstin, terms, lines, subtotal, cgst, sgst, igst, total, amount_paid, status, created_at`

func (s *Store) GetInvoiceByID(ctx context.Context, ownerID string, invoiceID string) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1 AND owner_id = $2
	`, invoiceID, ownerID)

	invoice, err := scanInvoice(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return invoice, nil
}

func (s *Store) ListInvoices(ctx context.Context, ownerID string, limit int) ([]domain.Invoice, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, limit)
	for rows.Next() {
		invoice, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return invoices, nil
}

// NextInvoiceSeq atomically bumps the per-owner per-fiscal-year counter.
func (s *Store) NextInvoiceSeq(ctx context.Context, ownerID string, fiscalYear string) (int, error) {
	var seq int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO invoice_sequences (owner_id, fiscal_year, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (owner_id, fiscal_year) DO UPDATE SET seq = invoice_sequences.seq + 1
		RETURNING seq
	`, ownerID, fiscalYear).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *Store) CountInvoicesInMonth(ctx context.Context, ownerID string, year int, month time.Month) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM invoices
		WHERE owner_id = $1
		  AND EXTRACT(YEAR FROM created_at) = $2
		  AND EXTRACT(MONTH FROM created_at) = $3
	`, ownerID, year, int(month)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CreatePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, invoice_id, amount, method, reference, received_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, payment.ID, payment.InvoiceID, payment.Amount, payment.Method, payment.Reference, payment.ReceivedAt)
	if err != nil {
		return nil, err
	}

	created := payment
	return &created, nil
}

func (s *Store) ListPayments(ctx context.Context, invoiceID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, amount, method, reference, received_at
		FROM payments
		WHERE invoice_id = $1
		ORDER BY received_at
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, 4)
	for rows.Next() {
		var payment domain.Payment
		if err := rows.Scan(&payment.ID, &payment.InvoiceID, &payment.Amount, &payment.Method, &payment.Reference, &payment.ReceivedAt); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (s *Store) SetInvoicePaymentState(ctx context.Context, invoiceID string, amountPaid float64, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET amount_paid = $2, status = $3
		WHERE id = $1
	`, invoiceID, amountPaid, status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateNotification(ctx context.Context, notification domain.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, owner_id, kind, message, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, notification.ID, notification.OwnerID, notification.Kind, notification.Message, notification.Read, notification.CreatedAt)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, ownerID string, limit int) ([]domain.Notification, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, kind, message, read, created_at
		FROM notifications
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0, limit)
	for rows.Next() {
		var notification domain.Notification
		if err := rows.Scan(&notification.ID, &notification.OwnerID, &notification.Kind, &notification.Message, &notification.Read, &notification.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, owner_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.OwnerID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, ownerID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, ownerID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.OwnerID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidInvoice
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
