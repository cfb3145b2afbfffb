package store

import (
	"context"
	"errors"
	"time"

	"billmitra/backend/internal/domain"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInvoice       = errors.New("invalid invoice")
	ErrDuplicateTemplate    = errors.New("duplicate template")
	ErrSubscriptionRequired = errors.New("subscription required")
)

type Repository interface {
	SearchCatalog(ctx context.Context, query string, kinds []domain.CatalogKind, limit int) ([]domain.CatalogEntry, error)
	ListHSNEntries(ctx context.Context) ([]domain.HSNEntry, error)

	CreateTemplate(ctx context.Context, template domain.Template) (*domain.Template, error)
	UpdateTemplate(ctx context.Context, template domain.Template) (*domain.Template, error)
	GetTemplateByID(ctx context.Context, ownerID string, templateID string) (*domain.Template, error)
	ListTemplates(ctx context.Context, ownerID string) ([]domain.Template, error)

	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, ownerID string, customerID string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, ownerID string) ([]domain.Customer, error)

	GetProfile(ctx context.Context, ownerID string) (*domain.BusinessProfile, error)
	UpsertProfile(ctx context.Context, profile domain.BusinessProfile) (*domain.BusinessProfile, error)

	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoiceByID(ctx context.Context, ownerID string, invoiceID string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, ownerID string, limit int) ([]domain.Invoice, error)
	NextInvoiceSeq(ctx context.Context, ownerID string, fiscalYear string) (int, error)
	CountInvoicesInMonth(ctx context.Context, ownerID string, year int, month time.Month) (int, error)

	CreatePayment(ctx context.Context, payment domain.Payment) (*domain.Payment, error)
	ListPayments(ctx context.Context, invoiceID string) ([]domain.Payment, error)
	SetInvoicePaymentState(ctx context.Context, invoiceID string, amountPaid float64, status string) error

	CreateNotification(ctx context.Context, notification domain.Notification) error
	ListNotifications(ctx context.Context, ownerID string, limit int) ([]domain.Notification, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, ownerID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
