package domain

import "time"

type CodeKind string

const (
	CodeKindHSN CodeKind = "HSN"
	CodeKindSAC CodeKind = "SAC"
)

// ClassificationCode is an HSN (goods) or SAC (services) tax classification.
// The zero value means "no code assigned".
type ClassificationCode struct {
	Kind  CodeKind `json:"kind"`
	Value string   `json:"value"`
}

func (c ClassificationCode) IsZero() bool {
	return c.Value == ""
}

func (c ClassificationCode) Equal(other ClassificationCode) bool {
	return c.Kind == other.Kind && c.Value == other.Value
}

type StickyState string

const (
	StickyUnset   StickyState = "unset"
	StickyAuto    StickyState = "auto"
	StickyUserSet StickyState = "user"
)

// StickyText is a text field that tracks who wrote it last. Automatic
// assignment is only permitted while the field is still unset. Once a value
// has been written, by autofill or by the user, even an empty string, no
// further automatic write may change it.
type StickyText struct {
	State StickyState `json:"state"`
	Value string      `json:"value"`
}

func (s StickyText) CanAutoFill() bool {
	return s.State == "" || s.State == StickyUnset
}

func AutoText(value string) StickyText {
	return StickyText{State: StickyAuto, Value: value}
}

func UserText(value string) StickyText {
	return StickyText{State: StickyUserSet, Value: value}
}

// SearchState is the per-line search cursor. It lives only for the duration
// of a composition session and is never persisted.
type SearchState struct {
	Query  string `json:"query"`
	IsOpen bool   `json:"is_open"`
}

// LineItem is one editable row of an invoice being composed.
// Rate == 0 means "no rate entered yet"; candidate application may fill it.
type LineItem struct {
	Description      string             `json:"description"`
	PrintDescription StickyText         `json:"print_description"`
	Code             ClassificationCode `json:"code"`
	GSTRate          float64            `json:"gst_rate"`
	Unit             string             `json:"unit"`
	Quantity         float64            `json:"quantity"`
	Rate             float64            `json:"rate"`
	DiscountPercent  float64            `json:"discount_percent"`
	TemplateID       string             `json:"template_id,omitempty"`
	Search           SearchState        `json:"search"`
}

// LineItemPatch carries a shallow partial update; nil fields are untouched.
// A non-nil PrintDescription is always treated as a direct user edit.
type LineItemPatch struct {
	Description      *string             `json:"description,omitempty"`
	PrintDescription *string             `json:"print_description,omitempty"`
	Code             *ClassificationCode `json:"code,omitempty"`
	GSTRate          *float64            `json:"gst_rate,omitempty"`
	Unit             *string             `json:"unit,omitempty"`
	Quantity         *float64            `json:"quantity,omitempty"`
	Rate             *float64            `json:"rate,omitempty"`
	DiscountPercent  *float64            `json:"discount_percent,omitempty"`
	SearchQuery      *string             `json:"search_query,omitempty"`
	SearchOpen       *bool               `json:"search_open,omitempty"`
}

type CandidateOrigin string

const (
	OriginUserTemplate   CandidateOrigin = "user_template"
	OriginServiceCatalog CandidateOrigin = "service_catalog"
	OriginProductCatalog CandidateOrigin = "product_catalog"
)

// Candidate is one ranked suggestion returned by the suggestion adapter.
type Candidate struct {
	Origin      CandidateOrigin    `json:"origin"`
	TemplateID  string             `json:"template_id,omitempty"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Code        ClassificationCode `json:"code"`
	GSTRate     float64            `json:"gst_rate"`
	DefaultUnit string             `json:"default_unit"`
	DefaultRate float64            `json:"default_rate"`
}

type TemplateKind string

const (
	TemplateKindService TemplateKind = "service"
	TemplateKindProduct TemplateKind = "product"
)

// Template is a reusable line-item blueprint owned by a business profile.
// Created explicitly via the template manager or implicitly by the learning
// engine after invoice submission; never auto-deleted.
type Template struct {
	ID          string             `json:"id"`
	OwnerID     string             `json:"owner_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Code        ClassificationCode `json:"code"`
	GSTRate     float64            `json:"gst_rate"`
	Unit        string             `json:"unit"`
	BaseRate    float64            `json:"base_rate"`
	Kind        TemplateKind       `json:"kind"`
	IsActive    bool               `json:"is_active"`
	IsDefault   bool               `json:"is_default"`
	CreatedAt   time.Time          `json:"created_at"`
}

type TemplateCreateRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Code        ClassificationCode `json:"code"`
	GSTRate     float64            `json:"gst_rate"`
	Unit        string             `json:"unit"`
	BaseRate    float64            `json:"base_rate"`
	Kind        TemplateKind       `json:"kind"`
	IsDefault   bool               `json:"is_default"`
}

type TemplateUpdateRequest struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	Code        *ClassificationCode `json:"code,omitempty"`
	GSTRate     *float64            `json:"gst_rate,omitempty"`
	Unit        *string             `json:"unit,omitempty"`
	BaseRate    *float64            `json:"base_rate,omitempty"`
	IsActive    *bool               `json:"is_active,omitempty"`
	IsDefault   *bool               `json:"is_default,omitempty"`
}

type CatalogKind string

const (
	CatalogKindService CatalogKind = "service"
	CatalogKindProduct CatalogKind = "product"
)

// CatalogEntry is one row of the shared service/product catalog that backs
// free-text suggestion search.
type CatalogEntry struct {
	ID          string             `json:"id"`
	Kind        CatalogKind        `json:"kind"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Code        ClassificationCode `json:"code"`
	GSTRate     float64            `json:"gst_rate"`
	DefaultUnit string             `json:"default_unit"`
	DefaultRate float64            `json:"default_rate"`
}

// HSNEntry is one row of the HSN/SAC master rate list.
type HSNEntry struct {
	Code          string  `json:"code"`
	GSTRate       float64 `json:"gst_rate"`
	ConditionDesc string  `json:"condition_desc,omitempty"`
}

type Customer struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	GSTIN     string    `json:"gstin,omitempty"`
	StateCode string    `json:"state_code"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name      string `json:"name"`
	GSTIN     string `json:"gstin"`
	StateCode string `json:"state_code"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type SubscriptionPlan string

const (
	PlanFree SubscriptionPlan = "free"
	PlanPro  SubscriptionPlan = "pro"
)

// BusinessProfile is the seller profile an owner operates under. The state
// code drives the CGST/SGST vs IGST split at submit.
type BusinessProfile struct {
	OwnerID       string           `json:"owner_id"`
	LegalName     string           `json:"legal_name"`
	TradeName     string           `json:"trade_name,omitempty"`
	GSTIN         string           `json:"gstin"`
	StateCode     string           `json:"state_code"`
	Address       string           `json:"address,omitempty"`
	InvoicePrefix string           `json:"invoice_prefix"`
	DefaultTerms  string           `json:"default_terms,omitempty"`
	Plan          SubscriptionPlan `json:"plan"`
	CreatedAt     time.Time        `json:"created_at"`
}

type ProfileUpsertRequest struct {
	LegalName     string `json:"legal_name"`
	TradeName     string `json:"trade_name"`
	GSTIN         string `json:"gstin"`
	StateCode     string `json:"state_code"`
	Address       string `json:"address"`
	InvoicePrefix string `json:"invoice_prefix"`
	DefaultTerms  string `json:"default_terms"`
}

// DraftHeader is the non-item portion of an invoice under composition.
type DraftHeader struct {
	CustomerID     string    `json:"customer_id"`
	IssueDate      time.Time `json:"issue_date"`
	DueDate        time.Time `json:"due_date"`
	ReverseCharge  bool      `json:"reverse_charge"`
	ExportType     string    `json:"export_type,omitempty"`
	EcommerceGSTIN string    `json:"ecommerce_gstin,omitempty"`
	Terms          string    `json:"terms,omitempty"`
}

type DraftHeaderPatch struct {
	CustomerID     *string    `json:"customer_id,omitempty"`
	IssueDate      *time.Time `json:"issue_date,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ReverseCharge  *bool      `json:"reverse_charge,omitempty"`
	ExportType     *string    `json:"export_type,omitempty"`
	EcommerceGSTIN *string    `json:"ecommerce_gstin,omitempty"`
	Terms          *string    `json:"terms,omitempty"`
}

// TaxPreview is the client-side running estimate. It deliberately carries no
// CGST/SGST/IGST split; that is decided server-side at submit.
type TaxPreview struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// InvoiceLine is a finalized, persisted invoice row.
type InvoiceLine struct {
	Description      string             `json:"description"`
	PrintDescription string             `json:"print_description"`
	Code             ClassificationCode `json:"code"`
	GSTRate          float64            `json:"gst_rate"`
	Unit             string             `json:"unit"`
	Quantity         float64            `json:"quantity"`
	Rate             float64            `json:"rate"`
	DiscountPercent  float64            `json:"discount_percent"`
	LineAmount       float64            `json:"line_amount"`
	TaxAmount        float64            `json:"tax_amount"`
	TemplateID       string             `json:"template_id,omitempty"`
}

type Invoice struct {
	ID             string        `json:"id"`
	OwnerID        string        `json:"owner_id"`
	Number         string        `json:"number"`
	CustomerID     string        `json:"customer_id"`
	IssueDate      time.Time     `json:"issue_date"`
	DueDate        time.Time     `json:"due_date"`
	ReverseCharge  bool          `json:"reverse_charge"`
	ExportType     string        `json:"export_type,omitempty"`
	EcommerceGSTIN string        `json:"ecommerce_gstin,omitempty"`
	Terms          string        `json:"terms,omitempty"`
	Lines          []InvoiceLine `json:"lines"`
	Subtotal       float64       `json:"subtotal"`
	CGST           float64       `json:"cgst"`
	SGST           float64       `json:"sgst"`
	IGST           float64       `json:"igst"`
	Total          float64       `json:"total"`
	AmountPaid     float64       `json:"amount_paid"`
	Status         string        `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// SubmitResult is the authoritative server response for a submitted draft.
// TemplatesLearned is best-effort; individual template save failures reduce
// the count but never fail the submission.
type SubmitResult struct {
	Invoice          Invoice `json:"invoice"`
	TemplatesLearned int     `json:"templates_learned"`
}

type Payment struct {
	ID         string    `json:"id"`
	InvoiceID  string    `json:"invoice_id"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Reference  string    `json:"reference,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

type PaymentCreateRequest struct {
	InvoiceID string  `json:"invoice_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference"`
}

type Notification struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	InvoiceStatusIssued  = "issued"
	InvoiceStatusPartial = "partial"
	InvoiceStatusPaid    = "paid"
)

const (
	RoleOwner      = "owner"
	RoleAccountant = "accountant"
)

const (
	NotificationTemplatesLearned = "templates_learned"
)
