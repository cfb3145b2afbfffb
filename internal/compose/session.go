package compose

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"billmitra/backend/internal/domain"
	"billmitra/backend/internal/xid"
)

var (
	ErrNoSuchItem       = errors.New("no such line item")
	ErrNotSubmittable   = errors.New("draft not submittable")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionForbidden = errors.New("session belongs to another owner")
)

type Surface string

const (
	SurfaceFull      Surface = "full"
	SurfaceQuick     Surface = "quick"
	SurfaceTemplates Surface = "templates"
)

// Session is one invoice composition in progress: an ordered list of line
// items plus the draft header. All mutations go through the session so the
// invariants hold regardless of which surface drives it. Safe for
// concurrent use.
type Session struct {
	ID      string
	OwnerID string
	Surface Surface

	mu        sync.Mutex
	header    domain.DraftHeader
	items     []domain.LineItem
	updatedAt time.Time
}

// Snapshot is a point-in-time copy of a session for rendering.
type Snapshot struct {
	ID      string
	OwnerID string
	Surface Surface
	Header  domain.DraftHeader
	Items   []domain.LineItem
	Preview domain.TaxPreview
}

func newSession(ownerID string, surface Surface, header domain.DraftHeader) *Session {
	s := &Session{
		ID:        xid.New("draft"),
		OwnerID:   ownerID,
		Surface:   surface,
		header:    header,
		updatedAt: time.Now().UTC(),
	}
	// An invoice always has at least one row.
	s.items = []domain.LineItem{defaultItem()}
	return s
}

func defaultItem() domain.LineItem {
	return domain.LineItem{
		PrintDescription: domain.StickyText{State: domain.StickyUnset},
		Quantity:         1,
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.LineItem, len(s.items))
	copy(items, s.items)

	return Snapshot{
		ID:      s.ID,
		OwnerID: s.OwnerID,
		Surface: s.Surface,
		Header:  s.header,
		Items:   items,
		Preview: Preview(items),
	}
}

// AddItem appends a fresh default row and returns its index.
func (s *Session) AddItem() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, defaultItem())
	s.updatedAt = time.Now().UTC()
	return len(s.items) - 1
}

// RemoveItem deletes the row at index. Removing the last remaining row is a
// no-op: the session never drops below one item. Returns whether a row was
// actually removed.
func (s *Session) RemoveItem(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) || len(s.items) <= 1 {
		return false
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	s.updatedAt = time.Now().UTC()
	return true
}

// PatchItem shallow-merges a direct user edit into the row at index. It
// does not run autofill policy; candidate application goes through
// ApplyToItem. A patched print description always transitions to user-set,
// even when the new value is empty, which permanently forecloses automatic
// assignment for this row.
func (s *Session) PatchItem(index int, patch domain.LineItemPatch) (domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return domain.LineItem{}, ErrNoSuchItem
	}

	item := s.items[index]
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.PrintDescription != nil {
		item.PrintDescription = domain.UserText(*patch.PrintDescription)
	}
	if patch.Code != nil {
		item.Code = *patch.Code
	}
	if patch.GSTRate != nil {
		item.GSTRate = *patch.GSTRate
	}
	if patch.Unit != nil {
		item.Unit = *patch.Unit
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.Rate != nil {
		item.Rate = *patch.Rate
	}
	if patch.DiscountPercent != nil {
		item.DiscountPercent = *patch.DiscountPercent
	}
	if patch.SearchQuery != nil {
		item.Search.Query = *patch.SearchQuery
	}
	if patch.SearchOpen != nil {
		item.Search.IsOpen = *patch.SearchOpen
	}

	s.items[index] = item
	s.updatedAt = time.Now().UTC()
	return item, nil
}

// ApplyToItem runs the autofill policy for a selected candidate against the
// row at index.
func (s *Session) ApplyToItem(index int, candidate domain.Candidate) (domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return domain.LineItem{}, ErrNoSuchItem
	}

	s.items[index] = ApplyCandidate(s.items[index], candidate)
	s.updatedAt = time.Now().UTC()
	return s.items[index], nil
}

func (s *Session) PatchHeader(patch domain.DraftHeaderPatch) domain.DraftHeader {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.CustomerID != nil {
		s.header.CustomerID = *patch.CustomerID
	}
	if patch.IssueDate != nil {
		s.header.IssueDate = *patch.IssueDate
	}
	if patch.DueDate != nil {
		s.header.DueDate = *patch.DueDate
	}
	if patch.ReverseCharge != nil {
		s.header.ReverseCharge = *patch.ReverseCharge
	}
	if patch.ExportType != nil {
		s.header.ExportType = *patch.ExportType
	}
	if patch.EcommerceGSTIN != nil {
		s.header.EcommerceGSTIN = *patch.EcommerceGSTIN
	}
	if patch.Terms != nil {
		s.header.Terms = *patch.Terms
	}

	s.updatedAt = time.Now().UTC()
	return s.header
}

// ValidateForSubmit checks the draft fail-fast: the first violation found
// is reported and no further items are inspected.
func (s *Session) ValidateForSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(s.header.CustomerID) == "" {
		return fmt.Errorf("%w: buyer is required", ErrNotSubmittable)
	}
	for i, item := range s.items {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("%w: item %d: description is required", ErrNotSubmittable, i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrNotSubmittable, i+1)
		}
		if item.Rate <= 0 {
			return fmt.Errorf("%w: item %d: rate must be positive", ErrNotSubmittable, i+1)
		}
	}
	return nil
}

// Manager tracks open composition sessions by id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) Open(ownerID string, surface Surface, header domain.DraftHeader) *Session {
	session := newSession(ownerID, surface, header)

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session
}

func (m *Manager) Get(sessionID string, ownerID string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.OwnerID != ownerID {
		return nil, ErrSessionForbidden
	}
	return session, nil
}

// Close discards a session. Called after successful submit; a failed submit
// must NOT close the session so the user can retry without re-entering data.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}
