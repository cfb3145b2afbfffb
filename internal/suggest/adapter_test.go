package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"billmitra/backend/internal/cache"
	"billmitra/backend/internal/domain"
)

type fakeCatalog struct {
	templates []domain.Template
	entries   []domain.CatalogEntry
	searchErr error
	calls     int
}

func (f *fakeCatalog) SearchCatalog(_ context.Context, query string, _ []domain.CatalogKind, _ int) ([]domain.CatalogEntry, error) {
	f.calls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	needle := strings.ToLower(query)
	matched := make([]domain.CatalogEntry, 0, len(f.entries))
	for _, entry := range f.entries {
		if strings.Contains(strings.ToLower(entry.Name), needle) {
			matched = append(matched, entry)
		}
	}
	return matched, nil
}

func (f *fakeCatalog) ListTemplates(_ context.Context, _ string) ([]domain.Template, error) {
	return f.templates, nil
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		templates: []domain.Template{
			{ID: "tpl-1", Name: "Design Retainer", Description: "Monthly design retainer", IsActive: true, GSTRate: 18, Unit: "month", BaseRate: 25000},
			{ID: "tpl-2", Name: "Design Audit", Description: "One-off design audit", IsActive: true, GSTRate: 18},
			{ID: "tpl-3", Name: "Logo Design", Description: "Brand logo design", IsActive: true, IsDefault: true, GSTRate: 18},
			{ID: "tpl-4", Name: "Web Design", Description: "Website design", IsActive: true, GSTRate: 18},
			{ID: "tpl-5", Name: "Design Sprint", Description: "inactive", IsActive: false, GSTRate: 18},
		},
		entries: []domain.CatalogEntry{
			{ID: "cat-1", Kind: domain.CatalogKindProduct, Name: "Design Software License", Code: domain.ClassificationCode{Kind: domain.CodeKindHSN, Value: "8523"}, GSTRate: 18},
			{ID: "cat-2", Kind: domain.CatalogKindService, Name: "Interior Design Service", Code: domain.ClassificationCode{Kind: domain.CodeKindSAC, Value: "998391"}, GSTRate: 18},
		},
	}
}

func TestSearchRankingAndTemplateCap(t *testing.T) {
	adapter := NewAdapter(newFakeCatalog(), cache.NoopSuggestionCache{}, time.Second)

	candidates, err := adapter.Search(context.Background(), "owner", "design")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	// 3 templates (capped, default first), then the service, then the product.
	if len(candidates) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(candidates))
	}
	for i := 0; i < 3; i++ {
		if candidates[i].Origin != domain.OriginUserTemplate {
			t.Fatalf("position %d: expected user template, got %s", i, candidates[i].Origin)
		}
	}
	if candidates[0].Name != "Logo Design" {
		t.Fatalf("default template must rank first, got %q", candidates[0].Name)
	}
	if candidates[3].Origin != domain.OriginServiceCatalog {
		t.Fatalf("expected service catalog after templates, got %s", candidates[3].Origin)
	}
	if candidates[4].Origin != domain.OriginProductCatalog {
		t.Fatalf("expected product catalog last, got %s", candidates[4].Origin)
	}
}

func TestSearchSkipsInactiveTemplates(t *testing.T) {
	adapter := NewAdapter(newFakeCatalog(), cache.NoopSuggestionCache{}, time.Second)

	candidates, err := adapter.Search(context.Background(), "owner", "sprint")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	for _, candidate := range candidates {
		if candidate.Origin == domain.OriginUserTemplate {
			t.Fatalf("inactive template surfaced: %+v", candidate)
		}
	}
}

func TestSearchShortQueryIsLocal(t *testing.T) {
	catalog := newFakeCatalog()
	adapter := NewAdapter(catalog, cache.NoopSuggestionCache{}, time.Second)

	candidates, err := adapter.Search(context.Background(), "owner", " d ")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if candidates != nil {
		t.Fatalf("expected nil candidates for short query, got %v", candidates)
	}
	if catalog.calls != 0 {
		t.Fatalf("short query must not hit the catalog, got %d calls", catalog.calls)
	}
}

func TestSearchNoMatchesIsEmptyNotError(t *testing.T) {
	adapter := NewAdapter(newFakeCatalog(), cache.NoopSuggestionCache{}, time.Second)

	candidates, err := adapter.Search(context.Background(), "owner", "zzzz")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected empty result, got %v", candidates)
	}
}

func TestSearchPropagatesCatalogError(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.searchErr = errors.New("catalog down")
	adapter := NewAdapter(catalog, cache.NoopSuggestionCache{}, time.Second)

	if _, err := adapter.Search(context.Background(), "owner", "design"); err == nil {
		t.Fatalf("expected error propagation")
	}
}

type mapCache struct {
	entries map[string][]domain.Candidate
}

func (m *mapCache) Get(_ context.Context, key string) ([]domain.Candidate, bool, error) {
	candidates, ok := m.entries[key]
	return candidates, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, candidates []domain.Candidate, _ time.Duration) error {
	m.entries[key] = candidates
	return nil
}

func TestSearchUsesCache(t *testing.T) {
	catalog := newFakeCatalog()
	adapter := NewAdapter(catalog, &mapCache{entries: make(map[string][]domain.Candidate)}, time.Second)

	if _, err := adapter.Search(context.Background(), "owner", "design"); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if _, err := adapter.Search(context.Background(), "owner", "DESIGN"); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if catalog.calls != 1 {
		t.Fatalf("expected one catalog hit with warm cache, got %d", catalog.calls)
	}
}
