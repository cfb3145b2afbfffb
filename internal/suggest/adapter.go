package suggest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"billmitra/backend/internal/cache"
	"billmitra/backend/internal/domain"
)

// MinQueryLength is the shortest fragment worth searching; anything shorter
// returns no candidates without touching the catalog.
const MinQueryLength = 2

// Catalog is the slice of the repository the adapter needs.
type Catalog interface {
	SearchCatalog(ctx context.Context, query string, kinds []domain.CatalogKind, limit int) ([]domain.CatalogEntry, error)
	ListTemplates(ctx context.Context, ownerID string) ([]domain.Template, error)
}

// Adapter merges a free-text fragment against the user's own templates and
// the shared service/product catalogs, returning one ordered candidate list:
// user templates first (capped), then service matches, then product matches.
type Adapter struct {
	catalog      Catalog
	cache        cache.SuggestionCache
	cacheTTL     time.Duration
	templateCap  int
	catalogLimit int
}

func NewAdapter(catalog Catalog, cacheStore cache.SuggestionCache, cacheTTL time.Duration) *Adapter {
	if cacheStore == nil {
		cacheStore = cache.NoopSuggestionCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Adapter{
		catalog:      catalog,
		cache:        cacheStore,
		cacheTTL:     cacheTTL,
		templateCap:  3,
		catalogLimit: 8,
	}
}

// Search returns ranked candidates for the fragment. A query matching
// nothing in any source yields an empty, non-nil result and no error.
func (a *Adapter) Search(ctx context.Context, ownerID string, query string) ([]domain.Candidate, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, nil
	}

	key := cacheKey(ownerID, query)
	if cached, ok, err := a.cache.Get(ctx, key); err == nil && ok {
		return cached, nil
	}

	candidates := make([]domain.Candidate, 0, a.templateCap+2*a.catalogLimit)

	fromTemplates, err := a.matchTemplates(ctx, ownerID, query)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, fromTemplates...)

	entries, err := a.catalog.SearchCatalog(ctx, query, []domain.CatalogKind{domain.CatalogKindService, domain.CatalogKindProduct}, a.catalogLimit)
	if err != nil {
		return nil, err
	}
	for _, kind := range []domain.CatalogKind{domain.CatalogKindService, domain.CatalogKindProduct} {
		for _, entry := range entries {
			if entry.Kind != kind {
				continue
			}
			candidates = append(candidates, catalogCandidate(entry))
		}
	}

	_ = a.cache.Set(ctx, key, candidates, a.cacheTTL)
	return candidates, nil
}

// matchTemplates is a local case-insensitive contains filter over the
// owner's active templates, ranked defaults-then-name, capped.
func (a *Adapter) matchTemplates(ctx context.Context, ownerID string, query string) ([]domain.Candidate, error) {
	templates, err := a.catalog.ListTemplates(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matched := make([]domain.Template, 0, len(templates))
	for _, template := range templates {
		if !template.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(template.Name), needle) ||
			strings.Contains(strings.ToLower(template.Description), needle) {
			matched = append(matched, template)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].IsDefault != matched[j].IsDefault {
			return matched[i].IsDefault
		}
		return matched[i].Name < matched[j].Name
	})

	if len(matched) > a.templateCap {
		matched = matched[:a.templateCap]
	}

	candidates := make([]domain.Candidate, 0, len(matched))
	for _, template := range matched {
		candidates = append(candidates, domain.Candidate{
			Origin:      domain.OriginUserTemplate,
			TemplateID:  template.ID,
			Name:        template.Name,
			Description: template.Description,
			Code:        template.Code,
			GSTRate:     template.GSTRate,
			DefaultUnit: template.Unit,
			DefaultRate: template.BaseRate,
		})
	}
	return candidates, nil
}

func catalogCandidate(entry domain.CatalogEntry) domain.Candidate {
	origin := domain.OriginProductCatalog
	if entry.Kind == domain.CatalogKindService {
		origin = domain.OriginServiceCatalog
	}
	return domain.Candidate{
		Origin:      origin,
		Name:        entry.Name,
		Description: entry.Description,
		Code:        entry.Code,
		GSTRate:     entry.GSTRate,
		DefaultUnit: entry.DefaultUnit,
		DefaultRate: entry.DefaultRate,
	}
}

func cacheKey(ownerID string, query string) string {
	hash := sha1.Sum([]byte(ownerID + "|" + strings.ToLower(query)))
	return "billmitra:suggest:" + hex.EncodeToString(hash[:])
}
