package learning

import (
	"context"
	"errors"
	"testing"

	"billmitra/backend/internal/domain"
)

type fakeTemplateStore struct {
	templates []domain.Template
	listErr   error
	failNames map[string]bool
	listCalls int
}

func (f *fakeTemplateStore) ListTemplates(_ context.Context, _ string) ([]domain.Template, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Template, len(f.templates))
	copy(out, f.templates)
	return out, nil
}

func (f *fakeTemplateStore) CreateTemplate(_ context.Context, template domain.Template) (*domain.Template, error) {
	if f.failNames[template.Name] {
		return nil, errors.New("storage unavailable")
	}
	f.templates = append(f.templates, template)
	return &template, nil
}

func sacCode(value string) domain.ClassificationCode {
	return domain.ClassificationCode{Kind: domain.CodeKindSAC, Value: value}
}

func hsnCode(value string) domain.ClassificationCode {
	return domain.ClassificationCode{Kind: domain.CodeKindHSN, Value: value}
}

func pricedLine(description string, code domain.ClassificationCode) domain.InvoiceLine {
	return domain.InvoiceLine{
		Description: description,
		Code:        code,
		GSTRate:     18,
		Unit:        "hour",
		Quantity:    1,
		Rate:        1500,
	}
}

func TestLearnSavesEligibleLines(t *testing.T) {
	store := &fakeTemplateStore{}
	engine := NewEngine(store)

	report := engine.Learn(context.Background(), "usr_1", []domain.InvoiceLine{
		pricedLine("Web Development", sacCode("998314")),
		pricedLine("SEO Audit", sacCode("998365")),
	})

	if report.Saved != 2 || report.Failed != 0 {
		t.Fatalf("report = %+v, want 2 saved", report)
	}
	if len(store.templates) != 2 {
		t.Fatalf("stored %d templates, want 2", len(store.templates))
	}
	first := store.templates[0]
	if first.Name != "Web Development" || first.Kind != domain.TemplateKindService {
		t.Fatalf("unexpected template %+v", first)
	}
	if !first.IsActive {
		t.Fatal("learned template should be active")
	}
	if first.BaseRate != 1500 || first.GSTRate != 18 {
		t.Fatalf("template rates = %v/%v, want 1500/18", first.BaseRate, first.GSTRate)
	}
}

func TestLearnClassifiesHSNLinesAsProducts(t *testing.T) {
	store := &fakeTemplateStore{}
	engine := NewEngine(store)

	engine.Learn(context.Background(), "usr_1", []domain.InvoiceLine{
		pricedLine("Wireless Keyboard", hsnCode("84716060")),
	})

	if got := store.templates[0].Kind; got != domain.TemplateKindProduct {
		t.Fatalf("kind = %q, want product", got)
	}
}

func TestLearnSkipsIneligibleLines(t *testing.T) {
	store := &fakeTemplateStore{}
	engine := NewEngine(store)

	unpriced := pricedLine("Consulting Retainer", sacCode("998311"))
	unpriced.Rate = 0

	report := engine.Learn(context.Background(), "usr_1", []domain.InvoiceLine{
		pricedLine("abc", sacCode("998314")),            // too short
		pricedLine("Misc item", sacCode("9983")),        // generic trailing word
		pricedLine("Demo setup test.", hsnCode("8471")), // trailing punctuation still denied
		unpriced,
	})

	if report.Eligible != 0 || report.Saved != 0 {
		t.Fatalf("report = %+v, want nothing eligible", report)
	}
	if len(store.templates) != 0 {
		t.Fatalf("stored %d templates, want 0", len(store.templates))
	}
}

func TestLearnDedupesAgainstExistingTemplates(t *testing.T) {
	store := &fakeTemplateStore{
		templates: []domain.Template{{
			ID:          "tpl_1",
			OwnerID:     "usr_1",
			Name:        "Web Development",
			Description: "Web Development",
			Code:        sacCode("998314"),
		}},
	}
	engine := NewEngine(store)

	report := engine.Learn(context.Background(), "usr_1", []domain.InvoiceLine{
		pricedLine("web development", sacCode("998314")),          // case-insensitive dup
		pricedLine("Web Development", hsnCode("998314")),          // different code kind, not a dup
		pricedLine("Web Development", domain.ClassificationCode{}), // codeless, not a dup of a coded template
	})

	if report.Duplicates != 1 || report.Saved != 2 {
		t.Fatalf("report = %+v, want 1 duplicate and 2 saved", report)
	}
}

func TestLearnDedupesWithinTheBatch(t *testing.T) {
	store := &fakeTemplateStore{}
	engine := NewEngine(store)

	report := engine.Learn(context.Background(), "usr_1", []domain.InvoiceLine{
		pricedLine("Logo Design", sacCode("998391")),
		pricedLine("logo design", sacCode("998391")),
	})

	if report.Saved != 1 || report.Duplicates != 1 {
		t.Fatalf("report = %+v, want earlier save visible to later line", report)
	}
}

func TestLearnSwallowsSaveFailures(t *testing.T) {
	store := &fakeTemplateStore{failNames: map[string]bool{"Broken Entry": true}}
	engine := NewEngine(store)

	report := engine.Learn(context.Background(), "usr_1", []domain.InvoiceLine{
		pricedLine("Broken Entry", sacCode("998314")),
		pricedLine("Healthy Entry", sacCode("998365")),
	})

	if report.Failed != 1 || report.Saved != 1 {
		t.Fatalf("report = %+v, want failure counted and pass continued", report)
	}
}

func TestLearnSkipsPassWhenListingFails(t *testing.T) {
	store := &fakeTemplateStore{listErr: errors.New("connection refused")}
	engine := NewEngine(store)

	report := engine.Learn(context.Background(), "usr_1", []domain.InvoiceLine{
		pricedLine("Web Development", sacCode("998314")),
	})

	if report.Saved != 0 || report.Considered != 1 {
		t.Fatalf("report = %+v, want pass skipped without error", report)
	}
}
