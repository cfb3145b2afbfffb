package learning

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"billmitra/backend/internal/domain"
	"billmitra/backend/internal/xid"
)

// TemplateStore is the slice of the repository the engine needs.
type TemplateStore interface {
	ListTemplates(ctx context.Context, ownerID string) ([]domain.Template, error)
	CreateTemplate(ctx context.Context, template domain.Template) (*domain.Template, error)
}

// Descriptions ending in one of these words are too generic to be worth
// keeping as reusable templates.
var denyWords = []string{"test", "sample", "demo", "item", "product", "service"}

// Engine silently learns reusable templates from the line items of a
// submitted invoice. It runs only after the submission has been accepted
// and never fails it: every error here is swallowed, logged and counted.
type Engine struct {
	repo TemplateStore
	deny map[string]struct{}
}

func NewEngine(repo TemplateStore) *Engine {
	deny := make(map[string]struct{}, len(denyWords))
	for _, word := range denyWords {
		deny[word] = struct{}{}
	}
	return &Engine{repo: repo, deny: deny}
}

// Report is the best-effort outcome of one learning pass.
type Report struct {
	Considered int
	Eligible   int
	Saved      int
	Duplicates int
	Failed     int
}

// Learn runs the dedup/save pass over the submitted lines. Saves are
// sequential: a template saved earlier in the batch is visible to the
// duplicate check for every later line.
func (e *Engine) Learn(ctx context.Context, ownerID string, lines []domain.InvoiceLine) Report {
	report := Report{Considered: len(lines)}

	existing, err := e.repo.ListTemplates(ctx, ownerID)
	if err != nil {
		log.Printf("[learning] WARN: listing templates for %s failed, skipping pass: %v", ownerID, err)
		return report
	}

	seen := make(map[string]struct{}, len(existing))
	for _, template := range existing {
		seen[dedupKey(template.Description, template.Code)] = struct{}{}
	}

	for _, line := range lines {
		if !e.eligible(line) {
			continue
		}
		report.Eligible++

		key := dedupKey(line.Description, line.Code)
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}

		kind := domain.TemplateKindService
		if !line.Code.IsZero() && line.Code.Kind == domain.CodeKindHSN {
			kind = domain.TemplateKindProduct
		}

		template := domain.Template{
			ID:          xid.New("tpl"),
			OwnerID:     ownerID,
			Name:        strings.TrimSpace(line.Description),
			Description: strings.TrimSpace(line.Description),
			Code:        line.Code,
			GSTRate:     line.GSTRate,
			Unit:        line.Unit,
			BaseRate:    line.Rate,
			Kind:        kind,
			IsActive:    true,
			CreatedAt:   time.Now().UTC(),
		}

		if _, err := e.repo.CreateTemplate(ctx, template); err != nil {
			log.Printf("[learning] WARN: saving template %q failed: %v", template.Name, err)
			report.Failed++
			continue
		}
		seen[key] = struct{}{}
		report.Saved++
	}

	return report
}

// eligible filters out lines not worth keeping: too-short descriptions,
// unpriced lines, and descriptions trailing off into a generic placeholder
// word.
func (e *Engine) eligible(line domain.InvoiceLine) bool {
	description := strings.TrimSpace(line.Description)
	if utf8.RuneCountInString(description) <= 3 {
		return false
	}
	if line.Rate <= 0 {
		return false
	}

	words := strings.Fields(strings.ToLower(description))
	last := strings.Trim(words[len(words)-1], ".,;:!?")
	if _, denied := e.deny[last]; denied {
		return false
	}
	return true
}

// dedupKey treats two items as the same template when description matches
// case-insensitively AND the classification code matches exactly. A
// codeless item never collides with a code-bearing template.
func dedupKey(description string, code domain.ClassificationCode) string {
	return strings.ToLower(strings.TrimSpace(description)) + "|" + string(code.Kind) + ":" + code.Value
}
