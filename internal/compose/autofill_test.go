package compose

import (
	"reflect"
	"testing"

	"billmitra/backend/internal/domain"
)

func webDevCandidate() domain.Candidate {
	return domain.Candidate{
		Origin:      domain.OriginServiceCatalog,
		Name:        "Web Development",
		Description: "Web Dev",
		Code:        domain.ClassificationCode{Kind: domain.CodeKindSAC, Value: "998314"},
		GSTRate:     18,
		DefaultUnit: "hour",
		DefaultRate: 1500,
	}
}

func TestApplyCandidateFillsMachineOwnedFields(t *testing.T) {
	item := defaultItem()
	applied := ApplyCandidate(item, webDevCandidate())

	if applied.Description != "Web Development" {
		t.Fatalf("unexpected description: %q", applied.Description)
	}
	if applied.Code.Kind != domain.CodeKindSAC || applied.Code.Value != "998314" {
		t.Fatalf("unexpected code: %+v", applied.Code)
	}
	if applied.GSTRate != 18 {
		t.Fatalf("unexpected gst rate: %v", applied.GSTRate)
	}
	if applied.Unit != "hour" {
		t.Fatalf("unexpected unit: %q", applied.Unit)
	}
	if applied.Rate != 1500 {
		t.Fatalf("expected default rate filled, got %v", applied.Rate)
	}
	if applied.PrintDescription.State != domain.StickyAuto || applied.PrintDescription.Value != "Web Dev" {
		t.Fatalf("unexpected print description: %+v", applied.PrintDescription)
	}
}

func TestApplyCandidateIsIdempotent(t *testing.T) {
	candidate := webDevCandidate()

	once := ApplyCandidate(defaultItem(), candidate)
	twice := ApplyCandidate(once, candidate)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("applying twice diverged:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestApplyCandidateNeverOverwritesUserRate(t *testing.T) {
	item := defaultItem()
	item.Rate = 2400

	applied := ApplyCandidate(item, webDevCandidate())
	if applied.Rate != 2400 {
		t.Fatalf("user rate was overwritten: %v", applied.Rate)
	}
}

func TestApplyCandidateFillsRateOnlyWhenUnset(t *testing.T) {
	item := defaultItem()

	first := ApplyCandidate(item, webDevCandidate())
	if first.Rate != 1500 {
		t.Fatalf("expected unset rate to be filled, got %v", first.Rate)
	}

	other := webDevCandidate()
	other.DefaultRate = 9999
	second := ApplyCandidate(first, other)
	if second.Rate != 1500 {
		t.Fatalf("filled rate must stick, got %v", second.Rate)
	}
}

// Auto-assignment happens at most once; user edits win forever, even a
// deliberate empty string.
func TestPrintDescriptionStickiness(t *testing.T) {
	item := defaultItem()

	candidateA := webDevCandidate()
	item = ApplyCandidate(item, candidateA)
	if item.PrintDescription.Value != "Web Dev" {
		t.Fatalf("expected first auto-assignment, got %+v", item.PrintDescription)
	}

	// User clears the field.
	item.PrintDescription = domain.UserText("")

	candidateB := webDevCandidate()
	candidateB.Name = "App Development"
	candidateB.Description = "App Dev"
	item = ApplyCandidate(item, candidateB)

	if item.PrintDescription.State != domain.StickyUserSet || item.PrintDescription.Value != "" {
		t.Fatalf("candidate application must not disturb a user-cleared print description, got %+v", item.PrintDescription)
	}
}

func TestApplyCandidateAutoValueBlocksLaterAutofill(t *testing.T) {
	item := ApplyCandidate(defaultItem(), webDevCandidate())

	candidateB := webDevCandidate()
	candidateB.Description = "Different Text"
	item = ApplyCandidate(item, candidateB)

	if item.PrintDescription.Value != "Web Dev" {
		t.Fatalf("second automatic suggestion changed the print description: %+v", item.PrintDescription)
	}
}

func TestApplyCandidateTemplateBackReference(t *testing.T) {
	fromTemplate := webDevCandidate()
	fromTemplate.Origin = domain.OriginUserTemplate
	fromTemplate.TemplateID = "tpl-123"

	item := ApplyCandidate(defaultItem(), fromTemplate)
	if item.TemplateID != "tpl-123" {
		t.Fatalf("expected template back-reference, got %q", item.TemplateID)
	}

	item = ApplyCandidate(item, webDevCandidate())
	if item.TemplateID != "" {
		t.Fatalf("catalog candidate must clear the template back-reference, got %q", item.TemplateID)
	}
}
