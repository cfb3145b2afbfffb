package catalog

import (
	"testing"

	"billmitra/backend/internal/domain"
)

func testLookup() *Lookup {
	return NewLookup([]domain.HSNEntry{
		{Code: "998314", GSTRate: 18},
		{Code: "8471", GSTRate: 18},
		{Code: "610910", GSTRate: 5},
		{Code: "996511", GSTRate: 5},
		{Code: "996511", GSTRate: 12, ConditionDesc: "with input tax credit"},
	})
}

func TestExactCodeLookup(t *testing.T) {
	lookup := testLookup()

	if !lookup.Exists("998314") {
		t.Fatal("exact code should exist")
	}
	if lookup.Exists("999999") {
		t.Fatal("unknown code should not exist")
	}
}

func TestPrefixFallback(t *testing.T) {
	lookup := testLookup()

	// 8-digit code covered by its 4-digit chapter entry.
	if !lookup.Exists("84713010") {
		t.Fatal("8-digit code should fall back to the 4-digit entry")
	}
	// 8-digit code covered by a 6-digit entry.
	if !lookup.Exists("61091000") {
		t.Fatal("8-digit code should fall back to the 6-digit entry")
	}
	// A short code never falls back to longer entries.
	if lookup.Exists("9983") {
		t.Fatal("4-digit code must not match a 6-digit entry")
	}
}

func TestRatesSortedWithConditionalEntries(t *testing.T) {
	lookup := testLookup()

	rates := lookup.Rates("996511")
	if len(rates) != 2 || rates[0] != 5 || rates[1] != 12 {
		t.Fatalf("rates = %v, want [5 12]", rates)
	}
}

func TestRateMatches(t *testing.T) {
	lookup := testLookup()

	if !lookup.RateMatches("996511", 5) || !lookup.RateMatches("996511", 12) {
		t.Fatal("both conditional rates should match")
	}
	if lookup.RateMatches("996511", 18) {
		t.Fatal("18% is not a valid rate for 996511")
	}
	if lookup.RateMatches("999999", 18) {
		t.Fatal("unknown code matches nothing")
	}
	// Tolerates float noise.
	if !lookup.RateMatches("998314", 18.0000001) {
		t.Fatal("tiny float noise should still match")
	}
}
