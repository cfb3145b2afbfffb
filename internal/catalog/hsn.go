package catalog

import (
	"math"
	"sort"

	"billmitra/backend/internal/domain"
)

// Lookup answers HSN/SAC rate questions from an in-memory index of the
// master rate list. Immutable after construction, safe for concurrent use.
type Lookup struct {
	byCode map[string][]domain.HSNEntry
}

func NewLookup(entries []domain.HSNEntry) *Lookup {
	byCode := make(map[string][]domain.HSNEntry, len(entries))
	for _, entry := range entries {
		byCode[entry.Code] = append(byCode[entry.Code], entry)
	}
	return &Lookup{byCode: byCode}
}

// Exists reports whether the code, or one of its 6/4-digit prefixes, is in
// the master list. Chapter-level codes cover their longer descendants.
func (l *Lookup) Exists(code string) bool {
	return len(l.entriesFor(code)) > 0
}

// Rates returns the valid rate entries for a code, with prefix fallback,
// sorted ascending by rate.
func (l *Lookup) Rates(code string) []float64 {
	entries := l.entriesFor(code)
	if len(entries) == 0 {
		return nil
	}
	rates := make([]float64, 0, len(entries))
	for _, entry := range entries {
		rates = append(rates, entry.GSTRate)
	}
	sort.Float64s(rates)
	return rates
}

// RateMatches reports whether gstRate is a valid rate for the code. Codes
// absent from the master list match nothing.
func (l *Lookup) RateMatches(code string, gstRate float64) bool {
	for _, entry := range l.entriesFor(code) {
		if math.Abs(entry.GSTRate-gstRate) < 0.01 {
			return true
		}
	}
	return false
}

func (l *Lookup) entriesFor(code string) []domain.HSNEntry {
	if len(l.byCode) == 0 || code == "" {
		return nil
	}
	if entries, ok := l.byCode[code]; ok {
		return entries
	}
	for _, prefixLen := range []int{6, 4} {
		if len(code) > prefixLen {
			if entries, ok := l.byCode[code[:prefixLen]]; ok {
				return entries
			}
		}
	}
	return nil
}
