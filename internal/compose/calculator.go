package compose

import (
	"math"

	"billmitra/backend/internal/domain"
)

// Preview derives the running subtotal/tax/total estimate from the current
// line items. No intermediate rounding: running totals stay full-precision
// so error does not compound across many items. The result is an estimate
// only; the CGST/SGST vs IGST split is decided at submit.
func Preview(items []domain.LineItem) domain.TaxPreview {
	var subtotal, tax float64
	for _, item := range items {
		base := item.Quantity * item.Rate * (1 - item.DiscountPercent/100)
		subtotal += base
		tax += base * item.GSTRate / 100
	}
	return domain.TaxPreview{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// Round2 rounds to two decimals for display and persisted totals.
func Round2(val float64) float64 {
	return math.Round(val*100) / 100
}

// RoundPreview applies display rounding at the edge, leaving callers free
// to keep full-precision previews internally.
func RoundPreview(preview domain.TaxPreview) domain.TaxPreview {
	return domain.TaxPreview{
		Subtotal: Round2(preview.Subtotal),
		Tax:      Round2(preview.Tax),
		Total:    Round2(preview.Total),
	}
}
