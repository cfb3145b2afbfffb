package compose

import (
	"math"
	"testing"

	"billmitra/backend/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPreviewWorkedExample(t *testing.T) {
	items := []domain.LineItem{
		{Quantity: 2, Rate: 100, DiscountPercent: 0, GSTRate: 18},
		{Quantity: 1, Rate: 50, DiscountPercent: 10, GSTRate: 5},
	}

	preview := Preview(items)

	if !almostEqual(preview.Subtotal, 245) {
		t.Fatalf("subtotal = %v, want 245", preview.Subtotal)
	}
	if !almostEqual(preview.Tax, 38.25) {
		t.Fatalf("tax = %v, want 38.25", preview.Tax)
	}
	if !almostEqual(preview.Total, 283.25) {
		t.Fatalf("total = %v, want 283.25", preview.Total)
	}
}

func TestPreviewEmptyItems(t *testing.T) {
	preview := Preview(nil)
	if preview.Subtotal != 0 || preview.Tax != 0 || preview.Total != 0 {
		t.Fatalf("expected zero preview, got %+v", preview)
	}
}

// Rounding happens at the display edge only; the running totals keep full
// precision so many small lines do not accumulate rounding drift.
func TestPreviewDoesNotRoundRunningTotals(t *testing.T) {
	items := make([]domain.LineItem, 0, 300)
	for i := 0; i < 300; i++ {
		items = append(items, domain.LineItem{Quantity: 1, Rate: 0.333, GSTRate: 18})
	}

	preview := Preview(items)
	want := 300 * 0.333
	if !almostEqual(preview.Subtotal, want) {
		t.Fatalf("subtotal drifted: %v, want %v", preview.Subtotal, want)
	}

	rounded := RoundPreview(preview)
	if rounded.Subtotal != Round2(want) {
		t.Fatalf("display rounding: %v, want %v", rounded.Subtotal, Round2(want))
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{38.254, 38.25},
		{38.256, 38.26},
		{245, 245},
		{0, 0},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Fatalf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
