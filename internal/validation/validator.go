package validation

import (
	"log/slog"
	"os"

	"tsirk/internal/config"
	"tsirk/internal/pricing"
)

type check struct {
	name   string
	cart   map[string]pricing.Counts
	claims []pricing.Claim
	want   func(p pricing.PriceTable) int64
}

// RunValidation quotes a set of known carts against the configured price
// table and exits non-zero on any mismatch. Run it before a deploy with
// `api validate` to catch a broken price or catalog override.
func RunValidation() {
	cfg := config.Load()
	engine := pricing.NewEngine(cfg.Pricing)

	checks := []check{
		{
			name: "single adult full price",
			cart: map[string]pricing.Counts{"s1": {Adult: 1}},
			want: func(p pricing.PriceTable) int64 { return p.AdultCents },
		},
		{
			name: "volume discount carries across shows",
			cart: map[string]pricing.Counts{"s1": {Adult: 2}, "s2": {Adult: 1}, "s3": {Adult: 3}},
			// s1: 2 full; s2: 1 discounted; s3: 2 discounted + 1 full.
			want: func(p pricing.PriceTable) int64 { return 3*p.AdultCents + 3*p.VolumeCents },
		},
		{
			name:   "uitpas claim at a fifth of full price",
			cart:   map[string]pricing.Counts{"s1": {Adult: 1}},
			claims: []pricing.Claim{{Number: "1234567890123", Category: pricing.CategoryAdult}},
			want:   func(p pricing.PriceTable) int64 { return p.AdultCents / 5 },
		},
		{
			name:   "uitpas claim re-applies on every show",
			cart:   map[string]pricing.Counts{"s1": {Adult: 1}, "s2": {Adult: 1}},
			claims: []pricing.Claim{{Number: "1234567890123", Category: pricing.CategoryAdult}},
			want:   func(p pricing.PriceTable) int64 { return 2 * (p.AdultCents / 5) },
		},
		{
			name: "children priced independently",
			cart: map[string]pricing.Counts{"s1": {Child: 2}, "s2": {Child: 1}},
			want: func(p pricing.PriceTable) int64 { return 2*p.ChildCents + p.VolumeCents },
		},
	}

	failed := 0
	for _, c := range checks {
		_, total := engine.Quote(c.cart, c.claims)
		want := c.want(cfg.Pricing.Prices)
		if total != want {
			slog.Error("Pricing check failed", "check", c.name, "want_cents", want, "got_cents", total)
			failed++
			continue
		}
		slog.Info("Pricing check passed", "check", c.name, "total_cents", total)
	}

	if failed > 0 {
		slog.Error("Pricing validation failed", "failed", failed, "total", len(checks))
		os.Exit(1)
	}

	slog.Info("All pricing checks passed", "total", len(checks))
}
