package pricing

import "fmt"

// Category splits tickets by age group.
type Category string

const (
	CategoryAdult Category = "adult"
	CategoryChild Category = "child"
)

// Variant identifies which price a line item was sold at.
type Variant string

const (
	VariantFull   Variant = "full"
	VariantVolume Variant = "volume"
	VariantUitPas Variant = "uitpas"
)

// Show is one performance. Number and Time appear on the printed ticket.
// The catalog order is chronological and drives the volume discount.
type Show struct {
	ID     string
	Name   string
	Date   string
	Time   string
	Number int
}

// PriceTable holds ticket prices in euro cents.
type PriceTable struct {
	AdultCents  int64
	ChildCents  int64
	VolumeCents int64
}

// Full returns the undiscounted price for a category.
func (p PriceTable) Full(c Category) int64 {
	if c == CategoryChild {
		return p.ChildCents
	}
	return p.AdultCents
}

// UitPas returns the means-tested price: 20% of the full price.
func (p PriceTable) UitPas(c Category) int64 {
	return p.Full(c) / 5
}

// Config is the immutable catalog the engine prices against.
type Config struct {
	Shows  []Show
	Prices PriceTable
}

// Counts is the requested quantity per category for one show.
type Counts struct {
	Adult int
	Child int
}

// Claim is a means-tested discount card presented with the cart.
type Claim struct {
	Number   string
	Category Category
}

// LineItem is one priced position of a quote. UitPas lines carry
// quantity 1 and the claim number that backs them.
type LineItem struct {
	ShowID       string
	Category     Category
	Variant      Variant
	Label        string
	UnitAmount   int64
	Quantity     int
	UitPasNumber string
}

// Engine prices carts against a fixed show catalog.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Shows returns the catalog in chronological order.
func (e *Engine) Shows() []Show {
	return e.cfg.Shows
}

// ShowByID looks a show up by its cart key.
func (e *Engine) ShowByID(id string) (Show, bool) {
	for _, s := range e.cfg.Shows {
		if s.ID == id {
			return s, true
		}
	}
	return Show{}, false
}

// Prices returns the active price table.
func (e *Engine) Prices() PriceTable {
	return e.cfg.Prices
}

// Quote prices a cart. Shows are walked in catalog order; within a show
// adults price before children. Per category the UitPas claims of that
// category are allocated first (one line per claim, 20% of full price),
// then up to the largest quantity seen for the category in any earlier
// show goes at the flat volume price, and the rest at full price. The
// seen maximum is updated with the requested quantity before discounts,
// so the discount is earned by the biggest earlier show and spent on
// later ones. Claims are re-offered to every show.
//
// Input validation (claim format, duplicates, negative counts) happens
// upstream; Quote assumes a well-formed cart.
func (e *Engine) Quote(cart map[string]Counts, claims []Claim) ([]LineItem, int64) {
	maxSeen := map[Category]int{}
	var items []LineItem
	var total int64

	for _, show := range e.cfg.Shows {
		counts, ok := cart[show.ID]
		if !ok {
			continue
		}

		used := map[string]bool{}
		for _, cat := range []Category{CategoryAdult, CategoryChild} {
			requested := counts.Adult
			if cat == CategoryChild {
				requested = counts.Child
			}
			if requested <= 0 {
				continue
			}

			remainder := requested
			for _, claim := range claims {
				if remainder == 0 || claim.Category != cat || used[claim.Number] {
					continue
				}
				used[claim.Number] = true
				remainder--
				items = append(items, LineItem{
					ShowID:       show.ID,
					Category:     cat,
					Variant:      VariantUitPas,
					Label:        e.label(show, cat, VariantUitPas),
					UnitAmount:   e.cfg.Prices.UitPas(cat),
					Quantity:     1,
					UitPasNumber: claim.Number,
				})
				total += e.cfg.Prices.UitPas(cat)
			}

			volume := min(remainder, maxSeen[cat])
			if volume > 0 {
				items = append(items, LineItem{
					ShowID:     show.ID,
					Category:   cat,
					Variant:    VariantVolume,
					Label:      e.label(show, cat, VariantVolume),
					UnitAmount: e.cfg.Prices.VolumeCents,
					Quantity:   volume,
				})
				total += e.cfg.Prices.VolumeCents * int64(volume)
			}

			if full := remainder - volume; full > 0 {
				items = append(items, LineItem{
					ShowID:     show.ID,
					Category:   cat,
					Variant:    VariantFull,
					Label:      e.label(show, cat, VariantFull),
					UnitAmount: e.cfg.Prices.Full(cat),
					Quantity:   full,
				})
				total += e.cfg.Prices.Full(cat) * int64(full)
			}

			if requested > maxSeen[cat] {
				maxSeen[cat] = requested
			}
		}
	}

	return items, total
}

func (e *Engine) label(show Show, cat Category, variant Variant) string {
	base := "GROOT (>12j)"
	if cat == CategoryChild {
		base = "KLEIN (-12j)"
	}
	switch variant {
	case VariantVolume:
		base += " [Korting]"
	case VariantUitPas:
		base += " [UiTPAS]"
	}
	return fmt.Sprintf("%s - SHOW %d (%s)", base, show.Number, show.Time)
}
