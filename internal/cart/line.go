package cart

import (
	"strings"

	"github.com/ardenoak/storefront/internal/catalog"
	"github.com/ardenoak/storefront/pkg/money"
)

// absentPart marks an unset selection field inside a line key.
const absentPart = "~"

// Selection is the customization chosen for a cart line. Every field is
// optional; two selections are equivalent when every present field matches by
// identity (variation by id, options by id or name).
type Selection struct {
	Finish     catalog.OptionRef  `json:"finish"`
	Upholstery catalog.OptionRef  `json:"upholstery"`
	Color      catalog.OptionRef  `json:"color"`
	Variation  *catalog.Variation `json:"variation,omitempty"`
}

// Key derives the stable line identity for a product and selection. Adding
// the same product with an equivalent selection accumulates quantity on the
// existing line; any differing field yields a new line.
func Key(productID string, sel Selection) string {
	parts := []string{
		productID,
		optionPart(sel.Finish),
		optionPart(sel.Upholstery),
		optionPart(sel.Color),
		variationPart(sel.Variation),
	}
	return strings.Join(parts, "|")
}

func optionPart(opt catalog.OptionRef) string {
	if opt.IsZero() {
		return absentPart
	}
	return opt.Identity()
}

func variationPart(v *catalog.Variation) string {
	if v == nil || v.ID == "" {
		return absentPart
	}
	return v.ID
}

// Line is the addable unit: a product snapshot, a positive quantity, and the
// customization it was added with.
type Line struct {
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Selection Selection        `json:"selection"`
	Product   *catalog.Product `json:"product,omitempty"`
}

// Key returns the line's identity key.
func (l Line) Key() string {
	return Key(l.ProductID, l.Selection)
}

// Subtotal is the effective per-unit price times quantity, in cents.
// Range-priced lines use the conservative minimum quote.
func (l Line) Subtotal(resolver *catalog.Resolver) int64 {
	quote := resolver.EffectivePrice(l.Product, l.Selection.Variation)
	return money.Multiply(quote.Cents, l.Quantity)
}

// QuoteRequired reports whether the line's price needs quote confirmation
// before checkout (range-priced or unpriced products).
func (l Line) QuoteRequired(resolver *catalog.Resolver) bool {
	return resolver.EffectivePrice(l.Product, l.Selection.Variation).QuoteRequired
}

// Lines is an ordered cart collection. Operations preserve insertion order.
type Lines []Line

func (ls Lines) indexOf(key string) int {
	for i := range ls {
		if ls[i].Key() == key {
			return i
		}
	}
	return -1
}

// Find returns the line with the given key, if present.
func (ls Lines) Find(key string) (Line, bool) {
	if i := ls.indexOf(key); i >= 0 {
		return ls[i], true
	}
	return Line{}, false
}

// Add accumulates quantity onto an existing equivalent line or appends a new
// one. Non-positive quantities clamp to 1; a line never holds less than one
// unit.
func (ls Lines) Add(product *catalog.Product, quantity int, sel Selection) Lines {
	if product == nil {
		return ls
	}
	if quantity < 1 {
		quantity = 1
	}

	key := Key(product.ID, sel)
	if i := ls.indexOf(key); i >= 0 {
		ls[i].Quantity += quantity
		ls[i].Product = product
		return ls
	}

	return append(ls, Line{
		ProductID: product.ID,
		Quantity:  quantity,
		Selection: sel,
		Product:   product,
	})
}

// UpdateQuantity sets the quantity for the keyed line, clamping to 1.
// Removal is an explicit separate operation; a zero from the caller never
// deletes the line. Absent keys are a no-op.
func (ls Lines) UpdateQuantity(key string, quantity int) Lines {
	if quantity < 1 {
		quantity = 1
	}
	if i := ls.indexOf(key); i >= 0 {
		ls[i].Quantity = quantity
	}
	return ls
}

// Remove deletes the keyed line. Absent keys are a no-op, not an error.
func (ls Lines) Remove(key string) Lines {
	i := ls.indexOf(key)
	if i < 0 {
		return ls
	}
	return append(ls[:i], ls[i+1:]...)
}

// ItemCount is the sum of quantities, e.g. for the header badge.
func (ls Lines) ItemCount() int {
	count := 0
	for i := range ls {
		count += ls[i].Quantity
	}
	return count
}

// Total sums line subtotals in cents.
func (ls Lines) Total(resolver *catalog.Resolver) int64 {
	var total int64
	for i := range ls {
		total = money.Add(total, ls[i].Subtotal(resolver))
	}
	return total
}

// Clone returns a shallow copy safe for handing to readers while the store
// keeps mutating its own slice.
func (ls Lines) Clone() Lines {
	if ls == nil {
		return nil
	}
	out := make(Lines, len(ls))
	copy(out, ls)
	return out
}
