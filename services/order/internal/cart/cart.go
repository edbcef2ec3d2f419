// Package cart prices a shopper's cart. Carts live on the client; the server only
// rebuilds them from submitted product ids and quantities.
package cart

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxQuantity caps the units of one product in a single cart.
const MaxQuantity = 1000

var ErrInvalidQuantity = fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)

type Line struct {
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Cart keeps lines in insertion order, at most one per product.
type Cart struct {
	lines []Line
}

func (c *Cart) index(id uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].ProductID == id {
			return i
		}
	}
	return -1
}

// Add merges line into an existing line for the same product, refreshing its snapshot.
func (c *Cart) Add(line Line) error {
	if line.Quantity < 1 || line.Quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if i := c.index(line.ProductID); i >= 0 {
		merged := c.lines[i].Quantity + line.Quantity
		if merged > MaxQuantity {
			return ErrInvalidQuantity
		}
		line.Quantity = merged
		c.lines[i] = line
		return nil
	}
	c.lines = append(c.lines, line)
	return nil
}

// Decrement removes one unit of the product; the line disappears with its last unit.
func (c *Cart) Decrement(id uuid.UUID) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	if c.lines[i].Quantity > 1 {
		c.lines[i].Quantity--
		return true
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

func (c *Cart) Remove(id uuid.UUID) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.lines))
	for i, l := range c.lines {
		ids[i] = l.ProductID
	}
	return ids
}

// SetPrice replaces the snapshot of a line with authoritative catalog data.
func (c *Cart) SetPrice(id uuid.UUID, title, slug, image string, unit decimal.Decimal) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.lines[i].Title = title
	c.lines[i].Slug = slug
	c.lines[i].Image = image
	c.lines[i].UnitPrice = unit
	return true
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// Totals treats prices as tax inclusive: the tax is the share of the subtotal
// attributable to taxRate, and the total equals the subtotal.
func (c *Cart) Totals(taxRate decimal.Decimal) Totals {
	sub := c.Subtotal()
	tax := decimal.Zero
	if taxRate.IsPositive() {
		net := sub.Div(decimal.NewFromInt(1).Add(taxRate))
		tax = sub.Sub(net).Round(2)
	}
	return Totals{Subtotal: sub, Tax: tax, Total: sub}
}

// MinorUnits converts an amount to the smallest currency unit (paise for INR).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
