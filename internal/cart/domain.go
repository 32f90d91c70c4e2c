package cart

import (
	"time"

	"github.com/revforge/revforge/internal/shared"
)

// Cart is a user's single open cart. One row per user, created lazily on
// first access.
type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a cart line joined with the live product record. Prices here are
// current, not snapshots; checkout freezes them into order items.
type Item struct {
	ID          int64     `json:"id"`
	CartID      int64     `json:"cart_id"`
	ProductID   int64     `json:"product_id"`
	Quantity    int       `json:"quantity"`
	ProductName string    `json:"product_name"`
	ProductSlug string    `json:"product_slug"`
	ProductSKU  string    `json:"product_sku"`
	Price       float64   `json:"price"`
	SalePrice   *float64  `json:"sale_price,omitempty"`
	StockLeft   int       `json:"stock_left"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UnitPrice is the sale price when one is set, the list price otherwise.
func (i Item) UnitPrice() float64 {
	if i.SalePrice != nil {
		return *i.SalePrice
	}
	return i.Price
}

// LineTotal is the item's contribution to the cart total.
func (i Item) LineTotal() float64 {
	return shared.Round2(i.UnitPrice() * float64(i.Quantity))
}

// Totals summarizes a cart for display and for the checkout preview.
type Totals struct {
	TotalItems   int     `json:"total_items"`
	TotalPrice   float64 `json:"total_price"`
	Tax          float64 `json:"tax"`
	TotalWithTax float64 `json:"total_with_tax"`
}

func computeTotals(items []Item, taxRate float64) Totals {
	var t Totals
	for _, it := range items {
		t.TotalItems += it.Quantity
		t.TotalPrice += it.LineTotal()
	}
	t.TotalPrice = shared.Round2(t.TotalPrice)
	t.Tax = shared.Round2(t.TotalPrice * taxRate)
	t.TotalWithTax = shared.Round2(t.TotalPrice + t.Tax)
	return t
}
