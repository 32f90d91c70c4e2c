package catalog

import (
	"time"

	"github.com/revforge/revforge/internal/shared"
)

// StockStatus classifies a product's inventory level for display.
type StockStatus string

const (
	StockStatusOut = StockStatus("out_of_stock")
	StockStatusLow = StockStatus("low_stock")
	StockStatusIn  = StockStatus("in_stock")
)

// MaxPrice is the upper bound for a product price.
const MaxPrice = 999999.99

// Category is a top-level grouping of performance parts.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	IconClass   string    `json:"icon_class,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SubCategory belongs to exactly one Category. (name, category) is unique.
type SubCategory struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"category_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Brand is a parts manufacturer.
type Brand struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	LogoURL     string    `json:"logo_url,omitempty"`
	Description string    `json:"description,omitempty"`
	Website     string    `json:"website,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product is a sellable part. Sale pricing is derived exclusively from
// DiscountPercentage via ApplyDiscount; SalePrice is never set directly.
type Product struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	SKU                string    `json:"sku"`
	CategoryID         int64     `json:"category_id"`
	SubCategoryID      int64     `json:"subcategory_id"`
	BrandID            int64     `json:"brand_id"`
	VendorID           *int64    `json:"vendor_id,omitempty"`
	Price              float64   `json:"price"`
	DiscountPercentage int       `json:"discount_percentage"`
	SalePrice          *float64  `json:"sale_price,omitempty"`
	StockQuantity      int       `json:"stock_quantity"`
	MinStockLevel      int       `json:"min_stock_level"`
	Description        string    `json:"description,omitempty"`
	Features           string    `json:"features,omitempty"`
	ImageURL           string    `json:"image_url,omitempty"`
	IsActive           bool      `json:"is_active"`
	IsFeatured         bool      `json:"is_featured"`
	IsBestseller       bool      `json:"is_bestseller"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ApplyDiscount recomputes SalePrice from Price and DiscountPercentage.
// Discount is the sole source of truth: a zero discount clears the sale price.
// Called on every save path.
func (p *Product) ApplyDiscount() {
	if p.DiscountPercentage <= 0 {
		p.SalePrice = nil
		return
	}
	sale := shared.Round2(p.Price * (1 - float64(p.DiscountPercentage)/100))
	p.SalePrice = &sale
}

// IsOnSale reports whether the sale price is set and undercuts the list price.
func (p *Product) IsOnSale() bool {
	return p.SalePrice != nil && *p.SalePrice < p.Price
}

// CurrentPrice is the effective price charged for the product.
func (p *Product) CurrentPrice() float64 {
	if p.IsOnSale() {
		return *p.SalePrice
	}
	return p.Price
}

// StockStatus compares stock on hand to zero and the minimum level.
func (p *Product) StockStatus() StockStatus {
	switch {
	case p.StockQuantity == 0:
		return StockStatusOut
	case p.StockQuantity <= p.MinStockLevel:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}
