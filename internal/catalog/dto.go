package catalog

// CreateCategoryRequest is the admin payload for a new category.
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	IconClass   string `json:"icon_class" validate:"omitempty,max=50"`
	IsActive    *bool  `json:"is_active"`
}

// CreateSubCategoryRequest is the admin payload for a new subcategory.
type CreateSubCategoryRequest struct {
	CategoryID  int64  `json:"category_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

// CreateBrandRequest is the admin payload for a new brand.
type CreateBrandRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=100"`
	LogoURL     string `json:"logo_url" validate:"omitempty,url"`
	Description string `json:"description"`
	Website     string `json:"website" validate:"omitempty,url"`
	IsActive    *bool  `json:"is_active"`
}

// ProductRequest is the create/update payload for a product. SKU and slug are
// optional; absent values are generated.
type ProductRequest struct {
	Name               string  `json:"name" validate:"required,max=200"`
	Slug               string  `json:"slug" validate:"omitempty,max=200"`
	SKU                string  `json:"sku" validate:"omitempty,max=50"`
	CategoryID         int64   `json:"category_id" validate:"required,gt=0"`
	SubCategoryID      int64   `json:"subcategory_id" validate:"required,gt=0"`
	BrandID            int64   `json:"brand_id" validate:"required,gt=0"`
	Price              float64 `json:"price" validate:"required,gt=0,lte=999999.99"`
	DiscountPercentage int     `json:"discount_percentage" validate:"gte=0,lte=100"`
	StockQuantity      int     `json:"stock_quantity" validate:"gte=0"`
	MinStockLevel      *int    `json:"min_stock_level" validate:"omitempty,gte=0"`
	Description        string  `json:"description"`
	Features           string  `json:"features"`
	ImageURL           string  `json:"image_url" validate:"omitempty,url"`
	IsActive           *bool   `json:"is_active"`
	IsFeatured         bool    `json:"is_featured"`
	IsBestseller       bool    `json:"is_bestseller"`
}

func (req ProductRequest) toProduct() Product {
	minStock := 5
	if req.MinStockLevel != nil {
		minStock = *req.MinStockLevel
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return Product{
		Name:               req.Name,
		Slug:               req.Slug,
		SKU:                req.SKU,
		CategoryID:         req.CategoryID,
		SubCategoryID:      req.SubCategoryID,
		BrandID:            req.BrandID,
		Price:              req.Price,
		DiscountPercentage: req.DiscountPercentage,
		StockQuantity:      req.StockQuantity,
		MinStockLevel:      minStock,
		Description:        req.Description,
		Features:           req.Features,
		ImageURL:           req.ImageURL,
		IsActive:           active,
		IsFeatured:         req.IsFeatured,
		IsBestseller:       req.IsBestseller,
	}
}

// ProductView decorates a Product with its computed pricing and stock fields
// for API responses.
type ProductView struct {
	Product
	IsOnSale     bool        `json:"is_on_sale"`
	CurrentPrice float64     `json:"current_price"`
	StockStatus  StockStatus `json:"stock_status"`
}

// NewProductView builds the response shape for a product.
func NewProductView(p Product) ProductView {
	return ProductView{
		Product:      p,
		IsOnSale:     p.IsOnSale(),
		CurrentPrice: p.CurrentPrice(),
		StockStatus:  p.StockStatus(),
	}
}

// NewProductViews maps a product slice.
func NewProductViews(products []Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, NewProductView(p))
	}
	return out
}
