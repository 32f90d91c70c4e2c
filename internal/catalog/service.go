package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/revforge/revforge/internal/shared"
)

// ErrSKUTaken indicates a SKU collision on insert.
var ErrSKUTaken = fmt.Errorf("%w: sku already in use", shared.ErrDuplicate)

// VendorGate answers whether an account holds an approved vendor
// application. Implemented by the users service.
type VendorGate interface {
	IsVerifiedVendor(ctx context.Context, userID int64) (bool, error)
}

// Service owns catalog business rules: slug derivation, SKU generation and the
// discount-driven sale price.
type Service struct {
	repo    Repository
	vendors VendorGate
}

// NewService builds the catalog service. A nil vendor gate disables the
// vendor-scoped operations.
func NewService(repo Repository, vendors VendorGate) *Service {
	return &Service{repo: repo, vendors: vendors}
}

// CreateCategory derives the slug from the name when absent.
func (s *Service) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if err := validateName(c.Name); err != nil {
		return Category{}, err
	}
	if c.Slug == "" {
		c.Slug = shared.Slugify(c.Name)
	}
	return s.repo.CreateCategory(ctx, c)
}

// UpdateCategory keeps an existing slug stable unless explicitly cleared.
func (s *Service) UpdateCategory(ctx context.Context, id int64, c Category) error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if c.Slug == "" {
		c.Slug = shared.Slugify(c.Name)
	}
	return s.repo.UpdateCategory(ctx, id, c)
}

func (s *Service) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	return s.repo.GetCategoryBySlug(ctx, slug)
}

func (s *Service) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	return s.repo.ListCategories(ctx, activeOnly)
}

func (s *Service) CreateSubCategory(ctx context.Context, sc SubCategory) (SubCategory, error) {
	if err := validateName(sc.Name); err != nil {
		return SubCategory{}, err
	}
	if sc.CategoryID <= 0 {
		return SubCategory{}, fmt.Errorf("%w: category is required", shared.ErrValidation)
	}
	if _, err := s.repo.GetCategory(ctx, sc.CategoryID); err != nil {
		return SubCategory{}, fmt.Errorf("verify category: %w", err)
	}
	if sc.Slug == "" {
		sc.Slug = shared.Slugify(sc.Name)
	}
	return s.repo.CreateSubCategory(ctx, sc)
}

func (s *Service) ListSubCategories(ctx context.Context, categoryID int64) ([]SubCategory, error) {
	return s.repo.ListSubCategories(ctx, categoryID)
}

func (s *Service) CreateBrand(ctx context.Context, b Brand) (Brand, error) {
	if err := validateName(b.Name); err != nil {
		return Brand{}, err
	}
	if b.Slug == "" {
		b.Slug = shared.Slugify(b.Name)
	}
	return s.repo.CreateBrand(ctx, b)
}

func (s *Service) GetBrandBySlug(ctx context.Context, slug string) (Brand, error) {
	return s.repo.GetBrandBySlug(ctx, slug)
}

func (s *Service) ListBrands(ctx context.Context, activeOnly bool) ([]Brand, error) {
	return s.repo.ListBrands(ctx, activeOnly)
}

// CreateProduct derives slug and SKU when absent and recomputes the sale
// price. SKU generation retries a bounded number of times against both the
// exists-check and the insert's unique constraint before falling back to a
// random suffix.
func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if err := s.validateProduct(ctx, &p); err != nil {
		return Product{}, err
	}
	if p.Slug == "" {
		p.Slug = shared.Slugify(p.Name)
	}
	p.ApplyDiscount()

	if p.SKU != "" {
		created, err := s.repo.CreateProduct(ctx, p)
		if err != nil {
			return Product{}, err
		}
		return created, nil
	}

	brand, err := s.repo.GetBrand(ctx, p.BrandID)
	if err != nil {
		return Product{}, fmt.Errorf("verify brand: %w", err)
	}
	category, err := s.repo.GetCategory(ctx, p.CategoryID)
	if err != nil {
		return Product{}, fmt.Errorf("verify category: %w", err)
	}

	for attempt := 0; attempt < skuAttempts; attempt++ {
		p.SKU = skuBase(brand.Name, category.Name)
		taken, err := s.repo.SKUExists(ctx, p.SKU)
		if err != nil {
			return Product{}, err
		}
		if taken {
			continue
		}
		created, err := s.repo.CreateProduct(ctx, p)
		if errors.Is(err, ErrSKUTaken) {
			continue
		}
		if err != nil {
			return Product{}, err
		}
		return created, nil
	}

	p.SKU = skuFallback(brand.Name, category.Name)
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct re-derives the sale price on every save; the stored SKU,
// vendor ownership and a non-empty slug are left untouched.
func (s *Service) UpdateProduct(ctx context.Context, id int64, p Product) (Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.validateProduct(ctx, &p); err != nil {
		return Product{}, err
	}
	if p.Slug == "" {
		p.Slug = shared.Slugify(p.Name)
	}
	p.SKU = existing.SKU
	p.VendorID = existing.VendorID
	p.ApplyDiscount()
	if err := s.repo.UpdateProduct(ctx, id, p); err != nil {
		return Product{}, err
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// GetActiveProductBySlug is the storefront detail lookup; inactive products
// read as not found.
func (s *Service) GetActiveProductBySlug(ctx context.Context, slug string) (Product, error) {
	p, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		return Product{}, err
	}
	if !p.IsActive {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

// ResolveActiveSlug returns the id behind an active product slug. Used by
// packages that key on products without needing the full record.
func (s *Service) ResolveActiveSlug(ctx context.Context, slug string) (int64, error) {
	p, err := s.GetActiveProductBySlug(ctx, slug)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (s *Service) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultPerPage
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	return s.repo.ListProducts(ctx, filters)
}

func (s *Service) requireVerifiedVendor(ctx context.Context, userID int64) error {
	if s.vendors == nil {
		return fmt.Errorf("%w: vendor selling is not enabled", shared.ErrForbidden)
	}
	ok, err := s.vendors.IsVerifiedVendor(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: only approved vendors can manage products", shared.ErrForbidden)
	}
	return nil
}

// vendorOwns guards the vendor mutation endpoints. A product belonging to
// another vendor, or to the house catalog, is off limits.
func (s *Service) vendorOwns(ctx context.Context, vendorID, productID int64) (Product, error) {
	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	if p.VendorID == nil || *p.VendorID != vendorID {
		return Product{}, fmt.Errorf("%w: product belongs to another seller", shared.ErrForbidden)
	}
	return p, nil
}

// CreateVendorProduct lets an approved vendor add a product to their own
// listing. Ownership is stamped here, never taken from the request.
func (s *Service) CreateVendorProduct(ctx context.Context, vendorID int64, p Product) (Product, error) {
	if err := s.requireVerifiedVendor(ctx, vendorID); err != nil {
		return Product{}, err
	}
	p.VendorID = &vendorID
	return s.CreateProduct(ctx, p)
}

func (s *Service) UpdateVendorProduct(ctx context.Context, vendorID, productID int64, p Product) (Product, error) {
	if err := s.requireVerifiedVendor(ctx, vendorID); err != nil {
		return Product{}, err
	}
	if _, err := s.vendorOwns(ctx, vendorID, productID); err != nil {
		return Product{}, err
	}
	p.VendorID = &vendorID
	return s.UpdateProduct(ctx, productID, p)
}

func (s *Service) DeleteVendorProduct(ctx context.Context, vendorID, productID int64) error {
	if err := s.requireVerifiedVendor(ctx, vendorID); err != nil {
		return err
	}
	if _, err := s.vendorOwns(ctx, vendorID, productID); err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, productID)
}

// ListVendorProducts returns the vendor's own listing, inactive products
// included.
func (s *Service) ListVendorProducts(ctx context.Context, vendorID int64, filters ListFilters) ([]Product, int, error) {
	if err := s.requireVerifiedVendor(ctx, vendorID); err != nil {
		return nil, 0, err
	}
	filters.VendorID = &vendorID
	filters.IsActive = nil
	return s.ListProducts(ctx, filters)
}
