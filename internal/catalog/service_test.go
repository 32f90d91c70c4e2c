package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revforge/revforge/internal/shared"
)

type mockRepository struct {
	categories    map[int64]*Category
	subcategories map[int64]*SubCategory
	brands        map[int64]*Brand
	products      map[int64]*Product
	skus          map[string]bool
	nextID        int64

	// Error injection
	skuCollisions int // number of generated SKUs to report as taken
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		categories:    make(map[int64]*Category),
		subcategories: make(map[int64]*SubCategory),
		brands:        make(map[int64]*Brand),
		products:      make(map[int64]*Product),
		skus:          make(map[string]bool),
		nextID:        1,
	}
}

func (m *mockRepository) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockRepository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	for _, existing := range m.categories {
		if existing.Name == c.Name {
			return Category{}, shared.ErrDuplicate
		}
	}
	c.ID = m.id()
	m.categories[c.ID] = &c
	return c, nil
}

func (m *mockRepository) UpdateCategory(ctx context.Context, id int64, c Category) error {
	if _, ok := m.categories[id]; !ok {
		return shared.ErrNotFound
	}
	c.ID = id
	m.categories[id] = &c
	return nil
}

func (m *mockRepository) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	return *c, nil
}

func (m *mockRepository) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			return *c, nil
		}
	}
	return Category{}, shared.ErrNotFound
}

func (m *mockRepository) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	var out []Category
	for _, c := range m.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockRepository) CreateSubCategory(ctx context.Context, sc SubCategory) (SubCategory, error) {
	for _, existing := range m.subcategories {
		if existing.Name == sc.Name && existing.CategoryID == sc.CategoryID {
			return SubCategory{}, shared.ErrDuplicate
		}
	}
	sc.ID = m.id()
	m.subcategories[sc.ID] = &sc
	return sc, nil
}

func (m *mockRepository) GetSubCategory(ctx context.Context, id int64) (SubCategory, error) {
	sc, ok := m.subcategories[id]
	if !ok {
		return SubCategory{}, shared.ErrNotFound
	}
	return *sc, nil
}

func (m *mockRepository) ListSubCategories(ctx context.Context, categoryID int64) ([]SubCategory, error) {
	var out []SubCategory
	for _, sc := range m.subcategories {
		if sc.CategoryID == categoryID {
			out = append(out, *sc)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateBrand(ctx context.Context, b Brand) (Brand, error) {
	b.ID = m.id()
	m.brands[b.ID] = &b
	return b, nil
}

func (m *mockRepository) GetBrand(ctx context.Context, id int64) (Brand, error) {
	b, ok := m.brands[id]
	if !ok {
		return Brand{}, shared.ErrNotFound
	}
	return *b, nil
}

func (m *mockRepository) GetBrandBySlug(ctx context.Context, slug string) (Brand, error) {
	for _, b := range m.brands {
		if b.Slug == slug {
			return *b, nil
		}
	}
	return Brand{}, shared.ErrNotFound
}

func (m *mockRepository) ListBrands(ctx context.Context, activeOnly bool) ([]Brand, error) {
	var out []Brand
	for _, b := range m.brands {
		if activeOnly && !b.IsActive {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *mockRepository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if m.skus[p.SKU] {
		return Product{}, ErrSKUTaken
	}
	p.ID = m.id()
	m.products[p.ID] = &p
	m.skus[p.SKU] = true
	return p, nil
}

func (m *mockRepository) UpdateProduct(ctx context.Context, id int64, p Product) error {
	existing, ok := m.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.ID = id
	p.SKU = existing.SKU
	m.products[id] = &p
	return nil
}

func (m *mockRepository) DeleteProduct(ctx context.Context, id int64) error {
	p, ok := m.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(m.skus, p.SKU)
	delete(m.products, id)
	return nil
}

func (m *mockRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return *p, nil
}

func (m *mockRepository) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	for _, p := range m.products {
		if p.Slug == slug {
			return *p, nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (m *mockRepository) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if filters.IsActive != nil && p.IsActive != *filters.IsActive {
			continue
		}
		if filters.VendorID != nil && (p.VendorID == nil || *p.VendorID != *filters.VendorID) {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockRepository) SKUExists(ctx context.Context, sku string) (bool, error) {
	if m.skuCollisions > 0 {
		m.skuCollisions--
		return true, nil
	}
	return m.skus[sku], nil
}

func seedCatalog(t *testing.T, repo *mockRepository) (Category, SubCategory, Brand) {
	t.Helper()
	svc := NewService(repo, nil)
	cat, err := svc.CreateCategory(context.Background(), Category{Name: "Engine", IsActive: true})
	require.NoError(t, err)
	sub, err := svc.CreateSubCategory(context.Background(), SubCategory{CategoryID: cat.ID, Name: "Turbochargers", IsActive: true})
	require.NoError(t, err)
	brand, err := svc.CreateBrand(context.Background(), Brand{Name: "Apex Dynamics", IsActive: true})
	require.NoError(t, err)
	return cat, sub, brand
}

func validProduct(cat Category, sub SubCategory, brand Brand) Product {
	return Product{
		Name:          "Stage 2 Turbo Kit",
		CategoryID:    cat.ID,
		SubCategoryID: sub.ID,
		BrandID:       brand.ID,
		Price:         1299.99,
		StockQuantity: 10,
		MinStockLevel: 5,
		IsActive:      true,
	}
}

func TestCreateCategoryDerivesSlug(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	created, err := svc.CreateCategory(context.Background(), Category{Name: "Aerodynamics & Body", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "aerodynamics-body", created.Slug)

	// Explicit slug wins over derivation.
	withSlug, err := svc.CreateCategory(context.Background(), Category{Name: "Suspension", Slug: "handling", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "handling", withSlug.Slug)
}

func TestCreateProductGeneratesSKUAndSalePrice(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	cat, sub, brand := seedCatalog(t, repo)

	p := validProduct(cat, sub, brand)
	p.DiscountPercentage = 10
	created, err := svc.CreateProduct(context.Background(), p)
	require.NoError(t, err)

	assert.Regexp(t, `^APEN-\d{5}$`, created.SKU)
	assert.Equal(t, "stage-2-turbo-kit", created.Slug)
	require.NotNil(t, created.SalePrice)
	assert.Equal(t, 1169.99, *created.SalePrice)
	assert.True(t, created.IsOnSale())
}

func TestCreateProductSKUCollisionFallsBack(t *testing.T) {
	repo := newMockRepository()
	repo.skuCollisions = skuAttempts
	svc := NewService(repo, nil)
	cat, sub, brand := seedCatalog(t, repo)

	created, err := svc.CreateProduct(context.Background(), validProduct(cat, sub, brand))
	require.NoError(t, err)
	assert.True(t, strings.Count(created.SKU, "-") == 2, "expected disambiguating suffix, got %s", created.SKU)
}

func TestCreateProductKeepsSuppliedSKU(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	cat, sub, brand := seedCatalog(t, repo)

	p := validProduct(cat, sub, brand)
	p.SKU = "CUSTOM-001"
	created, err := svc.CreateProduct(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM-001", created.SKU)
}

func TestCreateProductValidation(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	cat, sub, brand := seedCatalog(t, repo)

	cases := []struct {
		name   string
		mutate func(*Product)
	}{
		{"zero price", func(p *Product) { p.Price = 0 }},
		{"price over cap", func(p *Product) { p.Price = 1000000 }},
		{"negative stock", func(p *Product) { p.StockQuantity = -1 }},
		{"discount over 100", func(p *Product) { p.DiscountPercentage = 101 }},
		{"negative discount", func(p *Product) { p.DiscountPercentage = -1 }},
		{"blank name", func(p *Product) { p.Name = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProduct(cat, sub, brand)
			tc.mutate(&p)
			_, err := svc.CreateProduct(context.Background(), p)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCreateProductRejectsMismatchedSubcategory(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	cat, _, brand := seedCatalog(t, repo)
	other, err := svc.CreateCategory(context.Background(), Category{Name: "Brakes", IsActive: true})
	require.NoError(t, err)
	otherSub, err := svc.CreateSubCategory(context.Background(), SubCategory{CategoryID: other.ID, Name: "Rotors", IsActive: true})
	require.NoError(t, err)

	p := Product{
		Name: "Big Brake Kit", CategoryID: cat.ID, SubCategoryID: otherSub.ID, BrandID: brand.ID,
		Price: 899, StockQuantity: 3, IsActive: true,
	}
	_, err = svc.CreateProduct(context.Background(), p)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateProductPreservesSKUAndRecomputesSalePrice(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	cat, sub, brand := seedCatalog(t, repo)

	created, err := svc.CreateProduct(context.Background(), validProduct(cat, sub, brand))
	require.NoError(t, err)
	originalSKU := created.SKU

	update := validProduct(cat, sub, brand)
	update.Price = 1000
	update.DiscountPercentage = 20
	update.SKU = "SHOULD-BE-IGNORED"
	updated, err := svc.UpdateProduct(context.Background(), created.ID, update)
	require.NoError(t, err)

	assert.Equal(t, originalSKU, updated.SKU)
	require.NotNil(t, updated.SalePrice)
	assert.Equal(t, 800.0, *updated.SalePrice)

	// Dropping the discount clears the sale price on the next save.
	update.DiscountPercentage = 0
	updated, err = svc.UpdateProduct(context.Background(), created.ID, update)
	require.NoError(t, err)
	assert.Nil(t, updated.SalePrice)
}

func TestGetActiveProductBySlugHidesInactive(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	cat, sub, brand := seedCatalog(t, repo)

	p := validProduct(cat, sub, brand)
	p.IsActive = false
	created, err := svc.CreateProduct(context.Background(), p)
	require.NoError(t, err)

	_, err = svc.GetActiveProductBySlug(context.Background(), created.Slug)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// staticVendorGate approves a fixed set of user ids.
type staticVendorGate map[int64]bool

func (g staticVendorGate) IsVerifiedVendor(_ context.Context, userID int64) (bool, error) {
	return g[userID], nil
}

func TestCreateVendorProductStampsOwnership(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, staticVendorGate{7: true})
	cat, sub, brand := seedCatalog(t, repo)

	created, err := svc.CreateVendorProduct(context.Background(), 7, validProduct(cat, sub, brand))
	require.NoError(t, err)
	require.NotNil(t, created.VendorID)
	assert.Equal(t, int64(7), *created.VendorID)
}

func TestCreateVendorProductRejectsUnverified(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, staticVendorGate{7: true})
	cat, sub, brand := seedCatalog(t, repo)

	_, err := svc.CreateVendorProduct(context.Background(), 8, validProduct(cat, sub, brand))
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestVendorCannotTouchAnotherSellersProduct(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, staticVendorGate{7: true, 8: true})
	cat, sub, brand := seedCatalog(t, repo)

	created, err := svc.CreateVendorProduct(context.Background(), 7, validProduct(cat, sub, brand))
	require.NoError(t, err)

	_, err = svc.UpdateVendorProduct(context.Background(), 8, created.ID, validProduct(cat, sub, brand))
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = svc.DeleteVendorProduct(context.Background(), 8, created.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestVendorCannotTouchHouseProduct(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, staticVendorGate{7: true})
	cat, sub, brand := seedCatalog(t, repo)

	house, err := svc.CreateProduct(context.Background(), validProduct(cat, sub, brand))
	require.NoError(t, err)

	err = svc.DeleteVendorProduct(context.Background(), 7, house.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteVendorProduct(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, staticVendorGate{7: true})
	cat, sub, brand := seedCatalog(t, repo)

	created, err := svc.CreateVendorProduct(context.Background(), 7, validProduct(cat, sub, brand))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteVendorProduct(context.Background(), 7, created.ID))
	_, err = svc.GetProduct(context.Background(), created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListVendorProductsIncludesInactive(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, staticVendorGate{7: true, 8: true})
	cat, sub, brand := seedCatalog(t, repo)

	mine := validProduct(cat, sub, brand)
	mine.IsActive = false
	_, err := svc.CreateVendorProduct(context.Background(), 7, mine)
	require.NoError(t, err)

	other := validProduct(cat, sub, brand)
	other.Name = "Stage 3 Turbo Kit"
	_, err = svc.CreateVendorProduct(context.Background(), 8, other)
	require.NoError(t, err)

	products, total, err := svc.ListVendorProducts(context.Background(), 7, ListFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.False(t, products[0].IsActive)
}

func TestVendorOperationsDisabledWithoutGate(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	cat, sub, brand := seedCatalog(t, repo)

	_, err := svc.CreateVendorProduct(context.Background(), 7, validProduct(cat, sub, brand))
	assert.ErrorIs(t, err, shared.ErrForbidden)
}
