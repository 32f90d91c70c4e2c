package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revforge/revforge/internal/shared"
)

// ListFilters narrows product listings.
type ListFilters struct {
	CategorySlug string
	BrandSlug    string
	Search       string
	VendorID     *int64
	IsActive     *bool
	IsFeatured   *bool
	IsBestseller *bool
	SortBy       string
	SortDir      string
	Page         int
	Limit        int
}

// Repository persists catalog entities.
type Repository interface {
	CreateCategory(ctx context.Context, c Category) (Category, error)
	UpdateCategory(ctx context.Context, id int64, c Category) error
	GetCategoryBySlug(ctx context.Context, slug string) (Category, error)
	ListCategories(ctx context.Context, activeOnly bool) ([]Category, error)

	CreateSubCategory(ctx context.Context, sc SubCategory) (SubCategory, error)
	ListSubCategories(ctx context.Context, categoryID int64) ([]SubCategory, error)
	GetSubCategory(ctx context.Context, id int64) (SubCategory, error)

	CreateBrand(ctx context.Context, b Brand) (Brand, error)
	GetBrandBySlug(ctx context.Context, slug string) (Brand, error)
	ListBrands(ctx context.Context, activeOnly bool) ([]Brand, error)
	GetBrand(ctx context.Context, id int64) (Brand, error)
	GetCategory(ctx context.Context, id int64) (Category, error)

	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, p Product) error
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error)
	SKUExists(ctx context.Context, sku string) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the postgres-backed catalog repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const categoryColumns = `id, name, slug, description, image_url, icon_class, is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageURL, &c.IconClass, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, shared.ErrNotFound
	}
	return c, err
}

func (r *repository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO categories (name, slug, description, image_url, icon_class, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`,
		c.Name, c.Slug, c.Description, c.ImageURL, c.IconClass, c.IsActive, now).Scan(&c.ID)
	if err != nil {
		if shared.IsUniqueViolation(err, "") {
			return Category{}, shared.ErrDuplicate
		}
		return Category{}, err
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}

func (r *repository) UpdateCategory(ctx context.Context, id int64, c Category) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE categories SET name = $1, slug = $2, description = $3, image_url = $4, icon_class = $5, is_active = $6, updated_at = $7 WHERE id = $8`,
		c.Name, c.Slug, c.Description, c.ImageURL, c.IconClass, c.IsActive, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	return scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

func (r *repository) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	return scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug))
}

func (r *repository) ListCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) CreateSubCategory(ctx context.Context, sc SubCategory) (SubCategory, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO subcategories (category_id, name, slug, description, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sc.CategoryID, sc.Name, sc.Slug, sc.Description, sc.IsActive, now).Scan(&sc.ID)
	if err != nil {
		if shared.IsUniqueViolation(err, "") {
			return SubCategory{}, shared.ErrDuplicate
		}
		return SubCategory{}, err
	}
	sc.CreatedAt = now
	return sc, nil
}

func (r *repository) GetSubCategory(ctx context.Context, id int64) (SubCategory, error) {
	var sc SubCategory
	err := r.db.QueryRow(ctx,
		`SELECT id, category_id, name, slug, description, is_active, created_at FROM subcategories WHERE id = $1`, id).
		Scan(&sc.ID, &sc.CategoryID, &sc.Name, &sc.Slug, &sc.Description, &sc.IsActive, &sc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SubCategory{}, shared.ErrNotFound
	}
	return sc, err
}

func (r *repository) ListSubCategories(ctx context.Context, categoryID int64) ([]SubCategory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, category_id, name, slug, description, is_active, created_at FROM subcategories WHERE category_id = $1 ORDER BY name`,
		categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SubCategory
	for rows.Next() {
		var sc SubCategory
		if err := rows.Scan(&sc.ID, &sc.CategoryID, &sc.Name, &sc.Slug, &sc.Description, &sc.IsActive, &sc.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

const brandColumns = `id, name, slug, logo_url, description, website, is_active, created_at`

func scanBrand(row pgx.Row) (Brand, error) {
	var b Brand
	err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.LogoURL, &b.Description, &b.Website, &b.IsActive, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Brand{}, shared.ErrNotFound
	}
	return b, err
}

func (r *repository) CreateBrand(ctx context.Context, b Brand) (Brand, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO brands (name, slug, logo_url, description, website, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		b.Name, b.Slug, b.LogoURL, b.Description, b.Website, b.IsActive, now).Scan(&b.ID)
	if err != nil {
		if shared.IsUniqueViolation(err, "") {
			return Brand{}, shared.ErrDuplicate
		}
		return Brand{}, err
	}
	b.CreatedAt = now
	return b, nil
}

func (r *repository) GetBrand(ctx context.Context, id int64) (Brand, error) {
	return scanBrand(r.db.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE id = $1`, id))
}

func (r *repository) GetBrandBySlug(ctx context.Context, slug string) (Brand, error) {
	return scanBrand(r.db.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands WHERE slug = $1`, slug))
}

func (r *repository) ListBrands(ctx context.Context, activeOnly bool) ([]Brand, error) {
	query := `SELECT ` + brandColumns + ` FROM brands`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Brand
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const productColumns = `id, name, slug, sku, category_id, subcategory_id, brand_id, vendor_id, price, discount_percentage, sale_price, stock_quantity, min_stock_level, description, features, image_url, is_active, is_featured, is_bestseller, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.SKU, &p.CategoryID, &p.SubCategoryID, &p.BrandID, &p.VendorID,
		&p.Price, &p.DiscountPercentage, &p.SalePrice, &p.StockQuantity, &p.MinStockLevel,
		&p.Description, &p.Features, &p.ImageURL, &p.IsActive, &p.IsFeatured, &p.IsBestseller, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO products (name, slug, sku, category_id, subcategory_id, brand_id, vendor_id, price, discount_percentage, sale_price, stock_quantity, min_stock_level, description, features, image_url, is_active, is_featured, is_bestseller, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19) RETURNING id`,
		p.Name, p.Slug, p.SKU, p.CategoryID, p.SubCategoryID, p.BrandID, p.VendorID,
		p.Price, p.DiscountPercentage, p.SalePrice, p.StockQuantity, p.MinStockLevel,
		p.Description, p.Features, p.ImageURL, p.IsActive, p.IsFeatured, p.IsBestseller, now).Scan(&p.ID)
	if err != nil {
		if shared.IsUniqueViolation(err, "products_sku_key") {
			return Product{}, ErrSKUTaken
		}
		if shared.IsUniqueViolation(err, "") {
			return Product{}, shared.ErrDuplicate
		}
		return Product{}, err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) UpdateProduct(ctx context.Context, id int64, p Product) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET name = $1, slug = $2, category_id = $3, subcategory_id = $4, brand_id = $5, price = $6, discount_percentage = $7, sale_price = $8, stock_quantity = $9, min_stock_level = $10, description = $11, features = $12, image_url = $13, is_active = $14, is_featured = $15, is_bestseller = $16, updated_at = $17 WHERE id = $18`,
		p.Name, p.Slug, p.CategoryID, p.SubCategoryID, p.BrandID, p.Price, p.DiscountPercentage, p.SalePrice,
		p.StockQuantity, p.MinStockLevel, p.Description, p.Features, p.ImageURL, p.IsActive, p.IsFeatured, p.IsBestseller,
		time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *repository) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug))
}

func (r *repository) ListProducts(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return `$` + strconv.Itoa(len(args))
	}

	if filters.CategorySlug != "" {
		where += ` AND category_id = (SELECT id FROM categories WHERE slug = ` + arg(filters.CategorySlug) + `)`
	}
	if filters.BrandSlug != "" {
		where += ` AND brand_id = (SELECT id FROM brands WHERE slug = ` + arg(filters.BrandSlug) + `)`
	}
	if filters.Search != "" {
		ph := arg("%" + filters.Search + "%")
		where += ` AND (name ILIKE ` + ph + ` OR description ILIKE ` + ph + ` OR sku ILIKE ` + ph + `)`
	}
	if filters.VendorID != nil {
		where += ` AND vendor_id = ` + arg(*filters.VendorID)
	}
	if filters.IsActive != nil {
		where += ` AND is_active = ` + arg(*filters.IsActive)
	}
	if filters.IsFeatured != nil {
		where += ` AND is_featured = ` + arg(*filters.IsFeatured)
	}
	if filters.IsBestseller != nil {
		where += ` AND is_bestseller = ` + arg(*filters.IsBestseller)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + productSortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		query += ` LIMIT ` + arg(filters.Limit)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		query += ` OFFSET ` + arg(offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) SKUExists(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`, sku).Scan(&exists)
	return exists, err
}

func productSortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "name":
		return "name " + dir
	case "price":
		return "COALESCE(sale_price, price) " + dir
	case "created_at":
		return "created_at " + dir
	case "rating":
		// Unrated products sink to the end regardless of direction.
		return "(SELECT pr.average_rating FROM product_ratings pr WHERE pr.product_id = products.id) " + dir + " NULLS LAST, products.id ASC"
	default:
		return "created_at DESC"
	}
}
