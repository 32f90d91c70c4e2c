package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/revforge/revforge/internal/platform/httpx"
	"github.com/revforge/revforge/internal/recommend"
	"github.com/revforge/revforge/internal/shared"
)

// ViewRecorder receives product-view events for the recently-viewed feed.
type ViewRecorder interface {
	RecordView(ctx context.Context, userID, productID int64) error
}

// Handler wires catalog HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	selector  *recommend.Selector
	views     ViewRecorder
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, selector *recommend.Selector, views ViewRecorder) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		selector:  selector,
		views:     views,
		validator: validator.New(),
	}
}

// MountRoutes registers public browsing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/catalog/categories", h.listCategories)
	r.Get("/catalog/categories/{slug}", h.categoryDetail)
	r.Get("/catalog/brands", h.listBrands)
	r.Get("/catalog/brands/{slug}", h.brandDetail)
	r.Get("/catalog/products", h.listProducts)
	r.Get("/catalog/products/{slug}", h.productDetail)
	r.Get("/catalog/products/{slug}/recommended", h.recommended)
}

// MountAdminRoutes registers catalog management routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/admin/categories", h.createCategory)
	r.Post("/admin/subcategories", h.createSubCategory)
	r.Post("/admin/brands", h.createBrand)
	r.Post("/admin/products", h.createProduct)
	r.Put("/admin/products/{id}", h.updateProduct)
}

// MountVendorRoutes registers the seller dashboard routes. Authentication
// is required; the service itself rejects callers without an approved
// vendor application.
func (h *Handler) MountVendorRoutes(r chi.Router) {
	r.Get("/vendor/products", h.listVendorProducts)
	r.Post("/vendor/products", h.createVendorProduct)
	r.Put("/vendor/products/{id}", h.updateVendorProduct)
	r.Delete("/vendor/products/{id}", h.deleteVendorProduct)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context(), true)
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) categoryDetail(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.GetCategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	subcategories, err := h.service.ListSubCategories(r.Context(), category.ID)
	if err != nil {
		h.logger.Error("list subcategories", slog.Any("error", err), slog.Int64("category_id", category.ID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"category":      category,
		"subcategories": subcategories,
	})
}

func (h *Handler) listBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.ListBrands(r.Context(), true)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"brands": brands})
}

func (h *Handler) brandDetail(w http.ResponseWriter, r *http.Request) {
	brand, err := h.service.GetBrandBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"brand": brand})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	active := true
	filters := ListFilters{
		CategorySlug: q.Get("category"),
		BrandSlug:    q.Get("brand"),
		Search:       q.Get("search"),
		IsActive:     &active,
		SortBy:       q.Get("sort"),
		SortDir:      q.Get("dir"),
		Page:         page,
		Limit:        limit,
	}
	if q.Get("featured") == "true" {
		t := true
		filters.IsFeatured = &t
	}
	if q.Get("bestseller") == "true" {
		t := true
		filters.IsBestseller = &t
	}

	products, total, err := h.service.ListProducts(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products":   NewProductViews(products),
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) productDetail(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetActiveProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if id := shared.IdentityFromContext(r.Context()); id != nil && h.views != nil {
		if err := h.views.RecordView(r.Context(), id.UserID, product.ID); err != nil {
			h.logger.Warn("record view", slog.Any("error", err), slog.Int64("product_id", product.ID))
		}
	}
	httpx.JSON(w, http.StatusOK, NewProductView(product))
}

func (h *Handler) recommended(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetActiveProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	picks, err := h.selector.Recommend(r.Context(), product.ID, product.CategoryID, product.BrandID)
	if err != nil {
		h.logger.Error("recommend", slog.Any("error", err), slog.Int64("product_id", product.ID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"recommended": picks})
}

func (h *Handler) listVendorProducts(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filters := ListFilters{
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
		Page:    page,
		Limit:   limit,
	}
	products, total, err := h.service.ListVendorProducts(r.Context(), identity.UserID, filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"products":   NewProductViews(products),
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) createVendorProduct(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())

	var req ProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.CreateVendorProduct(r.Context(), identity.UserID, req.toProduct())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewProductView(created))
}

func (h *Handler) updateVendorProduct(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	var req ProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.UpdateVendorProduct(r.Context(), identity.UserID, id, req.toProduct())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewProductView(updated))
}

func (h *Handler) deleteVendorProduct(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	if err := h.service.DeleteVendorProduct(r.Context(), identity.UserID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	created, err := h.service.CreateCategory(r.Context(), Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IconClass:   req.IconClass,
		IsActive:    active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) createSubCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateSubCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	created, err := h.service.CreateSubCategory(r.Context(), SubCategory{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		IsActive:    active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) createBrand(w http.ResponseWriter, r *http.Request) {
	var req CreateBrandRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	created, err := h.service.CreateBrand(r.Context(), Brand{
		Name:        req.Name,
		Slug:        req.Slug,
		LogoURL:     req.LogoURL,
		Description: req.Description,
		Website:     req.Website,
		IsActive:    active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.CreateProduct(r.Context(), req.toProduct())
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewProductView(created))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	var req ProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.UpdateProduct(r.Context(), id, req.toProduct())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewProductView(updated))
}
