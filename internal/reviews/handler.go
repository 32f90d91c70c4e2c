package reviews

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/revforge/revforge/internal/platform/httpx"
	"github.com/revforge/revforge/internal/shared"
)

// ProductResolver maps an active product slug to its id.
type ProductResolver interface {
	ResolveActiveSlug(ctx context.Context, slug string) (int64, error)
}

type Handler struct {
	logger    *slog.Logger
	service   *Service
	products  ProductResolver
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, products ProductResolver) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		products:  products,
		validator: validator.New(),
	}
}

// MountPublicRoutes registers unauthenticated read routes.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/catalog/products/{slug}/reviews", h.listReviews)
	r.Get("/catalog/products/{slug}/rating", h.ratingSummary)
}

// MountRoutes registers authenticated routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/catalog/products/{slug}/reviews", h.submitReview)
	r.Delete("/reviews/{id}", h.deleteReview)
}

// MountAdminRoutes registers moderation routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/admin/reviews/{id}/approval", h.setApproval)
}

func (h *Handler) resolveProduct(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := h.products.ResolveActiveSlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.resolveProduct(w, r)
	if !ok {
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	includeUnapproved := identity != nil && identity.IsStaff

	list, err := h.service.ListForProduct(r.Context(), productID, includeUnapproved)
	if err != nil {
		h.logger.Error("list reviews", slog.Any("error", err), slog.Int64("product_id", productID))
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"reviews": list,
		"summary": NewSummaryView(summary),
	})
}

func (h *Handler) ratingSummary(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.resolveProduct(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewSummaryView(summary))
}

type submitReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
	Pros    string `json:"pros"`
	Cons    string `json:"cons"`
}

func (h *Handler) submitReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.resolveProduct(w, r)
	if !ok {
		return
	}
	identity := shared.IdentityFromContext(r.Context())

	var req submitReviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	rv, err := h.service.Submit(r.Context(), identity.UserID, productID, SubmitInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Content: req.Content,
		Pros:    req.Pros,
		Cons:    req.Cons,
	})
	if err != nil {
		h.logger.Error("submit review", slog.Any("error", err), slog.Int64("product_id", productID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rv)
}

func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid review id")
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), *identity, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type approvalRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

func (h *Handler) setApproval(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid review id")
		return
	}
	var req approvalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rv, err := h.service.SetApproval(r.Context(), id, *req.Approved)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rv)
}

// SummaryView augments the stored aggregate with the derived positive share.
type SummaryView struct {
	RatingSummary
	RatingPercentage float64 `json:"rating_percentage"`
}

func NewSummaryView(s RatingSummary) SummaryView {
	return SummaryView{RatingSummary: s, RatingPercentage: s.RatingPercentage()}
}
