package cart

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/revforge/revforge/internal/platform/httpx"
	"github.com/revforge/revforge/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers cart routes. All require authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Put("/cart/items/{productID}", h.updateQuantity)
	r.Delete("/cart/items/{productID}", h.removeItem)
	r.Delete("/cart", h.clearCart)
}

func productIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
}

func (h *Handler) respondView(w http.ResponseWriter, v View, err error) {
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	v, err := h.service.Get(r.Context(), identity.UserID)
	h.respondView(w, v, err)
}

type addItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())

	var req addItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	v, err := h.service.AddItem(r.Context(), identity.UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.logger.Warn("add to cart", slog.Any("error", err), slog.Int64("product_id", req.ProductID))
	}
	h.respondView(w, v, err)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	productID, err := productIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	var req updateQuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	v, err := h.service.UpdateQuantity(r.Context(), identity.UserID, productID, req.Quantity)
	h.respondView(w, v, err)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	productID, err := productIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	v, err := h.service.RemoveItem(r.Context(), identity.UserID, productID)
	h.respondView(w, v, err)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	v, err := h.service.Clear(r.Context(), identity.UserID)
	h.respondView(w, v, err)
}
