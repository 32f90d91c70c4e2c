package orders

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

// MountRoutes registers customer order routes. All require authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/checkout/options", h.checkoutOptions)
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{number}", h.getOrder)
	r.Get("/orders/{number}/track", h.trackOrder)
	r.Post("/orders/{number}/cancel", h.cancelOrder)
}

// MountAdminRoutes registers fulfilment routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/admin/orders/{number}/status", h.updateStatus)
	r.Post("/admin/orders/{number}/payment", h.updatePayment)
	r.Post("/admin/orders/{number}/recalculate", h.recalculate)
}

func (h *Handler) checkoutOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, opts)
}

type checkoutRequest struct {
	ShippingName     string `json:"shipping_name" validate:"required,max=200"`
	ShippingPhone    string `json:"shipping_phone" validate:"required,max=20"`
	ShippingAddress  string `json:"shipping_address" validate:"required,min=5,max=255"`
	ShippingCity     string `json:"shipping_city" validate:"required,max=100"`
	ShippingPostal   string `json:"shipping_postal_code" validate:"required,min=3,max=10"`
	ShippingMethodID int64  `json:"shipping_method_id" validate:"omitempty,gt=0"`
	PaymentMethodID  int64  `json:"payment_method_id" validate:"omitempty,gt=0"`
	Notes            string `json:"notes" validate:"max=1000"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())

	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.Checkout(r.Context(), identity.UserID, CheckoutInput{
		ShippingName:     req.ShippingName,
		ShippingPhone:    req.ShippingPhone,
		ShippingAddress:  req.ShippingAddress,
		ShippingCity:     req.ShippingCity,
		ShippingPostal:   req.ShippingPostal,
		ShippingMethodID: req.ShippingMethodID,
		PaymentMethodID:  req.PaymentMethodID,
		Notes:            req.Notes,
	})
	if err != nil {
		h.logger.Warn("checkout failed", slog.Any("error", err), slog.Int64("user_id", identity.UserID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"order":   order,
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = shared.DefaultPerPage
	}
	list, total, err := h.service.List(r.Context(), identity.UserID, page, limit)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders":     list,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	order, err := h.service.Get(r.Context(), *identity, chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) trackOrder(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	info, err := h.service.Track(r.Context(), *identity, chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, info)
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())

	var req cancelRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	order, err := h.service.Cancel(r.Context(), *identity, chi.URLParam(r, "number"), req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}

type statusRequest struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment" validate:"max=500"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())

	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	order, err := h.service.UpdateStatus(r.Context(), identity.UserID, chi.URLParam(r, "number"), req.Status, req.Comment)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.RecalculateTotals(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type paymentRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	order, err := h.service.SetPaymentStatus(r.Context(), chi.URLParam(r, "number"), req.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}
