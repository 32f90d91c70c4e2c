package users

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

// MountRoutes registers account routes. All require authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me/profile", h.getProfile)
	r.Put("/me/profile", h.updateProfile)
	r.Post("/me/vendor", h.applyForVendor)
	r.Get("/me/wishlist", h.listWishlist)
	r.Post("/me/wishlist", h.addToWishlist)
	r.Delete("/me/wishlist/{productID}", h.removeFromWishlist)
	r.Get("/me/recently-viewed", h.recentViews)
}

// MountAdminRoutes registers the vendor application review routes, mounted
// behind the staff check.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/admin/vendors", h.listVendorApplications)
	r.Put("/admin/vendors/{userID}/status", h.decideVendor)
}

// profileResponse decorates the stored profile with the derived vendor
// badge text.
type profileResponse struct {
	Profile
	VendorBadge string `json:"vendor_badge,omitempty"`
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	profile, err := h.service.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profileResponse{Profile: profile, VendorBadge: profile.VendorBadge()})
}

type updateProfileRequest struct {
	Phone      string `json:"phone" validate:"max=20"`
	Address    string `json:"address" validate:"max=255"`
	City       string `json:"city" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=10"`
	AvatarURL  string `json:"avatar_url" validate:"omitempty,url"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())

	var req updateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	profile, err := h.service.UpdateProfile(r.Context(), identity.UserID, UpdateProfileInput{
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		AvatarURL:  req.AvatarURL,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

type vendorApplicationRequest struct {
	Team string `json:"team" validate:"required,max=100"`
}

func (h *Handler) applyForVendor(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())

	var req vendorApplicationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	profile, err := h.service.ApplyForVendor(r.Context(), identity.UserID, req.Team)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profileResponse{Profile: profile, VendorBadge: profile.VendorBadge()})
}

func (h *Handler) listVendorApplications(w http.ResponseWriter, r *http.Request) {
	applications, err := h.service.VendorApplications(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"applications": applications})
}

type vendorDecisionRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

func (h *Handler) decideVendor(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}

	var req vendorDecisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	profile, err := h.service.DecideVendor(r.Context(), identity.UserID, userID, req.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profileResponse{Profile: profile, VendorBadge: profile.VendorBadge()})
}

func (h *Handler) listWishlist(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	items, err := h.service.Wishlist(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("list wishlist", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"wishlist": items})
}

type wishlistRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())

	var req wishlistRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AddToWishlist(r.Context(), identity.UserID, req.ProductID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	if err := h.service.RemoveFromWishlist(r.Context(), identity.UserID, productID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) recentViews(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	views, err := h.service.RecentViews(r.Context(), identity.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"recently_viewed": views})
}
