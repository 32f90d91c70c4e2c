package users

import "time"

// Vendor application states. New applications start as pending and stay
// there until a staff member decides.
const (
	VendorPending  = "pending"
	VendorApproved = "approved"
	VendorRejected = "rejected"
)

// Profile holds the account's contact and delivery defaults, plus the
// vendor application state for accounts selling through the store. One row
// per user, created together with the account.
type Profile struct {
	UserID           int64      `json:"user_id"`
	Phone            string     `json:"phone,omitempty"`
	Address          string     `json:"address,omitempty"`
	City             string     `json:"city,omitempty"`
	PostalCode       string     `json:"postal_code,omitempty"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	IsVendor         bool       `json:"is_vendor"`
	VendorStatus     string     `json:"vendor_status,omitempty"`
	VendorTeam       string     `json:"vendor_team,omitempty"`
	VendorAppliedAt  *time.Time `json:"vendor_application_date,omitempty"`
	VendorApprovedAt *time.Time `json:"vendor_approved_date,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsVerifiedVendor reports whether the account may sell: it applied as a
// vendor and staff approved the application.
func (p Profile) IsVerifiedVendor() bool {
	return p.IsVendor && p.VendorStatus == VendorApproved
}

// VendorBadge is the display label shown next to vendor accounts. Empty
// for ordinary customers.
func (p Profile) VendorBadge() string {
	if !p.IsVendor {
		return ""
	}
	switch p.VendorStatus {
	case VendorApproved:
		return "Verified Vendor"
	case VendorRejected:
		return "Vendor (Rejected)"
	default:
		return "Vendor (Pending)"
	}
}

// WishlistItem is a saved product, joined with live catalog data for display.
type WishlistItem struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name"`
	ProductSlug string    `json:"product_slug"`
	Price       float64   `json:"price"`
	SalePrice   *float64  `json:"sale_price,omitempty"`
	InStock     bool      `json:"in_stock"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecentView is one entry of the user's browsing trail. Repeat visits bump
// the count instead of adding rows.
type RecentView struct {
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name"`
	ProductSlug  string    `json:"product_slug"`
	ViewCount    int       `json:"view_count"`
	LastViewedAt time.Time `json:"last_viewed_at"`
}
