package orders

import (
	"time"
)

// Order status lifecycle. Transitions only move forward; the sole exits are
// cancellation before processing starts and refund after payment.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
)

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

var statusDisplay = map[string]string{
	StatusPending:    "Pending",
	StatusConfirmed:  "Confirmed",
	StatusProcessing: "Processing",
	StatusShipped:    "Shipped",
	StatusDelivered:  "Delivered",
	StatusCancelled:  "Cancelled",
	StatusRefunded:   "Refunded",
}

// validTransitions is the forward-only lifecycle graph.
var validTransitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusProcessing, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// StatusDisplay returns the human label for a status code.
func StatusDisplay(status string) string {
	if label, ok := statusDisplay[status]; ok {
		return label
	}
	return status
}

// IsValidStatus reports whether the code names a known lifecycle state.
func IsValidStatus(status string) bool {
	_, ok := statusDisplay[status]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is a placed order with frozen pricing. The chosen shipping and
// payment methods are copied in as plain text; no reference back to the
// method rows survives, so later edits to them cannot touch placed orders.
type Order struct {
	ID                 int64      `json:"id"`
	Number             string     `json:"order_number"`
	UserID             int64      `json:"user_id"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	PaymentMethodName  string     `json:"payment_method,omitempty"`
	ShippingMethodName string     `json:"shipping_method,omitempty"`
	ShippingName       string     `json:"shipping_name"`
	ShippingPhone      string     `json:"shipping_phone"`
	ShippingAddress    string     `json:"shipping_address"`
	ShippingCity       string     `json:"shipping_city"`
	ShippingPostal     string     `json:"shipping_postal_code"`
	Subtotal           float64    `json:"subtotal"`
	ShippingCost       float64    `json:"shipping_cost"`
	Tax                float64    `json:"tax"`
	DiscountAmount     float64    `json:"discount_amount"`
	Total              float64    `json:"total"`
	Notes              string     `json:"notes,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ShippedAt          *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty"`
	Items              []Item     `json:"items,omitempty"`
}

// CanCancel reports whether the customer may still cancel.
func (o Order) CanCancel() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// IsPaid reports whether payment has settled.
func (o Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

// Item is an order line. Product name, SKU and unit price are snapshots
// taken at checkout; product_id is nullable so lines survive catalog
// deletions. StockDeducted records how many units checkout actually took
// from inventory, which can be fewer than Quantity when the floor at zero
// kicked in; cancellation restores that amount, not the ordered one.
type Item struct {
	ID            int64   `json:"id"`
	OrderID       int64   `json:"order_id"`
	ProductID     *int64  `json:"product_id,omitempty"`
	ProductName   string  `json:"product_name"`
	ProductSKU    string  `json:"product_sku"`
	UnitPrice     float64 `json:"unit_price"`
	Quantity      int     `json:"quantity"`
	LineTotal     float64 `json:"line_total"`
	StockDeducted int     `json:"-"`
}

// StatusChange is one row of the order's append-only history.
type StatusChange struct {
	ID        int64     `json:"id"`
	OrderID   int64     `json:"order_id"`
	Status    string    `json:"status"`
	Comment   string    `json:"comment,omitempty"`
	ChangedBy *int64    `json:"changed_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ShippingMethod is a flat-rate delivery option offered at checkout.
type ShippingMethod struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Cost          float64 `json:"cost"`
	EstimatedDays int     `json:"estimated_days"`
	IsActive      bool    `json:"is_active"`
}

// PaymentMethod is a payment option offered at checkout. Processing is out
// of scope; orders record the chosen method and a payment status only.
type PaymentMethod struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}
