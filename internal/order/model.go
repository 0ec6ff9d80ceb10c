package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PaymentMethod is stored as a label only; no gateway is involved.
type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetBanking PaymentMethod = "net_banking"
	PaymentWallet     PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentDebitCard, PaymentUPI, PaymentNetBanking, PaymentWallet:
		return true
	}
	return false
}

type ShippingAddress struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// ProductSummary is the live catalog data shown next to a line item. It is
// display only; pricing always uses the line snapshot.
type ProductSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Price    int64     `json:"price"`
	ImageURL string    `json:"image_url,omitempty"`
	Category string    `json:"category"`
}

type LineItem struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       int64           `json:"price"`
	Subtotal    int64           `json:"subtotal"`
	Product     *ProductSummary `json:"product,omitempty"`
}

type Discount struct {
	CouponCode     *string `json:"coupon_code"`
	DiscountAmount int64   `json:"discount_amount"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          uuid.UUID       `json:"user_id"`
	Items           []LineItem      `json:"items"`
	Subtotal        int64           `json:"subtotal"`
	DiscountApplied Discount        `json:"discount_applied"`
	DeliveryCharge  int64           `json:"delivery_charge"`
	TotalAmount     int64           `json:"total_amount"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	OrderStatus     Status          `json:"order_status"`
	TrackingNumber  *string         `json:"tracking_number,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type PlaceOrderInput struct {
	UserID          uuid.UUID
	Items           []CartItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	CouponCode      string
	Notes           string
}

// StatusUpdate is partial; nil fields are left untouched.
type StatusUpdate struct {
	OrderStatus    *Status
	PaymentStatus  *PaymentStatus
	TrackingNumber *string
}

func (u StatusUpdate) Empty() bool {
	return u.OrderStatus == nil && u.PaymentStatus == nil && u.TrackingNumber == nil
}

// Actor is whoever asks for an order operation.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}
