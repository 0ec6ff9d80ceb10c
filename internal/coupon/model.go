package coupon

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/baharserene/internal/pricing"
)

type Coupon struct {
	ID             uuid.UUID            `json:"id"`
	Code           string               `json:"code"`
	DiscountType   pricing.DiscountType `json:"discount_type"`
	DiscountValue  int64                `json:"discount_value"`
	MaxDiscount    *int64               `json:"max_discount,omitempty"`
	MinOrderAmount int64                `json:"min_order_amount"`
	StartDate      time.Time            `json:"start_date"`
	EndDate        time.Time            `json:"end_date"`
	IsActive       bool                 `json:"is_active"`
	UsedCount      int                  `json:"used_count"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func (c *Coupon) Rule() pricing.DiscountRule {
	return pricing.DiscountRule{
		Type:           c.DiscountType,
		Value:          c.DiscountValue,
		MaxDiscount:    c.MaxDiscount,
		MinOrderAmount: c.MinOrderAmount,
	}
}

// ActiveAt mirrors the lookup predicate used by the repository.
func (c *Coupon) ActiveAt(at time.Time) bool {
	return c.IsActive && !at.Before(c.StartDate) && !at.After(c.EndDate)
}

// NormalizeCode turns user input into the stored upper-case form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
