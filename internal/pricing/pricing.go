// Package pricing computes order totals. All amounts are whole currency units.
package pricing

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) String() string {
	return string(t)
}

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

const (
	freeDeliveryAbove    int64 = 500
	reducedDeliveryAbove int64 = 250

	reducedDeliveryCharge  int64 = 30
	standardDeliveryCharge int64 = 50
)

// DiscountRule is the part of a coupon the engine needs.
type DiscountRule struct {
	Type           DiscountType
	Value          int64
	MaxDiscount    *int64 // percentage only; nil or 0 means uncapped
	MinOrderAmount int64
}

type Line struct {
	UnitPrice int64
	Quantity  int64
}

func (l Line) Subtotal() int64 {
	return l.UnitPrice * l.Quantity
}

type Breakdown struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discount_amount"`
	DeliveryCharge int64 `json:"delivery_charge"`
	TotalAmount    int64 `json:"total_amount"`
}

// DeliveryCharge returns the fee for the tier subtotal falls into:
// above 500 is free, above 250 costs 30, anything else 50.
func DeliveryCharge(subtotal int64) int64 {
	switch {
	case subtotal > freeDeliveryAbove:
		return 0
	case subtotal > reducedDeliveryAbove:
		return reducedDeliveryCharge
	default:
		return standardDeliveryCharge
	}
}

// Discount returns 0 when subtotal is below the rule's minimum order amount.
// Fixed discounts are never capped and may exceed subtotal.
func Discount(rule DiscountRule, subtotal int64) int64 {
	if subtotal < rule.MinOrderAmount {
		return 0
	}

	switch rule.Type {
	case DiscountPercentage:
		// integer division floors for the non-negative operands seen here
		discount := subtotal * rule.Value / 100
		if rule.MaxDiscount != nil && *rule.MaxDiscount > 0 && discount > *rule.MaxDiscount {
			discount = *rule.MaxDiscount
		}
		return discount
	case DiscountFixed:
		return rule.Value
	default:
		return 0
	}
}

// Total is not floored at zero.
func Total(subtotal, discount, delivery int64) int64 {
	return subtotal - discount + delivery
}

// Quote prices a set of lines. A nil rule means no coupon.
func Quote(lines []Line, rule *DiscountRule) Breakdown {
	var b Breakdown
	for _, l := range lines {
		b.Subtotal += l.Subtotal()
	}
	if rule != nil {
		b.DiscountAmount = Discount(*rule, b.Subtotal)
	}
	b.DeliveryCharge = DeliveryCharge(b.Subtotal)
	b.TotalAmount = Total(b.Subtotal, b.DiscountAmount, b.DeliveryCharge)
	return b
}
