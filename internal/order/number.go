package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// NumberGenerator returns a human-readable order number. Uniqueness is
// probabilistic; the orders_order_number_key constraint catches collisions.
type NumberGenerator func(now time.Time) string

// NewOrderNumber formats ORD-<unix millis>-<0..9999>.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%d", now.UnixMilli(), rand.IntN(10000))
}
