package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
	"github.com/vasiliy-maslov/baharserene/internal/coupon"
	"github.com/vasiliy-maslov/baharserene/internal/events"
	"github.com/vasiliy-maslov/baharserene/internal/pricing"
)

type ProductLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type CouponLookup interface {
	FindActive(ctx context.Context, code string, at time.Time) (*coupon.Coupon, error)
}

type Service interface {
	PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*Order, error)
	UpdateOrderStatus(ctx context.Context, actor Actor, orderID uuid.UUID, upd StatusUpdate) (*Order, error)
}

type Option func(*service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithNumberGenerator(gen NumberGenerator) Option {
	return func(s *service) { s.newNumber = gen }
}

type service struct {
	orderRepo Repository
	products  ProductLookup
	coupons   CouponLookup
	publisher events.Publisher
	now       func() time.Time
	newNumber NumberGenerator
}

func NewService(orderRepo Repository, products ProductLookup, coupons CouponLookup, publisher events.Publisher, opts ...Option) Service {
	s := &service{
		orderRepo: orderRepo,
		products:  products,
		coupons:   coupons,
		publisher: publisher,
		now:       time.Now,
		newNumber: NewOrderNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	return s
}

func (s *service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	if len(in.Items) == 0 {
		log.Warn().Stringer("user_id", in.UserID).Msg("service: attempt to place order with empty cart")
		return nil, ErrEmptyCart
	}
	if !in.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	items, lines, err := s.snapshotItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	var (
		rule     *pricing.DiscountRule
		couponID *uuid.UUID
		code     *string
	)
	if in.CouponCode != "" {
		c, err := s.coupons.FindActive(ctx, coupon.NormalizeCode(in.CouponCode), now)
		switch {
		case errors.Is(err, coupon.ErrCouponNotFound):
			log.Info().Str("coupon_code", in.CouponCode).Msg("service: coupon not applicable, placing order without discount")
		case err != nil:
			log.Error().Err(err).Str("coupon_code", in.CouponCode).Msg("service: failed to look up coupon")
			return nil, fmt.Errorf("service: failed to look up coupon: %w", err)
		default:
			r := c.Rule()
			rule = &r
			couponID = &c.ID
			code = &c.Code
		}
	}

	quote := pricing.Quote(lines, rule)

	o := &Order{
		OrderNumber: s.newNumber(now),
		UserID:      in.UserID,
		Items:       items,
		Subtotal:    quote.Subtotal,
		DiscountApplied: Discount{
			CouponCode:     code,
			DiscountAmount: quote.DiscountAmount,
		},
		DeliveryCharge:  quote.DeliveryCharge,
		TotalAmount:     quote.TotalAmount,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   PaymentPending,
		OrderStatus:     StatusPending,
	}
	if in.Notes != "" {
		notes := in.Notes
		o.Notes = &notes
	}

	if o.TotalAmount < 0 {
		log.Warn().
			Bool("alert", true).
			Str("order_number", o.OrderNumber).
			Str("coupon_code", in.CouponCode).
			Int64("subtotal", o.Subtotal).
			Int64("discount_amount", o.DiscountApplied.DiscountAmount).
			Int64("total_amount", o.TotalAmount).
			Msg("service: order total is negative")
	}

	if err := s.orderRepo.CreateOrder(ctx, o, couponID); err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			log.Warn().Stringer("product_id", stockErr.ProductID).Msg("service: stock ran out while placing order")
			return nil, stockErr
		}
		log.Error().Err(err).Stringer("user_id", in.UserID).Str("order_number", o.OrderNumber).Msg("service: failed to create order in repository")
		return nil, &PersistenceError{Op: "create order", Err: err}
	}

	log.Info().
		Stringer("order_id", o.ID).
		Stringer("user_id", o.UserID).
		Str("order_number", o.OrderNumber).
		Int64("total_amount", o.TotalAmount).
		Msg("service: order placed")

	s.publish(ctx, events.OrderPlaced, o)

	return o, nil
}

// snapshotItems resolves every cart line against the catalog and freezes
// its name and price.
func (s *service) snapshotItems(ctx context.Context, cart []CartItem) ([]LineItem, []pricing.Line, error) {
	items := make([]LineItem, 0, len(cart))
	lines := make([]pricing.Line, 0, len(cart))

	for _, ci := range cart {
		if ci.Quantity < 1 {
			return nil, nil, fmt.Errorf("service: product %s: %w", ci.ProductID, ErrInvalidQuantity)
		}

		p, err := s.products.GetByID(ctx, ci.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				log.Warn().Stringer("product_id", ci.ProductID).Msg("service: cart references unknown product")
				return nil, nil, &ProductNotFoundError{ProductID: ci.ProductID}
			}
			log.Error().Err(err).Stringer("product_id", ci.ProductID).Msg("service: failed to fetch product")
			return nil, nil, fmt.Errorf("service: failed to fetch product %s: %w", ci.ProductID, err)
		}

		if int64(ci.Quantity) > p.Stock {
			log.Warn().Stringer("product_id", p.ID).Int("quantity", ci.Quantity).Int64("stock", p.Stock).Msg("service: insufficient stock")
			return nil, nil, &InsufficientStockError{ProductID: p.ID, ProductName: p.Name}
		}

		line := pricing.Line{UnitPrice: p.Price, Quantity: int64(ci.Quantity)}
		lines = append(lines, line)
		items = append(items, LineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    ci.Quantity,
			Price:       p.Price,
			Subtotal:    line.Subtotal(),
		})
	}

	return items, lines, nil
}

// publish runs after commit. The order already stands, so a failure only
// reaches the operator log.
func (s *service) publish(ctx context.Context, typ events.Type, o *Order) {
	err := s.publisher.Publish(ctx, events.OrderEvent{
		Type:          typ,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		TotalAmount:   o.TotalAmount,
		OrderStatus:   o.OrderStatus.String(),
		PaymentStatus: o.PaymentStatus.String(),
		OccurredAt:    s.now().UTC(),
	})
	if err != nil {
		log.Error().
			Err(err).
			Bool("alert", true).
			Str("event_type", string(typ)).
			Stringer("order_id", o.ID).
			Msg("service: failed to publish order event")
	}
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, &PersistenceError{Op: "list orders", Err: err}
	}
	return orders, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	o, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to fetch order by id in repository")
		return nil, &PersistenceError{Op: "get order", Err: err}
	}

	// Someone else's order looks exactly like a missing one.
	if o.UserID != userID {
		log.Warn().Stringer("order_id", orderID).Stringer("user_id", userID).Msg("service: order requested by non-owner")
		return nil, ErrOrderNotFound
	}

	return o, nil
}

// UpdateOrderStatus accepts any transition between known statuses.
func (s *service) UpdateOrderStatus(ctx context.Context, actor Actor, orderID uuid.UUID, upd StatusUpdate) (*Order, error) {
	if !actor.Admin {
		log.Warn().Stringer("user_id", actor.UserID).Stringer("order_id", orderID).Msg("service: non-admin attempted order status update")
		return nil, ErrUnauthorized
	}
	if upd.OrderStatus != nil && !upd.OrderStatus.Valid() {
		return nil, fmt.Errorf("service: order status %q: %w", *upd.OrderStatus, ErrInvalidStatus)
	}
	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		return nil, fmt.Errorf("service: payment status %q: %w", *upd.PaymentStatus, ErrInvalidStatus)
	}

	if !upd.Empty() {
		if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, upd); err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return nil, ErrOrderNotFound
			}
			log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to update order status in repository")
			return nil, &PersistenceError{Op: "update order status", Err: err}
		}
	}

	o, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to reload order after status update")
		return nil, &PersistenceError{Op: "get order", Err: err}
	}

	if !upd.Empty() {
		log.Info().
			Stringer("order_id", orderID).
			Stringer("order_status", o.OrderStatus).
			Stringer("payment_status", o.PaymentStatus).
			Msg("service: order status updated")
		s.publish(ctx, events.OrderStatusChanged, o)
	}

	return o, nil
}
