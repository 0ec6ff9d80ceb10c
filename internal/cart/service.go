package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
	"github.com/vasiliy-maslov/baharserene/internal/order"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

type ProductLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (*order.Order, error)
}

// CheckoutInput is everything an order needs besides the cart lines.
type CheckoutInput struct {
	ShippingAddress order.ShippingAddress
	PaymentMethod   order.PaymentMethod
	CouponCode      string
	Notes           string
}

type Service interface {
	Get(ctx context.Context, owner uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, owner, productID uuid.UUID, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, owner, productID uuid.UUID) (*Cart, error)
	UpdateQuantity(ctx context.Context, owner, productID uuid.UUID, quantity int) (*Cart, error)
	Clear(ctx context.Context, owner uuid.UUID) error
	// Checkout places an order from the stored cart and empties it on success.
	Checkout(ctx context.Context, owner uuid.UUID, in CheckoutInput) (*order.Order, error)
}

type service struct {
	storage  Storage
	products ProductLookup
	orders   OrderPlacer
}

func NewService(storage Storage, products ProductLookup, orders OrderPlacer) Service {
	return &service{storage: storage, products: products, orders: orders}
}

func (s *service) load(ctx context.Context, owner uuid.UUID) ([]Item, error) {
	items, err := s.storage.Load(ctx, owner)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", owner).Msg("service: failed to load cart")
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}
	return items, nil
}

func (s *service) save(ctx context.Context, owner uuid.UUID, items []Item) (*Cart, error) {
	if err := s.storage.Save(ctx, owner, items); err != nil {
		log.Error().Err(err).Stringer("user_id", owner).Msg("service: failed to save cart")
		return nil, fmt.Errorf("service: failed to save cart: %w", err)
	}
	return newCart(items), nil
}

func (s *service) Get(ctx context.Context, owner uuid.UUID) (*Cart, error) {
	items, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return newCart(items), nil
}

// AddItem merges into an existing line for the same product. A new line takes
// its name, price and image from the catalog at the time it is added.
func (s *service) AddItem(ctx context.Context, owner, productID uuid.UUID, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	items, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += quantity
			return s.save(ctx, owner, items)
		}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch product %s: %w", productID, err)
	}

	items = append(items, Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  quantity,
		ImageURL:  p.PrimaryImage(),
	})
	return s.save(ctx, owner, items)
}

func (s *service) RemoveItem(ctx context.Context, owner, productID uuid.UUID) (*Cart, error) {
	items, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	kept := items[:0]
	for _, it := range items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	return s.save(ctx, owner, kept)
}

// UpdateQuantity clamps to at least one; use RemoveItem to drop a line.
func (s *service) UpdateQuantity(ctx context.Context, owner, productID uuid.UUID, quantity int) (*Cart, error) {
	items, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = max(1, quantity)
		}
	}
	return s.save(ctx, owner, items)
}

func (s *service) Clear(ctx context.Context, owner uuid.UUID) error {
	if err := s.storage.Clear(ctx, owner); err != nil {
		log.Error().Err(err).Stringer("user_id", owner).Msg("service: failed to clear cart")
		return fmt.Errorf("service: failed to clear cart: %w", err)
	}
	return nil
}

func (s *service) Checkout(ctx context.Context, owner uuid.UUID, in CheckoutInput) (*order.Order, error) {
	items, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	lines := make([]order.CartItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, order.CartItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	placed, err := s.orders.PlaceOrder(ctx, order.PlaceOrderInput{
		UserID:          owner,
		Items:           lines,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		CouponCode:      in.CouponCode,
		Notes:           in.Notes,
	})
	if err != nil {
		return nil, err
	}

	// The order already stands; a stale cart is only an annoyance.
	if err := s.storage.Clear(ctx, owner); err != nil {
		log.Error().Err(err).Stringer("user_id", owner).Stringer("order_id", placed.ID).Msg("service: failed to clear cart after checkout")
	}
	return placed, nil
}
