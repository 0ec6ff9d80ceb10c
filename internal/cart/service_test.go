package cart_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/baharserene/internal/cart"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
	"github.com/vasiliy-maslov/baharserene/internal/order"
)

type MockProducts struct {
	mock.Mock
}

func (m *MockProducts) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

type MockOrders struct {
	mock.Mock
}

func (m *MockOrders) PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (*order.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func monstera() *catalog.Product {
	return &catalog.Product{
		ID:     uuid.Must(uuid.NewV4()),
		Name:   "Monstera Deliciosa",
		Price:  450,
		Images: []catalog.Image{{URL: "/img/monstera.jpg"}, {URL: "/img/monstera-2.jpg"}},
	}
}

func TestService_AddItem(t *testing.T) {
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	p := monstera()

	products := new(MockProducts)
	products.On("GetByID", ctx, p.ID).Return(p, nil).Once()
	svc := cart.NewService(cart.NewMemoryStorage(), products, new(MockOrders))

	c, err := svc.AddItem(ctx, owner, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, cart.Item{ProductID: p.ID, Name: p.Name, Price: 450, Quantity: 2, ImageURL: "/img/monstera.jpg"}, c.Items[0])
	assert.Equal(t, int64(900), c.Total)
	assert.Equal(t, 2, c.ItemCount)

	// Second add merges without another catalog lookup.
	c, err = svc.AddItem(ctx, owner, p.ID, 3)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, int64(2250), c.Total)

	products.AssertExpectations(t)
}

func TestService_AddItem_Errors(t *testing.T) {
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	id := uuid.Must(uuid.NewV4())

	t.Run("invalid_quantity", func(t *testing.T) {
		products := new(MockProducts)
		svc := cart.NewService(cart.NewMemoryStorage(), products, new(MockOrders))

		_, err := svc.AddItem(ctx, owner, id, 0)
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
		products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unknown_product", func(t *testing.T) {
		products := new(MockProducts)
		products.On("GetByID", ctx, id).Return(nil, catalog.ErrProductNotFound).Once()
		svc := cart.NewService(cart.NewMemoryStorage(), products, new(MockOrders))

		_, err := svc.AddItem(ctx, owner, id, 1)
		assert.ErrorIs(t, err, cart.ErrProductNotFound)
		products.AssertExpectations(t)
	})

	t.Run("lookup_failure", func(t *testing.T) {
		products := new(MockProducts)
		products.On("GetByID", ctx, id).Return(nil, errors.New("db down")).Once()
		svc := cart.NewService(cart.NewMemoryStorage(), products, new(MockOrders))

		_, err := svc.AddItem(ctx, owner, id, 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, cart.ErrProductNotFound)
	})
}

func TestService_UpdateRemoveClear(t *testing.T) {
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	p1, p2 := monstera(), monstera()
	p2.Price = 100

	products := new(MockProducts)
	products.On("GetByID", ctx, p1.ID).Return(p1, nil).Once()
	products.On("GetByID", ctx, p2.ID).Return(p2, nil).Once()
	svc := cart.NewService(cart.NewMemoryStorage(), products, new(MockOrders))

	_, err := svc.AddItem(ctx, owner, p1.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, p2.ID, 1)
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(ctx, owner, p2.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(450+400), c.Total)
	assert.Equal(t, 5, c.ItemCount)

	c, err = svc.UpdateQuantity(ctx, owner, p2.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items[1].Quantity, "quantity is clamped to one")

	c, err = svc.RemoveItem(ctx, owner, p1.ID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, p2.ID, c.Items[0].ProductID)

	require.NoError(t, svc.Clear(ctx, owner))
	c, err = svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.Total)
	assert.Zero(t, c.ItemCount)
}

func TestService_Checkout(t *testing.T) {
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	p := monstera()
	address := order.ShippingAddress{FullName: "Rana", AddressLine1: "1 Leaf St", City: "Karachi", PostalCode: "74000", Phone: "0300"}

	newFilled := func(t *testing.T) (cart.Service, *MockOrders) {
		t.Helper()
		products := new(MockProducts)
		products.On("GetByID", ctx, p.ID).Return(p, nil).Once()
		orders := new(MockOrders)
		svc := cart.NewService(cart.NewMemoryStorage(), products, orders)
		_, err := svc.AddItem(ctx, owner, p.ID, 2)
		require.NoError(t, err)
		return svc, orders
	}

	t.Run("success_clears_cart", func(t *testing.T) {
		svc, orders := newFilled(t)
		placed := &order.Order{ID: uuid.Must(uuid.NewV4()), OrderNumber: "ORD-1"}
		orders.On("PlaceOrder", ctx, mock.MatchedBy(func(in order.PlaceOrderInput) bool {
			return in.UserID == owner &&
				len(in.Items) == 1 && in.Items[0].ProductID == p.ID && in.Items[0].Quantity == 2 &&
				in.PaymentMethod == order.PaymentUPI && in.CouponCode == "SPRING10"
		})).Return(placed, nil).Once()

		got, err := svc.Checkout(ctx, owner, cart.CheckoutInput{
			ShippingAddress: address,
			PaymentMethod:   order.PaymentUPI,
			CouponCode:      "SPRING10",
		})
		require.NoError(t, err)
		assert.Equal(t, placed, got)

		c, err := svc.Get(ctx, owner)
		require.NoError(t, err)
		assert.Empty(t, c.Items)
		orders.AssertExpectations(t)
	})

	t.Run("failure_keeps_cart", func(t *testing.T) {
		svc, orders := newFilled(t)
		orders.On("PlaceOrder", ctx, mock.Anything).Return(nil, order.ErrEmptyCart).Once()

		_, err := svc.Checkout(ctx, owner, cart.CheckoutInput{ShippingAddress: address, PaymentMethod: order.PaymentUPI})
		assert.ErrorIs(t, err, order.ErrEmptyCart)

		c, err := svc.Get(ctx, owner)
		require.NoError(t, err)
		assert.Len(t, c.Items, 1)
	})
}
