package http_test

import (
	"net/http"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/baharserene/internal/cart"
	handler "github.com/vasiliy-maslov/baharserene/internal/handler/http"
	"github.com/vasiliy-maslov/baharserene/internal/order"
	"github.com/vasiliy-maslov/baharserene/internal/user"
)

func TestCartHandler_Items(t *testing.T) {
	f := newFixture(t)
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())
	token := f.token(t, userID, user.RoleUser)
	filled := &cart.Cart{Items: []cart.Item{{ProductID: productID, Name: "Fern", Price: 120, Quantity: 3}}, Total: 360, ItemCount: 3}

	f.carts.On("AddItem", mock.Anything, userID, productID, 1).Return(filled, nil).Once()
	f.carts.On("UpdateQuantity", mock.Anything, userID, productID, 3).Return(filled, nil).Once()
	f.carts.On("RemoveItem", mock.Anything, userID, productID).Return(&cart.Cart{Items: []cart.Item{}}, nil).Once()
	f.carts.On("Get", mock.Anything, userID).Return(filled, nil).Once()
	f.carts.On("Clear", mock.Anything, userID).Return(nil).Once()

	rr := f.do(t, http.MethodPost, "/api/cart/items", token, map[string]string{"productId": productID.String()})
	require.Equal(t, http.StatusOK, rr.Code, "quantity defaults to one")

	rr = f.do(t, http.MethodPut, "/api/cart/items/"+productID.String(), token, handler.UpdateCartItemRequest{Quantity: 3})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(360), decode[handler.CartResponse](t, rr).Cart.Total)

	rr = f.do(t, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, decode[handler.CartResponse](t, rr).Cart.ItemCount)

	rr = f.do(t, http.MethodDelete, "/api/cart/items/"+productID.String(), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[handler.CartResponse](t, rr).Cart.Items)

	rr = f.do(t, http.MethodDelete, "/api/cart", token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCartHandler_AddUnknownProduct(t *testing.T) {
	f := newFixture(t)
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	f.carts.On("AddItem", mock.Anything, userID, productID, 2).Return(nil, cart.ErrProductNotFound).Once()

	qty := 2
	rr := f.do(t, http.MethodPost, "/api/cart/items", f.token(t, userID, user.RoleUser), handler.AddCartItemRequest{ProductID: productID, Quantity: &qty})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCartHandler_Checkout(t *testing.T) {
	f := newFixture(t)
	userID := uuid.Must(uuid.NewV4())
	token := f.token(t, userID, user.RoleUser)

	f.carts.On("Checkout", mock.Anything, userID, mock.MatchedBy(func(in cart.CheckoutInput) bool {
		return in.PaymentMethod == order.PaymentWallet && in.ShippingAddress.FullName == "Rana Khan"
	})).Return(&order.Order{ID: uuid.Must(uuid.NewV4()), OrderNumber: "ORD-9-9"}, nil).Once()

	rr := f.do(t, http.MethodPost, "/api/cart/checkout", token, handler.CheckoutRequest{
		ShippingAddress: validAddress(),
		PaymentMethod:   "wallet",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "ORD-9-9", decode[handler.OrderResponse](t, rr).Order.OrderNumber)
}

func TestCartHandler_CheckoutClientBody(t *testing.T) {
	f := newFixture(t)
	userID := uuid.Must(uuid.NewV4())

	f.carts.On("Checkout", mock.Anything, userID, mock.MatchedBy(func(in cart.CheckoutInput) bool {
		return in.PaymentMethod == order.PaymentCreditCard &&
			in.CouponCode == "SAVE50" &&
			in.ShippingAddress.AddressLine1 == "7 Lake View" &&
			in.ShippingAddress.PostalCode == "560001"
	})).Return(&order.Order{ID: uuid.Must(uuid.NewV4()), OrderNumber: "ORD-3-3"}, nil).Once()

	body := `{"shippingAddress":{"fullName":"Asha Rao","phone":"9876500000","addressLine1":"7 Lake View",` +
		`"city":"Bengaluru","postalCode":"560001"},"paymentMethod":"credit_card","couponCode":"SAVE50"}`

	rr := f.do(t, http.MethodPost, "/api/cart/checkout", f.token(t, userID, user.RoleUser), body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "ORD-3-3", decode[handler.OrderResponse](t, rr).Order.OrderNumber)
}
