package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/baharserene/internal/cart"
	"github.com/vasiliy-maslov/baharserene/internal/order"
)

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	// Quantity defaults to one when omitted.
	Quantity *int `json:"quantity,omitempty"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	CouponCode      string                 `json:"couponCode,omitempty" validate:"max=64"`
	Notes           string                 `json:"notes,omitempty" validate:"max=1000"`
}

type CartResponse struct {
	Success bool       `json:"success"`
	Cart    *cart.Cart `json:"cart"`
}

type CartHandler struct {
	carts    cart.Service
	validate *validator.Validate
}

func NewCartHandler(carts cart.Service) *CartHandler {
	return &CartHandler{carts: carts, validate: validator.New()}
}

// RegisterRoutes expects router to be authenticated already.
func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.handleGet)
	router.Delete("/", h.handleClear)
	router.Post("/items", h.handleAddItem)
	router.Put("/items/{productId}", h.handleUpdateItem)
	router.Delete("/items/{productId}", h.handleRemoveItem)
	router.Post("/checkout", h.handleCheckout)
}

func (h *CartHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	c, err := h.carts.Get(r.Context(), caller.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load cart")
		return
	}
	respondWithJSON(w, http.StatusOK, CartResponse{Success: true, Cart: c})
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(r.Context(), caller.UserID); err != nil {
		respondWithServiceError(w, r, err, "Failed to clear cart")
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Cart cleared"})
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	c, err := h.carts.AddItem(r.Context(), caller.UserID, req.ProductID, quantity)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add item to cart")
		return
	}
	respondWithJSON(w, http.StatusOK, CartResponse{Success: true, Cart: c})
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productId")
	if !ok {
		return
	}

	var req UpdateCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), caller.UserID, productID, req.Quantity)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update cart item")
		return
	}
	respondWithJSON(w, http.StatusOK, CartResponse{Success: true, Cart: c})
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	productID, ok := uuidParam(w, r, "productId")
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), caller.UserID, productID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to remove cart item")
		return
	}
	respondWithJSON(w, http.StatusOK, CartResponse{Success: true, Cart: c})
}

func (h *CartHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	placed, err := h.carts.Checkout(r.Context(), caller.UserID, cart.CheckoutInput{
		ShippingAddress: req.ShippingAddress.toDomain(),
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		CouponCode:      req.CouponCode,
		Notes:           req.Notes,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to place order")
		return
	}

	respondWithJSON(w, http.StatusCreated, OrderResponse{Success: true, Message: "Order created successfully", Order: placed})
}
