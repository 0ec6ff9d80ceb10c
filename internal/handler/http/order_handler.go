package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/baharserene/internal/auth"
	"github.com/vasiliy-maslov/baharserene/internal/order"
)

type ShippingAddressRequest struct {
	FullName     string `json:"fullName" validate:"required,min=2"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"required"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode" validate:"required"`
	Country      string `json:"country,omitempty"`
}

func (a ShippingAddressRequest) toDomain() order.ShippingAddress {
	return order.ShippingAddress{
		FullName:     a.FullName,
		Email:        a.Email,
		Phone:        a.Phone,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
	}
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity"`
}

type PlaceOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" validate:"dive"`
	ShippingAddress ShippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	CouponCode      string                 `json:"couponCode,omitempty" validate:"max=64"`
	Notes           string                 `json:"notes,omitempty" validate:"max=1000"`
}

type UpdateOrderStatusRequest struct {
	OrderStatus    *string `json:"orderStatus,omitempty"`
	PaymentStatus  *string `json:"paymentStatus,omitempty"`
	TrackingNumber *string `json:"trackingNumber,omitempty" validate:"omitempty,max=128"`
}

func (req UpdateOrderStatusRequest) toDomain() order.StatusUpdate {
	var upd order.StatusUpdate
	if req.OrderStatus != nil {
		s := order.Status(*req.OrderStatus)
		upd.OrderStatus = &s
	}
	if req.PaymentStatus != nil {
		s := order.PaymentStatus(*req.PaymentStatus)
		upd.PaymentStatus = &s
	}
	upd.TrackingNumber = req.TrackingNumber
	return upd
}

type OrderResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Order   *order.Order `json:"order"`
}

type OrderListResponse struct {
	Success bool          `json:"success"`
	Orders  []order.Order `json:"orders"`
}

type OrderHandler struct {
	orders   order.Service
	validate *validator.Validate
}

func NewOrderHandler(orders order.Service) *OrderHandler {
	return &OrderHandler{orders: orders, validate: validator.New()}
}

// RegisterRoutes expects router to be authenticated already.
func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/", h.handleCreateOrder)
	router.Get("/", h.handleListOrders)
	router.Get("/{id}", h.handleGetOrder)
	router.With(auth.RequireAdmin).Put("/{id}", h.handleUpdateOrderStatus)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var req PlaceOrderRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	items := make([]order.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.CartItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	placed, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderInput{
		UserID:          caller.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress.toDomain(),
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		CouponCode:      req.CouponCode,
		Notes:           req.Notes,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create order")
		return
	}

	respondWithJSON(w, http.StatusCreated, OrderResponse{Success: true, Message: "Order created successfully", Order: placed})
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), caller.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list orders")
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}

	respondWithJSON(w, http.StatusOK, OrderListResponse{Success: true, Orders: orders})
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.orders.GetOrder(r.Context(), caller.UserID, id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, OrderResponse{Success: true, Order: o})
}

func (h *OrderHandler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	actor := order.Actor{UserID: caller.UserID, Admin: caller.Admin()}
	updated, err := h.orders.UpdateOrderStatus(r.Context(), actor, id, req.toDomain())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update order")
		return
	}

	respondWithJSON(w, http.StatusOK, OrderResponse{Success: true, Message: "Order updated successfully", Order: updated})
}
