package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
	"github.com/vasiliy-maslov/baharserene/internal/wishlist"
)

type ProductRefRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

type WishlistIDsResponse struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Wishlist []uuid.UUID `json:"wishlist"`
}

type WishlistResponse struct {
	Success  bool              `json:"success"`
	Wishlist []catalog.Product `json:"wishlist"`
}

type RecentlyViewedResponse struct {
	Success        bool              `json:"success"`
	RecentlyViewed []catalog.Product `json:"recently_viewed"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type WishlistHandler struct {
	wishlist wishlist.Service
	validate *validator.Validate
}

func NewWishlistHandler(svc wishlist.Service) *WishlistHandler {
	return &WishlistHandler{wishlist: svc, validate: validator.New()}
}

// RegisterRoutes expects router to be authenticated already.
func (h *WishlistHandler) RegisterRoutes(router chi.Router) {
	router.Post("/add", h.handleAdd)
	router.Post("/remove", h.handleRemove)
	router.Get("/", h.handleList)
	router.Post("/recent/track", h.handleTrack)
	router.Get("/recent/list", h.handleRecent)
}

func (h *WishlistHandler) productRef(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	caller, ok := identity(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	var req ProductRefRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return uuid.Nil, uuid.Nil, false
	}
	return caller.UserID, req.ProductID, true
}

func (h *WishlistHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.productRef(w, r)
	if !ok {
		return
	}

	ids, err := h.wishlist.Add(r.Context(), userID, productID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add to wishlist")
		return
	}

	respondWithJSON(w, http.StatusOK, WishlistIDsResponse{Success: true, Message: "Added to wishlist", Wishlist: ids})
}

func (h *WishlistHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.productRef(w, r)
	if !ok {
		return
	}

	ids, err := h.wishlist.Remove(r.Context(), userID, productID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to remove from wishlist")
		return
	}

	respondWithJSON(w, http.StatusOK, WishlistIDsResponse{Success: true, Message: "Removed from wishlist", Wishlist: ids})
}

func (h *WishlistHandler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	products, err := h.wishlist.List(r.Context(), caller.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get wishlist")
		return
	}

	respondWithJSON(w, http.StatusOK, WishlistResponse{Success: true, Wishlist: products})
}

func (h *WishlistHandler) handleTrack(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.productRef(w, r)
	if !ok {
		return
	}

	if err := h.wishlist.TrackView(r.Context(), userID, productID); err != nil {
		respondWithServiceError(w, r, err, "Failed to track product view")
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Product view tracked"})
}

func (h *WishlistHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	products, err := h.wishlist.RecentlyViewed(r.Context(), caller.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get recently viewed products")
		return
	}

	respondWithJSON(w, http.StatusOK, RecentlyViewedResponse{Success: true, RecentlyViewed: products})
}
