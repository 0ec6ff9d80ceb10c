package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
)

type RatingRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review,omitempty" validate:"max=1000"`
}

type ProductListResponse struct {
	Success    bool               `json:"success"`
	Products   []catalog.Product  `json:"products"`
	Pagination catalog.Pagination `json:"pagination"`
}

type ProductDetailResponse struct {
	Success         bool              `json:"success"`
	Product         *catalog.Product  `json:"product"`
	SimilarProducts []catalog.Product `json:"similar_products"`
}

type ProductResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Product *catalog.Product `json:"product"`
}

// sortAliases accepts the camelCase names older clients send.
var sortAliases = map[string]catalog.SortField{
	"createdAt":     catalog.SortCreatedAt,
	"averageRating": catalog.SortAverageRating,
}

type ProductHandler struct {
	products catalog.Service
	authn    Middleware
	validate *validator.Validate
}

func NewProductHandler(products catalog.Service, authn Middleware) *ProductHandler {
	return &ProductHandler{products: products, authn: authn, validate: validator.New()}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	router.Get("/", h.handleList)
	router.Get("/search", h.handleSearch)
	router.Get("/{id}", h.handleGet)
	router.With(h.authn).Post("/{id}/rating", h.handleAddRating)
}

func queryInt(q url.Values, key string) (int, bool) {
	raw := q.Get(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	return v, err == nil
}

func queryPrice(q url.Values, key string) (*int64, bool) {
	raw := q.Get(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil, false
	}
	return &v, true
}

func parseFilter(q url.Values) (catalog.Filter, string) {
	page, ok := queryInt(q, "page")
	if !ok {
		return catalog.Filter{}, "Invalid page parameter"
	}
	limit, ok := queryInt(q, "limit")
	if !ok {
		return catalog.Filter{}, "Invalid limit parameter"
	}
	minPrice, ok := queryPrice(q, "minPrice")
	if !ok {
		return catalog.Filter{}, "Invalid minPrice parameter"
	}
	maxPrice, ok := queryPrice(q, "maxPrice")
	if !ok {
		return catalog.Filter{}, "Invalid maxPrice parameter"
	}

	sortBy := catalog.SortField(q.Get("sortBy"))
	if alias, found := sortAliases[q.Get("sortBy")]; found {
		sortBy = alias
	}

	return catalog.Filter{
		Category:   catalog.Category(q.Get("category")),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Difficulty: catalog.Difficulty(q.Get("difficulty")),
		Size:       catalog.Size(q.Get("size")),
		SortBy:     sortBy,
		Ascending:  q.Get("order") == "asc",
		Page:       page,
		Limit:      limit,
	}, ""
}

func (h *ProductHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, problem := parseFilter(r.URL.Query())
	if problem != "" {
		respondWithError(w, http.StatusBadRequest, problem)
		return
	}

	page, err := h.products.ListProducts(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list products")
		return
	}

	respondWithJSON(w, http.StatusOK, ProductListResponse{Success: true, Products: page.Products, Pagination: page.Pagination})
}

func (h *ProductHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageNum, ok := queryInt(q, "page")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid page parameter")
		return
	}
	limit, ok := queryInt(q, "limit")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid limit parameter")
		return
	}

	page, err := h.products.SearchProducts(r.Context(), q.Get("query"), pageNum, limit)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to search products")
		return
	}

	respondWithJSON(w, http.StatusOK, ProductListResponse{Success: true, Products: page.Products, Pagination: page.Pagination})
}

func (h *ProductHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get product")
		return
	}

	respondWithJSON(w, http.StatusOK, ProductDetailResponse{Success: true, Product: detail.Product, SimilarProducts: detail.SimilarProducts})
}

func (h *ProductHandler) handleAddRating(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req RatingRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	product, err := h.products.AddRating(r.Context(), id, caller.UserID, req.Rating, req.Review)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add rating")
		return
	}

	respondWithJSON(w, http.StatusOK, ProductResponse{Success: true, Message: "Rating added successfully", Product: product})
}
