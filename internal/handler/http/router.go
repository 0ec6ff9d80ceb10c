package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vasiliy-maslov/baharserene/internal/auth"
	"github.com/vasiliy-maslov/baharserene/internal/cart"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
	"github.com/vasiliy-maslov/baharserene/internal/order"
	"github.com/vasiliy-maslov/baharserene/internal/user"
	"github.com/vasiliy-maslov/baharserene/internal/wishlist"
)

// Deps is everything the API needs. The limiters are optional.
type Deps struct {
	Users        user.Service
	Products     catalog.Service
	Wishlist     wishlist.Service
	Carts        cart.Service
	Orders       order.Service
	Tokens       *auth.TokenManager
	APILimiter   Middleware
	LoginLimiter Middleware
	CORSOrigin   string
	Now          func() time.Time
}

type HealthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRouter(d Deps) *chi.Mux {
	if d.APILimiter == nil {
		d.APILimiter = passthrough
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if d.CORSOrigin != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{d.CORSOrigin},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(d.APILimiter)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondWithJSON(w, http.StatusOK, HealthResponse{Success: true, Message: "Server is running", Timestamp: d.Now().UTC()})
		})

		api.Route("/auth", NewAuthHandler(d.Users, d.Tokens, d.LoginLimiter).RegisterRoutes)
		api.Route("/products", NewProductHandler(d.Products, d.Tokens.Authenticate).RegisterRoutes)

		api.Group(func(private chi.Router) {
			private.Use(d.Tokens.Authenticate)
			private.Route("/wishlist", NewWishlistHandler(d.Wishlist).RegisterRoutes)
			private.Route("/cart", NewCartHandler(d.Carts).RegisterRoutes)
			private.Route("/orders", NewOrderHandler(d.Orders).RegisterRoutes)
		})
	})

	return r
}
