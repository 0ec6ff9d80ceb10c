package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/baharserene/internal/auth"
	"github.com/vasiliy-maslov/baharserene/internal/user"
)

// Middleware is the chi middleware shape.
type Middleware = func(http.Handler) http.Handler

func passthrough(next http.Handler) http.Handler { return next }

type SignupRequest struct {
	FirstName string `json:"firstName" validate:"required,min=2"`
	LastName  string `json:"lastName" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,len=10,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,min=2"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,min=2"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,len=10,numeric"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Role      user.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

type ProfileResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	User    UserResponse `json:"user"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type AuthHandler struct {
	users        user.Service
	tokens       *auth.TokenManager
	validate     *validator.Validate
	loginLimiter Middleware
}

// NewAuthHandler serves signup, login and the caller's profile. loginLimiter
// guards signup and login and may be nil.
func NewAuthHandler(users user.Service, tokens *auth.TokenManager, loginLimiter Middleware) *AuthHandler {
	if loginLimiter == nil {
		loginLimiter = passthrough
	}
	return &AuthHandler{
		users:        users,
		tokens:       tokens,
		validate:     validator.New(),
		loginLimiter: loginLimiter,
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.With(h.loginLimiter).Post("/signup", h.handleSignup)
	router.With(h.loginLimiter).Post("/login", h.handleLogin)
	router.With(h.tokens.Authenticate).Get("/profile", h.handleGetProfile)
	router.With(h.tokens.Authenticate).Put("/profile", h.handleUpdateProfile)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, code int, message string, u *user.User) {
	token, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to issue token")
		return
	}
	respondWithJSON(w, code, AuthResponse{Success: true, Message: message, Token: token, User: toUserResponse(u)})
}

func (h *AuthHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.users.Signup(r.Context(), user.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create user")
		return
	}

	h.respondWithToken(w, r, http.StatusCreated, "User registered successfully", created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to login")
		return
	}

	h.respondWithToken(w, r, http.StatusOK, "Login successful", u)
}

func (h *AuthHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	u, err := h.users.GetProfile(r.Context(), id.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to get profile")
		return
	}

	respondWithJSON(w, http.StatusOK, ProfileResponse{Success: true, User: toUserResponse(u)})
}

func (h *AuthHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.users.UpdateProfile(r.Context(), id.UserID, user.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, ProfileResponse{Success: true, Message: "Profile updated successfully", User: toUserResponse(u)})
}
