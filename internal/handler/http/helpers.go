package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/auth"
	"github.com/vasiliy-maslov/baharserene/internal/cart"
	"github.com/vasiliy-maslov/baharserene/internal/catalog"
	"github.com/vasiliy-maslov/baharserene/internal/order"
	"github.com/vasiliy-maslov/baharserene/internal/respond"
	"github.com/vasiliy-maslov/baharserene/internal/user"
	"github.com/vasiliy-maslov/baharserene/internal/wishlist"
)

// maxBodyBytes mirrors the 10mb JSON limit of the storefront API.
const maxBodyBytes = 10 << 20

type ValidationErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	respond.JSON(w, code, payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respond.Error(w, code, message)
}

// domainErrors pairs every error the API exposes with its status code.
// Typed errors come first so their richer message wins over the sentinel.
var domainErrors = []struct {
	err  error
	code int
}{
	{order.ErrEmptyCart, http.StatusBadRequest},
	{order.ErrInvalidQuantity, http.StatusBadRequest},
	{order.ErrInvalidPaymentMethod, http.StatusBadRequest},
	{order.ErrInvalidStatus, http.StatusBadRequest},
	{order.ErrInsufficientStock, http.StatusBadRequest},
	{catalog.ErrInvalidRating, http.StatusBadRequest},
	{catalog.ErrEmptySearchQuery, http.StatusBadRequest},
	{cart.ErrInvalidQuantity, http.StatusBadRequest},
	{wishlist.ErrAlreadyInWishlist, http.StatusBadRequest},
	{user.ErrInvalidCredentials, http.StatusUnauthorized},
	{order.ErrUnauthorized, http.StatusForbidden},
	{order.ErrProductNotFound, http.StatusNotFound},
	{order.ErrOrderNotFound, http.StatusNotFound},
	{catalog.ErrProductNotFound, http.StatusNotFound},
	{cart.ErrProductNotFound, http.StatusNotFound},
	{wishlist.ErrProductNotFound, http.StatusNotFound},
	{user.ErrNotFound, http.StatusNotFound},
	{user.ErrEmailExists, http.StatusConflict},
}

func mapErrorToStatusCode(err error) int {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.code
		}
	}
	return http.StatusInternalServerError
}

// respondWithServiceError logs and writes err. Domain errors keep their own
// message; anything unexpected is reported as fallback.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
		respondWithError(w, code, fallback)
		return
	}
	log.Debug().Err(err).Str("path", r.URL.Path).Int("status", code).Msg("Request rejected")
	respondWithError(w, code, clientMessage(err))
}

func clientMessage(err error) string {
	var notFound *order.ProductNotFoundError
	if errors.As(err, &notFound) {
		return capitalize(notFound.Error())
	}
	var noStock *order.InsufficientStockError
	if errors.As(err, &noStock) {
		return noStock.Error()
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return capitalize(d.err.Error())
		}
	}
	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			details[field] = "This field is required"
		case "email":
			details[field] = "Invalid email format"
		case "min":
			details[field] = fmt.Sprintf("Must be at least %s", fe.Param())
		case "max":
			details[field] = fmt.Sprintf("Must be at most %s", fe.Param())
		case "len":
			details[field] = fmt.Sprintf("Must be exactly %s characters", fe.Param())
		case "numeric":
			details[field] = "Must contain digits only"
		case "oneof":
			details[field] = fmt.Sprintf("Must be one of: %s", fe.Param())
		default:
			details[field] = fmt.Sprintf("Failed on '%s' validation", fe.Tag())
		}
	}
	return details
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Success: false,
				Message: "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Debug().Err(err).Str(name, raw).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s parameter", name))
		return uuid.Nil, false
	}
	return id, true
}

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "No token provided. Please login.")
	}
	return id, ok
}
