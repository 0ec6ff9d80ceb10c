package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/baharserene/internal/respond"
	"github.com/vasiliy-maslov/baharserene/internal/user"
)

type Identity struct {
	UserID uuid.UUID
	Role   user.Role
}

func (i Identity) Admin() bool {
	return i.Role == user.RoleAdmin
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func (m *TokenManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respond.Error(w, http.StatusUnauthorized, "No token provided. Please login.")
			return
		}

		id, err := m.Parse(token)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected bearer token")
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok || !id.Admin() {
			respond.Error(w, http.StatusForbidden, "Access denied. Admin role required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Identify reports who is calling without rejecting anyone. It prefers an
// identity already in the context and falls back to a valid bearer token.
func (m *TokenManager) Identify(r *http.Request) (uuid.UUID, bool) {
	if id, ok := FromContext(r.Context()); ok {
		return id.UserID, true
	}
	token := bearerToken(r)
	if token == "" {
		return uuid.Nil, false
	}
	id, err := m.Parse(token)
	if err != nil {
		return uuid.Nil, false
	}
	return id.UserID, true
}
