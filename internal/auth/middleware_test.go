package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/baharserene/internal/auth"
	"github.com/vasiliy-maslov/baharserene/internal/user"
)

func newRouter(tm *auth.TokenManager) http.Handler {
	r := chi.NewRouter()
	r.Use(tm.Authenticate)
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		_, _ = w.Write([]byte(id.UserID.String()))
	})
	r.With(auth.RequireAdmin).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	tm := auth.NewTokenManager("secret", time.Hour)
	router := newRouter(tm)
	userID := uuid.Must(uuid.NewV4())

	userToken, err := tm.Issue(userID, user.RoleUser)
	require.NoError(t, err)
	adminToken, err := tm.Issue(userID, user.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "no_header", path: "/me", wantStatus: http.StatusUnauthorized, wantBody: `{"success":false,"message":"No token provided. Please login."}`},
		{name: "wrong_scheme", path: "/me", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantBody: `{"success":false,"message":"No token provided. Please login."}`},
		{name: "invalid_token", path: "/me", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantBody: `{"success":false,"message":"Invalid or expired token"}`},
		{name: "valid_token", path: "/me", header: "Bearer " + userToken, wantStatus: http.StatusOK},
		{name: "user_on_admin_route", path: "/admin", header: "Bearer " + userToken, wantStatus: http.StatusForbidden, wantBody: `{"success":false,"message":"Access denied. Admin role required."}`},
		{name: "admin_on_admin_route", path: "/admin", header: "Bearer " + adminToken, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rr.Body.String())
			}
			if tt.name == "valid_token" {
				assert.Equal(t, userID.String(), rr.Body.String())
			}
		})
	}
}

func TestRequireAdmin_WithoutIdentity(t *testing.T) {
	h := auth.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestIdentify(t *testing.T) {
	tm := auth.NewTokenManager("secret", time.Hour)
	userID := uuid.Must(uuid.NewV4())
	token, err := tm.Issue(userID, user.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := tm.Identify(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "Bearer garbage")
	_, ok = tm.Identify(req)
	assert.False(t, ok)

	req.Header.Set("Authorization", "Bearer "+token)
	got, ok := tm.Identify(req)
	assert.True(t, ok)
	assert.Equal(t, userID, got)

	fromCtx := uuid.Must(uuid.NewV4())
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: fromCtx, Role: user.RoleUser}))
	got, _ = tm.Identify(req)
	assert.Equal(t, fromCtx, got, "context identity wins")
}
