package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pickup-kitchen/logger"
	"pickup-kitchen/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type usersStub map[uint]*models.User

func (u usersStub) GetUser(_ context.Context, id uint) (*models.User, error) {
	user, ok := u[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func ownerRouter(a *Auth) *gin.Engine {
	return ownerRouterWith(a, nil)
}

func ownerRouterWith(a *Auth, users UserLookup) *gin.Engine {
	r := gin.New()
	r.GET("/owner",
		a.AuthRequired(), RoleRequired(models.RoleOwner), VerifiedRequired(users),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)}) })
	return r
}

func TestAuth_OwnerRoute(t *testing.T) {
	a := NewAuth("test-secret", time.Hour)
	r := ownerRouter(a)

	verifiedOwner, err := a.GenerateToken(&models.User{ID: 7, Role: models.RoleOwner, IsVerified: true})
	require.NoError(t, err)
	pendingOwner, err := a.GenerateToken(&models.User{ID: 8, Role: models.RoleOwner})
	require.NoError(t, err)
	customer, err := a.GenerateToken(&models.User{ID: 9, Role: models.RoleCustomer, IsVerified: true})
	require.NoError(t, err)
	forged, err := NewAuth("other-secret", time.Hour).GenerateToken(&models.User{ID: 7, Role: models.RoleOwner, IsVerified: true})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "verified_owner", header: "Bearer " + verifiedOwner, want: http.StatusOK},
		{name: "unverified_owner", header: "Bearer " + pendingOwner, want: http.StatusForbidden},
		{name: "wrong_role", header: "Bearer " + customer, want: http.StatusForbidden},
		{name: "wrong_signature", header: "Bearer " + forged, want: http.StatusUnauthorized},
		{name: "missing_header", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/owner", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestVerifiedRequired_ApprovalAfterLogin(t *testing.T) {
	a := NewAuth("test-secret", time.Hour)
	token, err := a.GenerateToken(&models.User{ID: 8, Role: models.RoleOwner})
	require.NoError(t, err)

	call := func(users UserLookup) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/owner", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		ownerRouterWith(a, users).ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, call(usersStub{8: {ID: 8, Role: models.RoleOwner}}).Code)
	assert.Equal(t, http.StatusForbidden, call(usersStub{}).Code)
	assert.Equal(t, http.StatusOK, call(usersStub{8: {ID: 8, Role: models.RoleOwner, IsVerified: true}}).Code)
}

func TestAuth_ExpiredToken(t *testing.T) {
	a := NewAuth("test-secret", time.Hour)
	a.ttl = -time.Minute
	token, err := a.GenerateToken(&models.User{ID: 1, Role: models.RoleOwner, IsVerified: true})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/owner", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ownerRouter(a).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	a := NewAuth("test-secret", time.Hour)
	r := gin.New()
	r.GET("/who", a.OptionalAuth(), func(c *gin.Context) {
		if id := OptionalUserID(c); id != nil {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "guest")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/who", nil))
	assert.Equal(t, "guest", rec.Body.String())

	token, err := a.GenerateToken(&models.User{ID: 3, Role: models.RoleCustomer})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "user", rec.Body.String())
}

func TestCartSessionAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), CartSession(3600, false))
	r.GET("/cart", func(c *gin.Context) { c.String(http.StatusOK, GetCartSession(c)) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CartSessionCookie, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, rec.Body.String())

	// the same cookie comes back: no new session is issued
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(cookies[0])
	req.Header.Set(RequestIDHeader, "req-1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, cookies[0].Value, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("test", &buf, slog.LevelDebug)

	r := gin.New()
	r.Use(RequestID(), AccessLog(log))
	r.GET("/missing", func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"error": "nope"}) })

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "http_request", entry["action"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.EqualValues(t, http.StatusNotFound, entry["status"])
}
