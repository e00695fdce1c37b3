package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trueheal-portal/internal/models"
	"trueheal-portal/internal/services"
	"trueheal-portal/internal/utils"
)

const secret = "mw-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, role models.Role, issued time.Time) string {
	t.Helper()
	tok, err := utils.GenerateToken(&models.User{BaseModel: models.BaseModel{ID: "u-1"}, Role: role}, secret, time.Hour, issued)
	require.NoError(t, err)
	return tok
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		id, ok := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "userID": id.UserID, "role": id.Role})
	})
	r.GET("/", handlers...)
	return r
}

func get(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	gate := services.NewTokenGate(secret)
	r := newRouter(AuthMiddleware(gate))

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer garbage").Code)

	expired := get(r, "Bearer "+token(t, models.RolePatient, time.Now().Add(-2*time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, expired.Code)
	assert.Contains(t, expired.Body.String(), "expired")

	w := get(r, "Bearer "+token(t, models.RolePatient, time.Now()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userID":"u-1"`)
	assert.Contains(t, w.Body.String(), `"role":"patient"`)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gate := services.NewTokenGate(secret)
	r := newRouter(OptionalAuthMiddleware(gate))

	w := get(r, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer garbage").Code, "a bad token is not downgraded to a guest")
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer").Code)

	w = get(r, "Bearer "+token(t, models.RoleDoctor, time.Now()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
}

func TestRoleAuthMiddleware(t *testing.T) {
	gate := services.NewTokenGate(secret)
	r := newRouter(AuthMiddleware(gate), RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+token(t, models.RolePatient, time.Now())).Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+token(t, models.RoleDoctor, time.Now())).Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+token(t, models.RoleAdmin, time.Now())).Code)

	noAuth := newRouter(RoleAuthMiddleware(models.RoleAdmin))
	assert.Equal(t, http.StatusInternalServerError, get(noAuth, "").Code)
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := newRouter(RateLimit(rl))

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "").Code)

	rl.sweep(0)
	assert.Equal(t, http.StatusOK, get(r, "").Code, "a swept client starts with a fresh bucket")
}
