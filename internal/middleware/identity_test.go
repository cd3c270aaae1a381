package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptpix/api/internal/config"
	"promptpix/api/internal/models"
)

func newIdentityRouter() (*gin.Engine, *models.Identity) {
	gin.SetMode(gin.TestMode)
	resolved := &models.Identity{}

	router := gin.New()
	router.Use(Identity(&config.AppConfig{}, nil, nil))
	router.GET("/probe", func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		*resolved = identity
		c.Status(http.StatusOK)
	})
	return router, resolved
}

func TestIdentityIssuesDeviceID(t *testing.T) {
	router, resolved := newIdentityRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.IdentityAnonymous, resolved.Kind)

	issued := w.Header().Get("X-Device-Id")
	require.NotEmpty(t, issued)
	_, err := uuid.Parse(issued)
	assert.NoError(t, err)
	assert.Equal(t, issued, resolved.ID)
}

func TestIdentityEchoesExistingDeviceID(t *testing.T) {
	router, resolved := newIdentityRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Device-Id", "device-abc")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "device-abc", w.Header().Get("X-Device-Id"))
	assert.Equal(t, models.AnonymousIdentity("device-abc"), *resolved)
}

func TestIdentityMalformedBearerFallsThrough(t *testing.T) {
	router, resolved := newIdentityRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer not-a-valid-token")
	req.Header.Set("X-Device-Id", "device-abc")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.IdentityAnonymous, resolved.Kind)
}

func TestCurrentIdentityAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := CurrentIdentity(c)
	assert.False(t, ok)
}
