package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tundra/internal/logger"
	"tundra/internal/token"
	"tundra/pkg/envelope"
)

func newAuthRouter(t *testing.T, handlerCalls *int) (*gin.Engine, *token.Service) {
	t.Helper()
	tokens, err := token.NewService("test-secret", "1h", logger.NopLogger())
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", RequireAuth(tokens, logger.NopLogger()), func(c *gin.Context) {
		*handlerCalls++
		claims := Identity(c)
		require.NotNil(t, claims)
		envelope.Write(c, envelope.Success(gin.H{"user_id": claims.UserID}, "ok"))
	})
	return router, tokens
}

func TestRequireAuthMissingHeader(t *testing.T) {
	calls := 0
	router, _ := newAuthRouter(t, &calls)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w.Body.String())
	assert.Equal(t, envelope.CodeUnauthorized, resp.Code)
	assert.Equal(t, "Authorization token required", resp.Msg)
	assert.Zero(t, calls)
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	calls := 0
	router, _ := newAuthRouter(t, &calls)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)

	resp := decodeEnvelope(t, w.Body.String())
	assert.Equal(t, envelope.CodeUnauthorized, resp.Code)
	assert.Zero(t, calls)
}

func TestRequireAuthInvalidToken(t *testing.T) {
	calls := 0
	router, _ := newAuthRouter(t, &calls)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w.Body.String())
	assert.Equal(t, envelope.CodeInvalidToken, resp.Code)
	assert.Equal(t, "Invalid or expired token", resp.Msg)
	assert.Zero(t, calls)
}

func TestRequireAuthValidToken(t *testing.T) {
	calls := 0
	router, tokens := newAuthRouter(t, &calls)

	signed, err := tokens.Generate("user_dev1_1", "dev1", "app1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	resp := decodeEnvelope(t, w.Body.String())
	assert.Equal(t, envelope.CodeSuccess, resp.Code)
	assert.Equal(t, 1, calls)
}

func TestOptionalAuthProceedsWithoutToken(t *testing.T) {
	tokens, err := token.NewService("test-secret", "1h", logger.NopLogger())
	require.NoError(t, err)

	router := gin.New()
	router.GET("/open", OptionalAuth(tokens, logger.NopLogger()), func(c *gin.Context) {
		assert.Nil(t, Identity(c))
		envelope.Write(c, envelope.Success(nil, "ok"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))

	resp := decodeEnvelope(t, w.Body.String())
	assert.Equal(t, envelope.CodeSuccess, resp.Code)
}
