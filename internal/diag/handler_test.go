package diag

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tundra/internal/config"
	"tundra/internal/database"
	"tundra/internal/logger"
	"tundra/pkg/envelope"
	"tundra/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newDiagRouter() *gin.Engine {
	log := logger.NopLogger()
	cfg := &config.Config{
		Environment: "test",
		Database: config.DatabaseConfig{
			Postgres: config.PostgresConfig{Host: "localhost", DBName: "tundra"},
		},
	}
	db := database.NewManager(cfg.Database.Postgres, log)

	router := gin.New()
	router.Use(middleware.ErrorHandler(log, false, nil))
	router.Use(middleware.Recovery(log))
	NewHandler(cfg, db, log).RegisterRoutes(router)
	return router
}

func getEnvelope(t *testing.T, router *gin.Engine, path string) envelope.Response {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp envelope.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRootHealthSummary(t *testing.T) {
	router := newDiagRouter()

	resp := getEnvelope(t, router, "/")
	assert.Equal(t, envelope.CodeSuccess, resp.Code)
	assert.Equal(t, "Health check completed successfully", resp.Msg)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Tundra API is running!", data["message"])

	dbData := data["database"].(map[string]interface{})
	assert.Equal(t, false, dbData["connected"])
	assert.Equal(t, "disconnected", dbData["status"])
	assert.Equal(t, "localhost", dbData["host"])
}

func TestStatusEndpoint(t *testing.T) {
	router := newDiagRouter()

	resp := getEnvelope(t, router, "/api/status")
	assert.Equal(t, envelope.CodeSuccess, resp.Code)
	assert.Equal(t, "API status retrieved successfully", resp.Msg)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "test", data["environment"])
	assert.Contains(t, data, "uptime_seconds")
}

func TestInfoEndpoint(t *testing.T) {
	router := newDiagRouter()

	resp := getEnvelope(t, router, "/api/info")
	assert.Equal(t, envelope.CodeSuccess, resp.Code)
	assert.Equal(t, "API information retrieved successfully", resp.Msg)
}

func TestEchoEndpoint(t *testing.T) {
	router := newDiagRouter()

	body := map[string]interface{}{"hello": "world"}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/echo", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp envelope.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, envelope.CodeSuccess, resp.Code)
	assert.Equal(t, "Echo request processed successfully", resp.Msg)

	data := resp.Data.(map[string]interface{})
	echo := data["echo"].(map[string]interface{})
	assert.Equal(t, "world", echo["hello"])
}

func TestEchoRejectsInvalidJSON(t *testing.T) {
	router := newDiagRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/echo", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp envelope.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, envelope.CodeValidationError, resp.Code)
}
