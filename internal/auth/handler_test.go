package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tundra/internal/database"
	"tundra/internal/logger"
	"tundra/internal/token"
	"tundra/pkg/envelope"
	"tundra/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeRepository is an in-memory stand-in keyed by device_id.
type fakeRepository struct {
	users        map[string]*AppUser
	disconnected bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: make(map[string]*AppUser)}
}

func (r *fakeRepository) FindByDeviceID(ctx context.Context, deviceID string) (*AppUser, error) {
	if r.disconnected {
		return nil, database.ErrNotConnected
	}
	u, ok := r.users[deviceID]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeRepository) Create(ctx context.Context, req LoginRequest, ip string, now int64) (*AppUser, error) {
	if r.disconnected {
		return nil, database.ErrNotConnected
	}
	u := &AppUser{
		ID:            int64(len(r.users) + 1),
		UserID:        "user_" + req.DeviceID + "_" + strconv.FormatInt(now, 10),
		DeviceID:      req.DeviceID,
		AppID:         req.AppID,
		DeviceBrand:   req.DeviceBrand,
		DeviceModel:   req.DeviceModel,
		OS:            req.OS,
		OSVersion:     req.OSVersion,
		ClientVersion: req.ClientVersion,
		RegisterTime:  now,
		CreateTime:    now,
	}
	r.users[req.DeviceID] = u
	copied := *u
	return &copied, nil
}

func (r *fakeRepository) UpdateLoginInfo(ctx context.Context, userID string, req LoginRequest, ip string, now int64) error {
	if r.disconnected {
		return database.ErrNotConnected
	}
	for _, u := range r.users {
		if u.UserID == userID {
			u.LastActiveTime = &now
			u.ClientVersion = req.ClientVersion
			return nil
		}
	}
	return nil
}

func newAuthTestRouter(t *testing.T, repo Repository) (*gin.Engine, *token.Service) {
	t.Helper()
	log := logger.NopLogger()
	tokens, err := token.NewService("test-secret", "1h", log)
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler(log, false, nil))
	router.Use(middleware.Recovery(log))

	handler := NewHandler(NewService(repo, tokens, log), log)
	handler.RegisterRoutes(router, middleware.RequireAuth(tokens, log))
	return router, tokens
}

func validLoginBody() map[string]string {
	return map[string]string{
		"device_id":      "dev-42",
		"app_id":         "app-1",
		"device_brand":   "acme",
		"device_model":   "m1",
		"os":             "android",
		"os_version":     "14",
		"client_version": "1.2.3",
	}
}

func doLogin(t *testing.T, router *gin.Engine, body interface{}) (*httptest.ResponseRecorder, envelope.Response) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var resp envelope.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestLoginValidationFailure(t *testing.T) {
	router, _ := newAuthTestRouter(t, newFakeRepository())

	body := validLoginBody()
	delete(body, "device_id")

	w, resp := doLogin(t, router, body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, envelope.CodeValidationError, resp.Code)
	assert.Equal(t, "device_id is required", resp.Msg)
}

func TestLoginRegistersNewDevice(t *testing.T) {
	router, _ := newAuthTestRouter(t, newFakeRepository())

	w, resp := doLogin(t, router, validLoginBody())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, envelope.CodeSuccess, resp.Code)
	assert.Equal(t, "User registered and logged in successfully", resp.Msg)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, float64(3600), data["expires_in"])

	userData, ok := data["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "dev-42", userData["device_id"])
	assert.Contains(t, userData["user_id"], "user_dev-42_")
}

func TestLoginExistingDevice(t *testing.T) {
	repo := newFakeRepository()
	router, _ := newAuthTestRouter(t, repo)

	_, first := doLogin(t, router, validLoginBody())
	require.Equal(t, envelope.CodeSuccess, first.Code)

	_, second := doLogin(t, router, validLoginBody())
	assert.Equal(t, envelope.CodeSuccess, second.Code)
	assert.Equal(t, "Login successful", second.Msg)

	firstUser := first.Data.(map[string]interface{})["user"].(map[string]interface{})
	secondUser := second.Data.(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, firstUser["user_id"], secondUser["user_id"])
	assert.Len(t, repo.users, 1)
}

func TestLoginWhileDatabaseDisconnected(t *testing.T) {
	repo := newFakeRepository()
	repo.disconnected = true
	router, _ := newAuthTestRouter(t, repo)

	w, resp := doLogin(t, router, validLoginBody())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, envelope.CodeDatabaseConnection, resp.Code)
}

func TestCurrentUser(t *testing.T) {
	repo := newFakeRepository()
	router, _ := newAuthTestRouter(t, repo)

	_, login := doLogin(t, router, validLoginBody())
	data := login.Data.(map[string]interface{})
	signed := data["token"].(string)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	var resp envelope.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, envelope.CodeSuccess, resp.Code)
	assert.Equal(t, "User information retrieved successfully", resp.Msg)
}

func TestCurrentUserNotFound(t *testing.T) {
	repo := newFakeRepository()
	router, tokens := newAuthTestRouter(t, repo)

	signed, err := tokens.Generate("user_ghost_1", "ghost", "app-1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	var resp envelope.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, envelope.CodeUserNotFound, resp.Code)
	assert.Equal(t, "User not found", resp.Msg)
}

func TestCurrentUserTokenMismatch(t *testing.T) {
	repo := newFakeRepository()
	router, tokens := newAuthTestRouter(t, repo)

	_, login := doLogin(t, router, validLoginBody())
	require.Equal(t, envelope.CodeSuccess, login.Code)

	// token claims a different user_id for the same device
	signed, err := tokens.Generate("user_someone_else", "dev-42", "app-1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	var resp envelope.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, envelope.CodeInvalidToken, resp.Code)
	assert.Equal(t, "Invalid token", resp.Msg)
}

func TestCurrentUserWithoutToken(t *testing.T) {
	router, _ := newAuthTestRouter(t, newFakeRepository())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/user", nil))

	var resp envelope.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, envelope.CodeUnauthorized, resp.Code)
	assert.Equal(t, "Authorization token required", resp.Msg)
}
