package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tundra/internal/logger"
	"tundra/pkg/envelope"
	apperrors "tundra/pkg/errors"
	"tundra/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRepository struct {
	users  map[int64]*User
	nextID int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: make(map[int64]*User), nextID: 1}
}

func (r *fakeRepository) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeRepository) Create(ctx context.Context, name, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return nil, apperrors.ErrUserAlreadyExists
		}
	}
	u := &User{ID: r.nextID, Name: name, Email: email, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.users[u.ID] = u
	r.nextID++
	copied := *u
	return &copied, nil
}

func (r *fakeRepository) Update(ctx context.Context, id int64, name, email string) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	u.Name = name
	u.Email = email
	u.UpdatedAt = time.Now()
	copied := *u
	return &copied, nil
}

func (r *fakeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

func newUserTestRouter(repo Repository) *gin.Engine {
	log := logger.NopLogger()
	router := gin.New()
	router.Use(middleware.ErrorHandler(log, false, nil))
	router.Use(middleware.Recovery(log))
	NewHandler(NewService(repo, log), log).RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) envelope.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp envelope.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateUserSuccess(t *testing.T) {
	router := newUserTestRouter(newFakeRepository())

	resp := doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Name: "Ada", Email: "ada@example.com"})
	assert.Equal(t, envelope.CodeCreated, resp.Code)
	assert.Equal(t, "User created successfully", resp.Msg)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Ada", data["name"])
	assert.Equal(t, "ada@example.com", data["email"])
}

func TestCreateUserValidation(t *testing.T) {
	router := newUserTestRouter(newFakeRepository())

	tests := []struct {
		name     string
		req      CreateUserRequest
		wantCode int
		wantMsg  string
	}{
		{
			name:     "missing name",
			req:      CreateUserRequest{Email: "a@b.co"},
			wantCode: envelope.CodeValidationError,
			wantMsg:  "name is required",
		},
		{
			name:     "missing email",
			req:      CreateUserRequest{Name: "Ada"},
			wantCode: envelope.CodeValidationError,
			wantMsg:  "email is required",
		},
		{
			name:     "bad email format",
			req:      CreateUserRequest{Name: "Ada", Email: "not-an-email"},
			wantCode: envelope.CodeInvalidEmailFormat,
			wantMsg:  "Invalid email format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, "/api/users", tt.req)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMsg, resp.Msg)
		})
	}
}

func TestCreateDuplicateUser(t *testing.T) {
	router := newUserTestRouter(newFakeRepository())

	first := doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Name: "Ada", Email: "ada@example.com"})
	require.Equal(t, envelope.CodeCreated, first.Code)

	second := doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Name: "Ada2", Email: "ada@example.com"})
	assert.Equal(t, envelope.CodeUserAlreadyExists, second.Code)
	assert.Equal(t, "User already exists", second.Msg)
}

func TestGetUserNotFound(t *testing.T) {
	router := newUserTestRouter(newFakeRepository())

	resp := doJSON(t, router, http.MethodGet, "/api/users/99", nil)
	assert.Equal(t, envelope.CodeUserNotFound, resp.Code)
	assert.Equal(t, "User not found", resp.Msg)
}

func TestGetUserBadID(t *testing.T) {
	router := newUserTestRouter(newFakeRepository())

	resp := doJSON(t, router, http.MethodGet, "/api/users/abc", nil)
	assert.Equal(t, envelope.CodeValidationError, resp.Code)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	router := newUserTestRouter(newFakeRepository())

	created := doJSON(t, router, http.MethodPost, "/api/users", CreateUserRequest{Name: "Ada", Email: "ada@example.com"})
	require.Equal(t, envelope.CodeCreated, created.Code)

	updated := doJSON(t, router, http.MethodPut, "/api/users/1", UpdateUserRequest{Name: "Ada L", Email: "ada@example.com"})
	assert.Equal(t, envelope.CodeSuccess, updated.Code)
	assert.Equal(t, "User updated successfully", updated.Msg)
	assert.Equal(t, "Ada L", updated.Data.(map[string]interface{})["name"])

	deleted := doJSON(t, router, http.MethodDelete, "/api/users/1", nil)
	assert.Equal(t, envelope.CodeSuccess, deleted.Code)
	assert.Equal(t, "User deleted successfully", deleted.Msg)

	gone := doJSON(t, router, http.MethodDelete, "/api/users/1", nil)
	assert.Equal(t, envelope.CodeUserNotFound, gone.Code)
}

func TestListUsers(t *testing.T) {
	router := newUserTestRouter(newFakeRepository())

	resp := doJSON(t, router, http.MethodGet, "/api/users", nil)
	assert.Equal(t, envelope.CodeSuccess, resp.Code)
	assert.Equal(t, "Users retrieved successfully", resp.Msg)
	assert.Empty(t, resp.Data)
}
