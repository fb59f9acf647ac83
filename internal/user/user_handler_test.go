package user_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/helderdene/hris-sub010/internal/user"
	usererrors "github.com/helderdene/hris-sub010/internal/user/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeUserService struct {
	getAllFn         func(ctx context.Context, companyID string) ([]user.UserResponse, error)
	getByIDFn        func(ctx context.Context, companyID, id string) (user.UserResponse, error)
	createFn         func(ctx context.Context, companyID string, req user.CreateUserRequest) (user.UserResponse, error)
	assignRoleFn     func(ctx context.Context, companyID, userID, roleName string) error
	toggleStatusFn   func(ctx context.Context, companyID, id string, isActive bool) error
	changePasswordFn func(ctx context.Context, companyID, userID, currentPassword, newPassword string) error
	resetPasswordFn  func(ctx context.Context, companyID, userID, newPassword string) error
}

func (f *fakeUserService) GetAll(ctx context.Context, companyID string) ([]user.UserResponse, error) {
	return f.getAllFn(ctx, companyID)
}

func (f *fakeUserService) GetByID(ctx context.Context, companyID, id string) (user.UserResponse, error) {
	return f.getByIDFn(ctx, companyID, id)
}

func (f *fakeUserService) Create(ctx context.Context, companyID string, req user.CreateUserRequest) (user.UserResponse, error) {
	return f.createFn(ctx, companyID, req)
}

func (f *fakeUserService) AssignRole(ctx context.Context, companyID, userID, roleName string) error {
	return f.assignRoleFn(ctx, companyID, userID, roleName)
}

func (f *fakeUserService) ToggleStatus(ctx context.Context, companyID, id string, isActive bool) error {
	return f.toggleStatusFn(ctx, companyID, id, isActive)
}

func (f *fakeUserService) ChangePassword(ctx context.Context, companyID, userID, currentPassword, newPassword string) error {
	return f.changePasswordFn(ctx, companyID, userID, currentPassword, newPassword)
}

func (f *fakeUserService) ResetPassword(ctx context.Context, companyID, userID, newPassword string) error {
	return f.resetPasswordFn(ctx, companyID, userID, newPassword)
}

func newUserRouter(svc user.Service) (*gin.Engine, *user.Handler) {
	gin.SetMode(gin.TestMode)
	handler := user.NewHandler(svc)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("company_id", "comp-1")
		c.Next()
	})
	router.GET("/users", handler.GetAll)
	router.GET("/users/:id", handler.GetById)
	router.POST("/users", handler.Create)
	router.POST("/users/:id/roles", handler.AssignRole)
	router.PATCH("/users/:id/status", handler.ToggleStatus)
	return router, handler
}

func TestHandler_GetAll(t *testing.T) {
	svc := &fakeUserService{
		getAllFn: func(ctx context.Context, companyID string) ([]user.UserResponse, error) {
			assert.Equal(t, "comp-1", companyID)
			return []user.UserResponse{
				{ID: "u-1", Email: "bob@example.com", FullName: "Bob"},
				{ID: "u-2", Email: "alice@example.com", FullName: "Alice"},
				{ID: "u-3", Email: "carol@example.com", FullName: "Carol"},
			}, nil
		},
	}
	router, _ := newUserRouter(svc)

	t.Run("sorted and paginated", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users?page=1&page_size=2", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var envelope struct {
			Ok   bool                `json:"ok"`
			Data []user.UserResponse `json:"data"`
			Meta map[string]any      `json:"meta"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.Len(t, envelope.Data, 2)
		assert.Equal(t, "alice@example.com", envelope.Data[0].Email)
		assert.EqualValues(t, 3, envelope.Meta["total"])
	})

	t.Run("email filter", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users?q=carol", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "carol@example.com")
		assert.NotContains(t, w.Body.String(), "alice@example.com")
	})
}

func TestHandler_Create(t *testing.T) {
	employeeID := uuid.New().String()

	svc := &fakeUserService{
		createFn: func(ctx context.Context, companyID string, req user.CreateUserRequest) (user.UserResponse, error) {
			return user.UserResponse{ID: "u-new", Email: req.Email, EmployeeID: req.EmployeeID}, nil
		},
	}
	router, _ := newUserRouter(svc)

	t.Run("success", func(t *testing.T) {
		body := `{"employee_id":"` + employeeID + `","email":"new@example.com","password":"password123"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "u-new")
	})

	t.Run("negative short password rejected", func(t *testing.T) {
		body := `{"employee_id":"` + employeeID + `","email":"new@example.com","password":"short"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})
}

func TestHandler_AssignRole(t *testing.T) {
	var gotRole string
	svc := &fakeUserService{
		assignRoleFn: func(ctx context.Context, companyID, userID, roleName string) error {
			gotRole = roleName
			return nil
		},
	}
	router, _ := newUserRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/u-1/roles", strings.NewReader(`{"role_name":"MANAGER"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MANAGER", gotRole)
}

func TestHandler_ToggleStatus(t *testing.T) {
	svc := &fakeUserService{
		toggleStatusFn: func(ctx context.Context, companyID, id string, isActive bool) error {
			if id == "missing" {
				return usererrors.ErrUserNotFound
			}
			assert.False(t, isActive)
			return nil
		},
	}
	router, _ := newUserRouter(svc)

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/users/u-1/status", strings.NewReader(`{"is_active":false}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("negative unknown user", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/users/missing/status", strings.NewReader(`{"is_active":false}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "NOT_FOUND")
	})

	t.Run("negative missing is_active field", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/users/u-1/status", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
