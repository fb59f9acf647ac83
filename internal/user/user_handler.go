package user

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/helderdene/hris-sub010/internal/shared/apperror"
	"github.com/helderdene/hris-sub010/internal/shared/contextutil"
	"github.com/helderdene/hris-sub010/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc    Service
	logger *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("user.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("user.handler")
	}
	return &Handler{svc: service, logger: l}
}

func writeError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) GetAll(c *gin.Context) {
	ctx := c.Request.Context()
	companyID := c.GetString("company_id")

	resp, err := h.svc.GetAll(ctx, companyID)
	if err != nil {
		writeError(c, err)
		return
	}

	q := strings.TrimSpace(strings.ToLower(c.Query("q")))
	if q != "" {
		filtered := make([]UserResponse, 0, len(resp))
		for _, u := range resp {
			if strings.Contains(strings.ToLower(u.Email), q) ||
				strings.Contains(strings.ToLower(u.FullName), q) {
				filtered = append(filtered, u)
			}
		}
		resp = filtered
	}

	sortBy := strings.ToLower(strings.TrimSpace(c.DefaultQuery("sort_by", "email")))
	sortDir := strings.ToLower(strings.TrimSpace(c.DefaultQuery("sort_dir", "asc")))
	if sortDir != "desc" {
		sortDir = "asc"
	}

	sort.Slice(resp, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "id":
			less = resp[i].ID < resp[j].ID
		case "full_name":
			less = strings.ToLower(resp[i].FullName) < strings.ToLower(resp[j].FullName)
		default:
			less = strings.ToLower(resp[i].Email) < strings.ToLower(resp[j].Email)
		}
		if sortDir == "desc" {
			return !less
		}
		return less
	})

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if pageSize < 1 {
		pageSize = 10
	}

	total := int64(len(resp))
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(resp) {
		start = len(resp)
	}
	if end > len(resp) {
		end = len(resp)
	}

	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, resp[start:end], &meta)
}

func (h *Handler) GetById(c *gin.Context) {
	companyID := c.GetString("company_id")
	id := c.Param("id")

	ctx := contextutil.WithLogger(c.Request.Context(), h.logger)

	res, err := h.svc.GetByID(ctx, companyID, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, res, nil)
}

func (h *Handler) Create(c *gin.Context) {
	companyID := c.GetString("company_id")

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", err.Error())
		return
	}

	ctx := contextutil.WithLogger(c.Request.Context(), h.logger)

	res, err := h.svc.Create(ctx, companyID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, res, nil)
}

func (h *Handler) AssignRole(c *gin.Context) {
	companyID := c.GetString("company_id")
	id := c.Param("id")

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", err.Error())
		return
	}

	ctx := contextutil.WithLogger(c.Request.Context(), h.logger)

	if err := h.svc.AssignRole(ctx, companyID, id, req.RoleName); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assigned": true}, nil)
}

func (h *Handler) ToggleStatus(c *gin.Context) {
	companyID := c.GetString("company_id")
	id := c.Param("id")

	var body UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", err.Error())
		return
	}

	ctx := contextutil.WithLogger(c.Request.Context(), h.logger)

	if err := h.svc.ToggleStatus(ctx, companyID, id, *body.IsActive); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"is_active": *body.IsActive}, nil)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	companyID := c.GetString("company_id")
	id := c.Param("id")

	var body ChangePasswordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", err.Error())
		return
	}

	ctx := contextutil.WithLogger(c.Request.Context(), h.logger)

	if err := h.svc.ChangePassword(ctx, companyID, id, body.CurrentPassword, body.NewPassword); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"changed": true}, nil)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	companyID := c.GetString("company_id")
	id := c.Param("id")

	var body ResetPasswordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", err.Error())
		return
	}

	ctx := contextutil.WithLogger(c.Request.Context(), h.logger)

	if err := h.svc.ResetPassword(ctx, companyID, id, body.NewPassword); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reset": true}, nil)
}
