package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/helderdene/hris-sub010/internal/shared/apperror"
	"github.com/helderdene/hris-sub010/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("ledger.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("ledger request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// GetBalance answers GET /balances/:employeeId/:benefitTypeId?year=YYYY.
// Year defaults to the current calendar year.
func (h *Handler) GetBalance(c *gin.Context) {
	companyID := c.GetString("company_id")
	employeeID := c.Param("employeeId")
	benefitTypeID := c.Param("benefitTypeId")

	year := time.Now().Year()
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2000 || parsed > 2200 {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "invalid year", nil)
			return
		}
		year = parsed
	}

	resp, err := h.service.GetBalance(c.Request.Context(), companyID, employeeID, benefitTypeID, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) CreateAdjustment(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := c.GetString("employee_id")
	if actorID == "" {
		actorID = c.GetString("user_id_validated")
	}

	var req AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create adjustment validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", err.Error())
		return
	}

	resp, err := h.service.RecordAdjustment(c.Request.Context(), companyID, actorID, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) ListAdjustments(c *gin.Context) {
	companyID := c.GetString("company_id")
	entryID := c.Param("entryId")

	resp, err := h.service.ListAdjustments(c.Request.Context(), companyID, entryID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
