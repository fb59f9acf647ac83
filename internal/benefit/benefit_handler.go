package benefit

import (
	"net/http"

	"github.com/helderdene/hris-sub010/internal/shared/apperror"
	"github.com/helderdene/hris-sub010/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	repo   Repository
	logger *zap.Logger
}

func NewHandler(repo Repository, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("benefit.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("benefit.handler")
	}
	return &Handler{repo: repo, logger: l}
}

func (h *Handler) GetAll(c *gin.Context) {
	companyID := c.GetString("company_id")

	types, err := h.repo.FindAllByCompany(c.Request.Context(), companyID)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	resp := make([]BenefitTypeResponse, len(types))
	for i, bt := range types {
		resp[i] = mapToResponse(bt)
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetById(c *gin.Context) {
	companyID := c.GetString("company_id")
	id := c.Param("id")

	bt, err := h.repo.FindByIDAndCompany(c.Request.Context(), companyID, id)
	if err != nil {
		response.Error(c, http.StatusNotFound, apperror.CodeNotFound, "benefit type not found", nil)
		return
	}
	response.Success(c, http.StatusOK, mapToResponse(*bt), nil)
}
