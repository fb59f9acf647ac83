package position

import (
	"errors"
	"net/http"

	"github.com/helderdene/hris-sub010/internal/shared/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler is a thin read-only surface over the directory-owned positions
// table; there is no service layer because there is no business logic here.
type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

type PositionResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DepartmentID string `json:"department_id"`
	JobLevel     string `json:"job_level"`
}

func mapPosition(p Position) PositionResponse {
	return PositionResponse{
		ID:           p.ID.String(),
		Name:         p.Name,
		DepartmentID: p.DepartmentID.String(),
		JobLevel:     p.JobLevel,
	}
}

func (h *Handler) GetAll(c *gin.Context) {
	positions, err := h.repo.FindAllByCompany(c.Request.Context(), c.GetString("company_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}

	resp := make([]PositionResponse, len(positions))
	for i, p := range positions {
		resp[i] = mapPosition(p)
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetById(c *gin.Context) {
	pos, err := h.repo.FindByIDAndCompany(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "position not found", nil)
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}
	response.Success(c, http.StatusOK, mapPosition(*pos), nil)
}
