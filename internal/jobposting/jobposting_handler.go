package jobposting

import (
	"errors"
	"net/http"
	"time"

	"github.com/helderdene/hris-sub010/internal/shared/apperror"
	"github.com/helderdene/hris-sub010/internal/shared/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errPostingNotFound = apperror.New(apperror.CodeNotFound, "job posting not found", http.StatusNotFound)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

type PostingResponse struct {
	ID            string  `json:"id"`
	CompanyID     string  `json:"company_id"`
	RequisitionID string  `json:"requisition_id"`
	DepartmentID  *string `json:"department_id,omitempty"`
	Title         string  `json:"title"`
	Headcount     int     `json:"headcount"`
	Description   string  `json:"description,omitempty"`
	Status        string  `json:"status"`
	PostedAt      string  `json:"posted_at"`
}

func mapToResponse(p JobPosting) PostingResponse {
	resp := PostingResponse{
		ID:            p.ID.String(),
		CompanyID:     p.CompanyID.String(),
		RequisitionID: p.RequisitionID.String(),
		Title:         p.Title,
		Headcount:     p.Headcount,
		Description:   p.Description,
		Status:        p.Status,
		PostedAt:      p.PostedAt.Format(time.RFC3339),
	}
	if p.DepartmentID != nil {
		id := p.DepartmentID.String()
		resp.DepartmentID = &id
	}
	return resp
}

func (h *Handler) GetAll(c *gin.Context) {
	rows, err := h.repo.FindAllByCompany(c.Request.Context(), c.GetString("company_id"))
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}
	out := make([]PostingResponse, len(rows))
	for i, p := range rows {
		out[i] = mapToResponse(p)
	}
	response.Success(c, http.StatusOK, out, nil)
}

func (h *Handler) GetById(c *gin.Context) {
	p, err := h.repo.FindByIDAndCompany(c.Request.Context(), c.GetString("company_id"), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = errPostingNotFound
		}
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}
	response.Success(c, http.StatusOK, mapToResponse(*p), nil)
}
