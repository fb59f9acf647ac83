package notify

import (
	"net/http"
	"strconv"

	"github.com/helderdene/hris-sub010/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// Handler serves the recipient-scoped notification inbox. Entries are always
// filtered by the authenticated employee, so there is no RBAC resource here.
type Handler struct {
	inbox InboxRepository
}

func NewHandler(inbox InboxRepository) *Handler {
	return &Handler{inbox: inbox}
}

type inboxEntryResponse struct {
	ID          string  `json:"id"`
	EventType   string  `json:"event_type"`
	RequestKind string  `json:"request_kind"`
	RequestID   string  `json:"request_id"`
	Message     string  `json:"message"`
	ReadAt      *string `json:"read_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func (h *Handler) List(c *gin.Context) {
	companyID := c.GetString("company_id")
	recipientID := c.GetString("employee_id")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	entries, err := h.inbox.ListByRecipient(c.Request.Context(), companyID, recipientID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}

	resp := make([]inboxEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = inboxEntryResponse{
			ID:          e.ID,
			EventType:   e.EventType,
			RequestKind: e.RequestKind,
			RequestID:   e.RequestID,
			Message:     e.Message,
			CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if e.ReadAt != nil {
			readAt := e.ReadAt.Format("2006-01-02 15:04:05")
			resp[i].ReadAt = &readAt
		}
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) MarkRead(c *gin.Context) {
	companyID := c.GetString("company_id")
	recipientID := c.GetString("employee_id")

	if err := h.inbox.MarkRead(c.Request.Context(), companyID, recipientID, c.Param("id")); err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"read": true}, nil)
}
