package requisition

import "time"

type CreateRequisitionRequest struct {
	PositionTitle string  `json:"position_title" binding:"required,max=150"`
	DepartmentID  *string `json:"department_id" binding:"omitempty,uuid"`
	Headcount     int     `json:"headcount" binding:"required"`
	Justification string  `json:"justification"`
}

type DecisionRequest struct {
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type RequisitionResponse struct {
	ID            string  `json:"id"`
	CompanyID     string  `json:"company_id"`
	EmployeeID    string  `json:"employee_id"`
	DepartmentID  *string `json:"department_id,omitempty"`
	PositionTitle string  `json:"position_title"`
	Headcount     int     `json:"headcount"`
	Justification string  `json:"justification"`

	JobPostingID *string `json:"job_posting_id,omitempty"`

	Status               string  `json:"status"`
	CurrentApprovalLevel int     `json:"current_approval_level"`
	TotalApprovalLevels  int     `json:"total_approval_levels"`
	SubmittedAt          *string `json:"submitted_at,omitempty"`
	ApprovedAt           *string `json:"approved_at,omitempty"`
	RejectedAt           *string `json:"rejected_at,omitempty"`
	CancelledAt          *string `json:"cancelled_at,omitempty"`
	CancelReason         *string `json:"cancel_reason,omitempty"`
}

func mapToResponse(rq Requisition) RequisitionResponse {
	resp := RequisitionResponse{
		ID:                   rq.ID.String(),
		CompanyID:            rq.CompanyID.String(),
		EmployeeID:           rq.EmployeeID.String(),
		PositionTitle:        rq.PositionTitle,
		Headcount:            rq.Headcount,
		Justification:        rq.Justification,
		Status:               rq.Status,
		CurrentApprovalLevel: rq.CurrentApprovalLevel,
		TotalApprovalLevels:  rq.TotalApprovalLevels,
		CancelReason:         rq.CancelReason,
	}
	if rq.DepartmentID != nil {
		id := rq.DepartmentID.String()
		resp.DepartmentID = &id
	}
	if rq.JobPostingID != nil {
		id := rq.JobPostingID.String()
		resp.JobPostingID = &id
	}
	resp.SubmittedAt = formatTimestamp(rq.SubmittedAt)
	resp.ApprovedAt = formatTimestamp(rq.ApprovedAt)
	resp.RejectedAt = formatTimestamp(rq.RejectedAt)
	resp.CancelledAt = formatTimestamp(rq.CancelledAt)
	return resp
}

func mapToListResponse(rows []Requisition) []RequisitionResponse {
	resp := make([]RequisitionResponse, len(rows))
	for i, rq := range rows {
		resp[i] = mapToResponse(rq)
	}
	return resp
}

func formatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
