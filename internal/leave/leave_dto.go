package leave

import "time"

type CreateLeaveRequest struct {
	EmployeeID    string `json:"employee_id" binding:"required,uuid"`
	BenefitTypeID string `json:"benefit_type_id" binding:"required,uuid"`
	StartDate     string `json:"start_date" binding:"required"`
	EndDate       string `json:"end_date" binding:"required"`
	HalfDay       bool   `json:"half_day"`
	Reason        string `json:"reason"`
}

type DecisionRequest struct {
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type LeaveResponse struct {
	ID            string `json:"id"`
	CompanyID     string `json:"company_id"`
	EmployeeID    string `json:"employee_id"`
	BenefitTypeID string `json:"benefit_type_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	HalfDay       bool   `json:"half_day"`
	TotalDays     string `json:"total_days"`
	Reason        string `json:"reason"`

	Status               string  `json:"status"`
	CurrentApprovalLevel int     `json:"current_approval_level"`
	TotalApprovalLevels  int     `json:"total_approval_levels"`
	LedgerEntryID        *string `json:"ledger_entry_id,omitempty"`
	SubmittedAt          *string `json:"submitted_at,omitempty"`
	ApprovedAt           *string `json:"approved_at,omitempty"`
	RejectedAt           *string `json:"rejected_at,omitempty"`
	CancelledAt          *string `json:"cancelled_at,omitempty"`
	CancelReason         *string `json:"cancel_reason,omitempty"`
}

func mapToResponse(l Leave) LeaveResponse {
	resp := LeaveResponse{
		ID:                   l.ID.String(),
		CompanyID:            l.CompanyID.String(),
		EmployeeID:           l.EmployeeID.String(),
		BenefitTypeID:        l.BenefitTypeID.String(),
		StartDate:            l.StartDate.Format("2006-01-02"),
		EndDate:              l.EndDate.Format("2006-01-02"),
		HalfDay:              l.HalfDay,
		TotalDays:            l.TotalDays.StringFixed(2),
		Reason:               l.Reason,
		Status:               l.Status,
		CurrentApprovalLevel: l.CurrentApprovalLevel,
		TotalApprovalLevels:  l.TotalApprovalLevels,
		CancelReason:         l.CancelReason,
	}
	if l.LedgerEntryID != nil {
		id := l.LedgerEntryID.String()
		resp.LedgerEntryID = &id
	}
	resp.SubmittedAt = formatTimestamp(l.SubmittedAt)
	resp.ApprovedAt = formatTimestamp(l.ApprovedAt)
	resp.RejectedAt = formatTimestamp(l.RejectedAt)
	resp.CancelledAt = formatTimestamp(l.CancelledAt)
	return resp
}

func mapToListResponse(leaves []Leave) []LeaveResponse {
	resp := make([]LeaveResponse, len(leaves))
	for i, l := range leaves {
		resp[i] = mapToResponse(l)
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
