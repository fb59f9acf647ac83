package overtime

import "time"

type CreateOvertimeRequest struct {
	BenefitTypeID string `json:"benefit_type_id" binding:"required,uuid"`
	Date          string `json:"date" binding:"required"`
	Hours         string `json:"hours" binding:"required"`
	Reason        string `json:"reason"`
}

type DecisionRequest struct {
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type OvertimeResponse struct {
	ID            string `json:"id"`
	CompanyID     string `json:"company_id"`
	EmployeeID    string `json:"employee_id"`
	BenefitTypeID string `json:"benefit_type_id"`
	Date          string `json:"date"`
	Hours         string `json:"hours"`
	Reason        string `json:"reason"`

	TimeRecordID *string `json:"time_record_id,omitempty"`

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

func mapToResponse(o Overtime) OvertimeResponse {
	resp := OvertimeResponse{
		ID:                   o.ID.String(),
		CompanyID:            o.CompanyID.String(),
		EmployeeID:           o.EmployeeID.String(),
		BenefitTypeID:        o.BenefitTypeID.String(),
		Date:                 o.Date.Format("2006-01-02"),
		Hours:                o.Hours.StringFixed(2),
		Reason:               o.Reason,
		Status:               o.Status,
		CurrentApprovalLevel: o.CurrentApprovalLevel,
		TotalApprovalLevels:  o.TotalApprovalLevels,
		CancelReason:         o.CancelReason,
	}
	if o.TimeRecordID != nil {
		id := o.TimeRecordID.String()
		resp.TimeRecordID = &id
	}
	if o.LedgerEntryID != nil {
		id := o.LedgerEntryID.String()
		resp.LedgerEntryID = &id
	}
	resp.SubmittedAt = formatTimestamp(o.SubmittedAt)
	resp.ApprovedAt = formatTimestamp(o.ApprovedAt)
	resp.RejectedAt = formatTimestamp(o.RejectedAt)
	resp.CancelledAt = formatTimestamp(o.CancelledAt)
	return resp
}

func mapToListResponse(rows []Overtime) []OvertimeResponse {
	resp := make([]OvertimeResponse, len(rows))
	for i, o := range rows {
		resp[i] = mapToResponse(o)
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
