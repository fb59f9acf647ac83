package ledger

import "time"

type AdjustmentRequest struct {
	LedgerEntryID string  `json:"ledger_entry_id" binding:"required,uuid"`
	Type          string  `json:"type" binding:"required,oneof=CREDIT DEBIT"`
	Days          string  `json:"days" binding:"required"`
	Reason        string  `json:"reason" binding:"required"`
	ReferenceID   *string `json:"reference_id" binding:"omitempty,uuid"`
}

type BalanceResponse struct {
	ID                  string  `json:"id"`
	CompanyID           string  `json:"company_id"`
	EmployeeID          string  `json:"employee_id"`
	BenefitTypeID       string  `json:"benefit_type_id"`
	Year                int     `json:"year"`
	BroughtForward      string  `json:"brought_forward"`
	Earned              string  `json:"earned"`
	Used                string  `json:"used"`
	Pending             string  `json:"pending"`
	Adjustments         string  `json:"adjustments"`
	Expired             string  `json:"expired"`
	Available           string  `json:"available"`
	CarryOverExpiryDate *string `json:"carry_over_expiry_date,omitempty"`
	CarryOverExpired    bool    `json:"carry_over_expired"`
	LastAccrualAt       *string `json:"last_accrual_at,omitempty"`
}

type AdjustmentResponse struct {
	ID              string  `json:"id"`
	LedgerEntryID   string  `json:"ledger_entry_id"`
	Type            string  `json:"type"`
	Days            string  `json:"days"`
	Reason          string  `json:"reason"`
	PreviousBalance string  `json:"previous_balance"`
	NewBalance      string  `json:"new_balance"`
	ActorEmployeeID string  `json:"actor_employee_id"`
	ReferenceID     *string `json:"reference_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func mapToBalanceResponse(e LedgerEntry) BalanceResponse {
	resp := BalanceResponse{
		ID:               e.ID.String(),
		CompanyID:        e.CompanyID.String(),
		EmployeeID:       e.EmployeeID.String(),
		BenefitTypeID:    e.BenefitTypeID.String(),
		Year:             e.Year,
		BroughtForward:   e.BroughtForward.StringFixed(2),
		Earned:           e.Earned.StringFixed(2),
		Used:             e.Used.StringFixed(2),
		Pending:          e.Pending.StringFixed(2),
		Adjustments:      e.Adjustments.StringFixed(2),
		Expired:          e.Expired.StringFixed(2),
		Available:        e.Available().StringFixed(2),
		CarryOverExpired: e.CarryOverExpired,
	}
	if e.CarryOverExpiryDate != nil {
		d := e.CarryOverExpiryDate.Format("2006-01-02")
		resp.CarryOverExpiryDate = &d
	}
	if e.LastAccrualAt != nil {
		t := e.LastAccrualAt.Format(time.RFC3339)
		resp.LastAccrualAt = &t
	}
	return resp
}

func mapToAdjustmentResponse(adj BalanceAdjustment) AdjustmentResponse {
	resp := AdjustmentResponse{
		ID:              adj.ID.String(),
		LedgerEntryID:   adj.LedgerEntryID.String(),
		Type:            adj.Type,
		Days:            adj.Days.StringFixed(2),
		Reason:          adj.Reason,
		PreviousBalance: adj.PreviousBalance.StringFixed(2),
		NewBalance:      adj.NewBalance.StringFixed(2),
		ActorEmployeeID: adj.ActorEmployeeID.String(),
		CreatedAt:       adj.CreatedAt.Format(time.RFC3339),
	}
	if adj.ReferenceID != nil {
		id := adj.ReferenceID.String()
		resp.ReferenceID = &id
	}
	return resp
}
