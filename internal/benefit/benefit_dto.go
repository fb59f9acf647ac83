package benefit

type BenefitTypeResponse struct {
	ID                       string  `json:"id"`
	Name                     string  `json:"name"`
	AccrualMethod            string  `json:"accrual_method"`
	DefaultAnnualEntitlement string  `json:"default_annual_entitlement"`
	MonthlyAccrualRate       *string `json:"monthly_accrual_rate,omitempty"`
	CarryOverAllowed         bool    `json:"carry_over_allowed"`
	MaxCarryOverDays         *string `json:"max_carry_over_days,omitempty"`
	CarryOverExpiryMonths    *int    `json:"carry_over_expiry_months,omitempty"`
}

func mapToResponse(bt BenefitType) BenefitTypeResponse {
	resp := BenefitTypeResponse{
		ID:                       bt.ID.String(),
		Name:                     bt.Name,
		AccrualMethod:            bt.AccrualMethod,
		DefaultAnnualEntitlement: bt.DefaultAnnualEntitlement.StringFixed(2),
		CarryOverAllowed:         bt.CarryOverAllowed,
		CarryOverExpiryMonths:    bt.CarryOverExpiryMonths,
	}
	if bt.MonthlyAccrualRate != nil {
		v := bt.MonthlyAccrualRate.StringFixed(2)
		resp.MonthlyAccrualRate = &v
	}
	if bt.MaxCarryOverDays != nil {
		v := bt.MaxCarryOverDays.StringFixed(2)
		resp.MaxCarryOverDays = &v
	}
	return resp
}
