package ledger

import (
	"context"
	"time"

	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AccrualSummary struct {
	BenefitTypes     int
	EmployeesAccrued int
	Skipped          int
}

// RunMonthlyAccrual grants one month's worth of each MONTHLY benefit to every
// eligible active employee. A second run in the same calendar month is a no-op
// for rows already stamped.
func (s *service) RunMonthlyAccrual(ctx context.Context, companyID string, now time.Time) (AccrualSummary, error) {
	summary := AccrualSummary{}

	types, err := s.benefits.FindMonthlyAccrualByCompany(ctx, companyID)
	if err != nil {
		return summary, err
	}
	if len(types) == 0 {
		return summary, nil
	}
	summary.BenefitTypes = len(types)

	employees, err := s.employees.FindAllActiveByCompany(ctx, companyID)
	if err != nil {
		return summary, err
	}

	year := now.Year()
	for i := range types {
		bt := &types[i]
		rate := bt.EffectiveMonthlyRate()
		for j := range employees {
			emp := &employees[j]
			if !eligible(bt, emp, now) {
				summary.Skipped++
				continue
			}

			accrued, err := s.accrueOne(ctx, emp, bt, year, now, rate)
			if err != nil {
				s.logger.Error("monthly accrual failed for employee",
					zap.String("employee_id", emp.ID.String()),
					zap.String("benefit_type_id", bt.ID.String()),
					zap.Error(err),
				)
				return summary, err
			}
			if accrued {
				summary.EmployeesAccrued++
			} else {
				summary.Skipped++
			}
		}
	}

	s.logger.Info("monthly accrual finished",
		zap.String("company_id", companyID),
		zap.Int("benefit_types", summary.BenefitTypes),
		zap.Int("accrued", summary.EmployeesAccrued),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (s *service) accrueOne(ctx context.Context, emp *employee.Employee, bt *benefit.BenefitType, year int, now time.Time, rate decimal.Decimal) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	entry, err := s.EnsureEntryTx(ctx, tx, emp, bt, year)
	if err != nil {
		return false, err
	}

	if entry.LastAccrualAt != nil &&
		entry.LastAccrualAt.Year() == now.Year() &&
		entry.LastAccrualAt.Month() == now.Month() {
		return false, nil
	}

	stamp := now.UTC()
	entry.Earned = entry.Earned.Add(rate)
	entry.LastAccrualAt = &stamp

	qtx := s.repo.WithTx(tx)
	if err := qtx.UpdateAmounts(ctx, entry); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func eligible(bt *benefit.BenefitType, emp *employee.Employee, now time.Time) bool {
	if !emp.IsActive() {
		return false
	}
	if bt.EligibleEmploymentType != "" && bt.EligibleEmploymentType != emp.EmploymentType {
		return false
	}
	return tenureMonths(emp.HireDate, now) >= bt.MinTenureMonths
}

func tenureMonths(hireDate, now time.Time) int {
	if hireDate.IsZero() || hireDate.After(now) {
		return 0
	}
	months := (now.Year()-hireDate.Year())*12 + int(now.Month()) - int(hireDate.Month())
	if now.Day() < hireDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// initialEarned is the entitlement granted when a ledger entry is first
// created for a year.
//
//   - ANNUAL grants the full entitlement up front, pro-rated by remaining
//     months (inclusive of the hire month) for employees hired that year.
//   - MONTHLY starts at zero and grows through RunMonthlyAccrual.
//   - TENURE_BASED grants the annual entitlement plus one day per completed
//     five years of service, capped at five extra days.
func initialEarned(bt *benefit.BenefitType, emp *employee.Employee, year int) decimal.Decimal {
	switch bt.AccrualMethod {
	case benefit.AccrualMonthly:
		return decimal.Zero
	case benefit.AccrualAnnual:
		if emp.HireDate.Year() == year {
			remaining := 13 - int(emp.HireDate.Month())
			return bt.DefaultAnnualEntitlement.
				Mul(decimal.NewFromInt(int64(remaining))).
				DivRound(decimal.NewFromInt(12), 2)
		}
		return bt.DefaultAnnualEntitlement
	case benefit.AccrualTenureBased:
		asOf := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		if emp.HireDate.Year() == year {
			asOf = emp.HireDate
		}
		bonus := tenureMonths(emp.HireDate, asOf) / 60
		if bonus > 5 {
			bonus = 5
		}
		return bt.DefaultAnnualEntitlement.Add(decimal.NewFromInt(int64(bonus)))
	default:
		return bt.DefaultAnnualEntitlement
	}
}

// EnsureEntry is the standalone variant used outside an existing workflow
// transaction, e.g. when a balance is first asked for over HTTP.
func (s *service) ensureEntry(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*LedgerEntry, error) {
	emp, err := s.employees.FindByIDAndCompany(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	bt, err := s.benefits.FindByIDAndCompany(ctx, companyID, benefitTypeID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	entry, err := s.EnsureEntryTx(ctx, tx, emp, bt, year)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}
