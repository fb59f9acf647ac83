package benefit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	AccrualNone        = "NONE"
	AccrualAnnual      = "ANNUAL"
	AccrualMonthly     = "MONTHLY"
	AccrualTenureBased = "TENURE_BASED"
)

// BenefitType is immutable reference data: it is created and edited through
// configuration, never by the request workflow.
type BenefitType struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"type:varchar(100);not null"`
	AccrualMethod string    `gorm:"type:varchar(20);not null;default:'ANNUAL'"`

	DefaultAnnualEntitlement decimal.Decimal  `gorm:"type:numeric(6,2);not null;default:0"`
	MonthlyAccrualRate       *decimal.Decimal `gorm:"type:numeric(6,2)"`

	CarryOverAllowed      bool             `gorm:"not null;default:false"`
	MaxCarryOverDays      *decimal.Decimal `gorm:"type:numeric(6,2)"`
	CarryOverExpiryMonths *int             `gorm:"type:int"`

	// Eligibility predicate; empty values mean "any".
	EligibleEmploymentType string `gorm:"type:varchar(30)"`
	MinTenureMonths        int    `gorm:"type:int;not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (BenefitType) TableName() string {
	return "benefit_types"
}

// EffectiveMonthlyRate is the explicit monthly rate when configured, otherwise
// a twelfth of the annual entitlement.
func (b *BenefitType) EffectiveMonthlyRate() decimal.Decimal {
	if b.MonthlyAccrualRate != nil && !b.MonthlyAccrualRate.IsZero() {
		return *b.MonthlyAccrualRate
	}
	return b.DefaultAnnualEntitlement.DivRound(decimal.NewFromInt(12), 2)
}
