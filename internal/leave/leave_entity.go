package leave

import (
	"time"

	"github.com/helderdene/hris-sub010/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Leave struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index:idx_leaves_company_status"`
	EmployeeID    uuid.UUID `gorm:"type:uuid;not null;index:idx_leaves_employee_dates"`
	BenefitTypeID uuid.UUID `gorm:"type:uuid;not null"`

	StartDate time.Time `gorm:"type:date;not null;index:idx_leaves_employee_dates"`
	EndDate   time.Time `gorm:"type:date;not null;index:idx_leaves_employee_dates"`
	HalfDay   bool      `gorm:"not null;default:false"`
	// TotalDays is fractional: a half-day request reserves 0.50.
	TotalDays decimal.Decimal `gorm:"type:numeric(6,2);not null;default:1"`
	Reason    string          `gorm:"type:text"`

	workflow.State `gorm:"embedded"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index:idx_leaves_deleted_at"`
}

func (Leave) TableName() string {
	return "leaves"
}

// ComputeTotalDays is calendar-day inclusive; half-day requests must start
// and end on the same date.
func ComputeTotalDays(startDate, endDate time.Time, halfDay bool) decimal.Decimal {
	if halfDay {
		return decimal.NewFromFloat(0.5)
	}
	days := int(endDate.Sub(startDate).Hours()/24) + 1
	return decimal.NewFromInt(int64(days))
}
