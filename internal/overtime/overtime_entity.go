package overtime

import (
	"time"

	"github.com/helderdene/hris-sub010/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Overtime is a request for extra hours on a single date, drawn against an
// overtime-bank benefit type. TimeRecordID is stamped when final approval
// cross-links the matching daily time record.
type Overtime struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmployeeID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	BenefitTypeID uuid.UUID       `gorm:"type:uuid;not null"`
	Date          time.Time       `gorm:"type:date;not null"`
	Hours         decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	Reason        string          `gorm:"type:text"`

	TimeRecordID *uuid.UUID `gorm:"type:uuid"`

	workflow.State `gorm:"embedded"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Overtime) TableName() string {
	return "overtime_requests"
}
