package requisition

import (
	"time"

	"github.com/helderdene/hris-sub010/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Requisition asks for headcount. It is the one request kind that never
// touches the balance ledger; final approval instead creates a job posting.
type Requisition struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	EmployeeID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	DepartmentID  *uuid.UUID `gorm:"type:uuid"`
	PositionTitle string     `gorm:"type:varchar(150);not null"`
	Headcount     int        `gorm:"not null;default:1"`
	Justification string     `gorm:"type:text"`

	JobPostingID *uuid.UUID `gorm:"type:uuid"`

	workflow.State `gorm:"embedded"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Requisition) TableName() string {
	return "requisitions"
}
