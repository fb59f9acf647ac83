package employee

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive     = "ACTIVE"
	StatusInactive   = "INACTIVE"
	StatusTerminated = "TERMINATED"
)

// Employee is the read model over the directory owned by the core HR suite.
// This subsystem only ever reads it: supervisor links drive approval chain
// resolution and hire dates drive entitlement pro-rating.
type Employee struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	DepartmentID     *uuid.UUID `gorm:"type:uuid"`
	PositionID       *uuid.UUID `gorm:"type:uuid"`
	SupervisorID     *uuid.UUID `gorm:"type:uuid;index"`
	FullName         string     `gorm:"type:varchar(255);not null"`
	Email            string     `gorm:"type:varchar(255);uniqueIndex"`
	EmploymentStatus string     `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	EmploymentType   string     `gorm:"type:varchar(30)"`
	HireDate         time.Time  `gorm:"type:date"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Position *PositionRef `gorm:"foreignKey:PositionID;references:ID"`
}

func (Employee) TableName() string {
	return "employees"
}

func (e *Employee) IsActive() bool {
	return e.EmploymentStatus == StatusActive
}

// JobLevel returns the position job level, empty when no position is linked.
func (e *Employee) JobLevel() string {
	if e.Position == nil {
		return ""
	}
	return e.Position.JobLevel
}

type PositionRef struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name     string    `gorm:"column:name"`
	JobLevel string    `gorm:"column:job_level"`
}

func (PositionRef) TableName() string {
	return "positions"
}
