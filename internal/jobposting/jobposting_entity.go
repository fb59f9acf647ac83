package jobposting

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// JobPosting is created automatically when a requisition reaches final
// approval; recruitment owns it from there.
type JobPosting struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	RequisitionID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	DepartmentID  *uuid.UUID `gorm:"type:uuid"`
	Title         string     `gorm:"type:varchar(150);not null"`
	Headcount     int        `gorm:"not null;default:1"`
	Description   string     `gorm:"type:text"`
	Status        string     `gorm:"type:varchar(10);not null;default:'OPEN'"`
	PostedAt      time.Time  `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (JobPosting) TableName() string {
	return "job_postings"
}
