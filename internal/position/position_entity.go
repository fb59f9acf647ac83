package position

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	JobLevelStaff         = "STAFF"
	JobLevelSupervisor    = "SUPERVISOR"
	JobLevelManager       = "MANAGER"
	JobLevelSeniorManager = "SENIOR_MANAGER"
	JobLevelDirector      = "DIRECTOR"
	JobLevelExecutive     = "EXECUTIVE"
)

type Position struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name         string         `gorm:"size:255;not null"`
	CompanyID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	DepartmentID uuid.UUID      `gorm:"type:uuid;not null"`
	JobLevel     string         `gorm:"type:varchar(30);not null;default:'STAFF'"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// IsManagerial reports whether the job level qualifies as a department-head
// grade approver.
func IsManagerial(jobLevel string) bool {
	switch jobLevel {
	case JobLevelManager, JobLevelSeniorManager, JobLevelDirector, JobLevelExecutive:
		return true
	default:
		return false
	}
}
