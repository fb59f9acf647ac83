package attendance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Attendance is the daily time record. Besides clock in/out it carries the
// overtime cross-link stamped when an overtime request reaches final approval.
type Attendance struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID      uuid.UUID      `gorm:"column:company_id;type:uuid;not null;index"`
	EmployeeID     uuid.UUID      `gorm:"column:employee_id;type:uuid;not null;index"`
	AttendanceDate time.Time      `gorm:"column:attendance_date;type:date;not null;index"`
	ClockIn        time.Time      `gorm:"column:clock_in;type:timestamptz;not null"`
	ClockOut       *time.Time     `gorm:"column:clock_out;type:timestamptz"`
	Status         string         `gorm:"column:status;type:varchar(20);not null;default:PRESENT"`
	Source         string         `gorm:"column:source;type:varchar(30);not null;default:MANUAL"`
	Notes          *string        `gorm:"column:notes;type:text"`

	OvertimeApproved  bool             `gorm:"column:overtime_approved;not null;default:false"`
	OvertimeRequestID *uuid.UUID       `gorm:"column:overtime_request_id;type:uuid"`
	OvertimeHours     *decimal.Decimal `gorm:"column:overtime_hours;type:numeric(5,2)"`

	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Attendance) TableName() string {
	return "attendances"
}
