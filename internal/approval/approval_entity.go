package approval

import (
	"time"

	"github.com/google/uuid"
)

const (
	DecisionPending  = "PENDING"
	DecisionApproved = "APPROVED"
	DecisionRejected = "REJECTED"
)

const (
	ApproverSupervisor     = "SUPERVISOR"
	ApproverManager        = "MANAGER"
	ApproverSeniorManager  = "SENIOR_MANAGER"
	ApproverDepartmentHead = "DEPARTMENT_HEAD"
)

// ApprovalRecord is one step of a request's approval chain. The approver is
// snapshotted at submission time: later org-chart changes do not reroute an
// in-flight request.
type ApprovalRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	RequestID   uuid.UUID `gorm:"type:uuid;not null;index:idx_approval_request"`
	RequestKind string    `gorm:"type:varchar(20);not null"`

	Level        int       `gorm:"not null"`
	ApproverID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ApproverType string    `gorm:"type:varchar(20);not null"`

	Decision  string     `gorm:"type:varchar(10);not null;default:'PENDING'"`
	Comment   *string    `gorm:"type:text"`
	DecidedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ApprovalRecord) TableName() string {
	return "approval_records"
}

func (a *ApprovalRecord) IsPending() bool {
	return a.Decision == DecisionPending
}

// Approver is a resolved chain step before it is persisted.
type Approver struct {
	EmployeeID uuid.UUID
	Type       string
	Level      int
}
