package workflow

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft     = "DRAFT"
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

const (
	KindLeave       = "LEAVE"
	KindOvertime    = "OVERTIME"
	KindRequisition = "REQUISITION"
)

// State is the shared lifecycle slice embedded in every request kind. All
// transitions go through the Engine; kind services own the surrounding entity
// and its persistence.
type State struct {
	Status               string `gorm:"type:varchar(10);not null;default:'DRAFT'"`
	CurrentApprovalLevel int    `gorm:"not null;default:1"`
	TotalApprovalLevels  int    `gorm:"not null;default:1"`

	// Set at submission for ledger-backed kinds, nil otherwise.
	LedgerEntryID *uuid.UUID `gorm:"type:uuid"`

	SubmittedAt  *time.Time `gorm:"type:timestamptz"`
	ApprovedAt   *time.Time `gorm:"type:timestamptz"`
	RejectedAt   *time.Time `gorm:"type:timestamptz"`
	CancelledAt  *time.Time `gorm:"type:timestamptz"`
	CancelReason *string    `gorm:"type:text"`
}

func (s *State) IsTerminal() bool {
	switch s.Status {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanCancel reports whether the requester may still withdraw the request.
// Approved requests cannot be cancelled through this path.
func (s *State) CanCancel() bool {
	return s.Status == StatusDraft || s.Status == StatusPending
}
