package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry tracks one employee's balance for one benefit type in one year.
// All amount columns are fixed-point decimals: quantities are fractional
// (half-days) and must survive many reserve/release cycles without drift.
type LedgerEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_ledger_entry_key"`
	EmployeeID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_ledger_entry_key"`
	BenefitTypeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_ledger_entry_key"`
	Year          int       `gorm:"not null;uniqueIndex:uq_ledger_entry_key"`

	BroughtForward decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Earned         decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Used           decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Pending        decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Adjustments    decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Expired        decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`

	CarryOverExpiryDate *time.Time `gorm:"type:date"`
	CarryOverExpired    bool       `gorm:"not null;default:false"`
	LastAccrualAt       *time.Time `gorm:"type:timestamptz"`

	// Stamped by the year-end roll-forward; processed entries are kept for
	// audit, never deleted.
	ProcessedAt *time.Time `gorm:"type:timestamptz"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LedgerEntry) TableName() string {
	return "balance_ledger_entries"
}

// Available is the amount a new reservation may draw from. It must never go
// negative through reserve, commit, adjust or expire.
func (e *LedgerEntry) Available() decimal.Decimal {
	return e.BroughtForward.
		Add(e.Earned).
		Add(e.Adjustments).
		Sub(e.Used).
		Sub(e.Pending).
		Sub(e.Expired)
}

const (
	AdjustmentCredit = "CREDIT"
	AdjustmentDebit  = "DEBIT"
)

// BalanceAdjustment is an append-only audit row; it is written once by
// RecordAdjustment and never updated or deleted.
type BalanceAdjustment struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	LedgerEntryID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type            string          `gorm:"type:varchar(10);not null"`
	Days            decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	Reason          string          `gorm:"type:text;not null"`
	PreviousBalance decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	NewBalance      decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	ActorEmployeeID uuid.UUID       `gorm:"type:uuid;not null"`
	ReferenceID     *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt       time.Time
}

func (BalanceAdjustment) TableName() string {
	return "balance_adjustments"
}
