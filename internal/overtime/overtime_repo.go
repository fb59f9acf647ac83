package overtime

import (
	"context"
	"database/sql"
	"time"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, o *Overtime) error
	FindAllByCompany(ctx context.Context, companyID string) ([]Overtime, error)
	FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]Overtime, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Overtime, error)
	// UpdateState persists the workflow slice plus the DTR cross-link; the
	// request's descriptive fields are immutable once created.
	UpdateState(ctx context.Context, o *Overtime) error
	HasRequestOnDate(ctx context.Context, companyID, employeeID string, date time.Time, excludeID *string) (bool, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) Create(ctx context.Context, o *Overtime) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Overtime, error) {
	var rows []Overtime
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("date DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]Overtime, error) {
	var rows []Overtime
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Order("date DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Overtime, error) {
	var o Overtime
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&o, "id = ?", id).Error
	return &o, err
}

func (r *repository) UpdateState(ctx context.Context, o *Overtime) error {
	query := `
UPDATE overtime_requests
SET
	status = $2,
	current_approval_level = $3,
	total_approval_levels = $4,
	ledger_entry_id = $5,
	time_record_id = $6,
	submitted_at = $7,
	approved_at = $8,
	rejected_at = $9,
	cancelled_at = $10,
	cancel_reason = $11,
	updated_at = NOW()
WHERE id = $1
`
	_, err := r.execer().ExecContext(
		ctx, query,
		o.ID,
		o.Status, o.CurrentApprovalLevel, o.TotalApprovalLevels, o.LedgerEntryID,
		o.TimeRecordID,
		o.SubmittedAt, o.ApprovedAt, o.RejectedAt, o.CancelledAt, o.CancelReason,
	)
	return err
}

func (r *repository) HasRequestOnDate(ctx context.Context, companyID, employeeID string, date time.Time, excludeID *string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&Overtime{}).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Where("status NOT IN ?", []string{"CANCELLED", "REJECTED"}).
		Where("date = ?", date.Format("2006-01-02"))

	if excludeID != nil && *excludeID != "" {
		db = db.Where("id <> ?", *excludeID)
	}

	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		panic(err)
	}
	return sqlDB
}
