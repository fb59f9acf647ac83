package leave

import (
	"context"
	"database/sql"
	"time"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, l *Leave) error
	FindAllByCompany(ctx context.Context, companyID string) ([]Leave, error)
	FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]Leave, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Leave, error)
	// UpdateState persists the workflow slice of the row; the request's
	// descriptive fields are immutable once created.
	UpdateState(ctx context.Context, l *Leave) error
	HasOverlappingPeriod(ctx context.Context, companyID, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error)
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

func (r *repository) Create(ctx context.Context, l *Leave) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Leave, error) {
	var leaves []Leave
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("start_date DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]Leave, error) {
	var leaves []Leave
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Order("start_date DESC").
		Find(&leaves).Error
	return leaves, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Leave, error) {
	var l Leave
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) UpdateState(ctx context.Context, l *Leave) error {
	query := `
UPDATE leaves
SET
	status = $2,
	current_approval_level = $3,
	total_approval_levels = $4,
	ledger_entry_id = $5,
	submitted_at = $6,
	approved_at = $7,
	rejected_at = $8,
	cancelled_at = $9,
	cancel_reason = $10,
	updated_at = NOW()
WHERE id = $1
`
	_, err := r.execer().ExecContext(
		ctx, query,
		l.ID,
		l.Status, l.CurrentApprovalLevel, l.TotalApprovalLevels, l.LedgerEntryID,
		l.SubmittedAt, l.ApprovedAt, l.RejectedAt, l.CancelledAt, l.CancelReason,
	)
	return err
}

func (r *repository) HasOverlappingPeriod(ctx context.Context, companyID, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&Leave{}).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Where("status NOT IN ?", []string{"CANCELLED", "REJECTED"}).
		Where("NOT (end_date < ? OR start_date > ?)", startDate, endDate)

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
