package requisition

import (
	"context"
	"database/sql"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, rq *Requisition) error
	FindAllByCompany(ctx context.Context, companyID string) ([]Requisition, error)
	FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]Requisition, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Requisition, error)
	UpdateState(ctx context.Context, rq *Requisition) error
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

func (r *repository) Create(ctx context.Context, rq *Requisition) error {
	return r.db.WithContext(ctx).Create(rq).Error
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Requisition, error) {
	var rows []Requisition
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]Requisition, error) {
	var rows []Requisition
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Requisition, error) {
	var rq Requisition
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&rq, "id = ?", id).Error
	return &rq, err
}

func (r *repository) UpdateState(ctx context.Context, rq *Requisition) error {
	query := `
UPDATE requisitions
SET
	status = $2,
	current_approval_level = $3,
	total_approval_levels = $4,
	job_posting_id = $5,
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
		rq.ID,
		rq.Status, rq.CurrentApprovalLevel, rq.TotalApprovalLevels,
		rq.JobPostingID,
		rq.SubmittedAt, rq.ApprovedAt, rq.RejectedAt, rq.CancelledAt, rq.CancelReason,
	)
	return err
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
