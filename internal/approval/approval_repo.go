package approval

import (
	"context"
	"database/sql"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	CreateBatch(ctx context.Context, records []ApprovalRecord) error
	// Decide flips a PENDING record to the given decision. The WHERE guard on
	// decision makes concurrent decisions on the same step lose cleanly: the
	// second caller sees zero rows affected.
	Decide(ctx context.Context, id, decision string, comment *string) (int64, error)
	ListByRequest(ctx context.Context, companyID, requestID string) ([]ApprovalRecord, error)
	ListPendingByRequest(ctx context.Context, companyID, requestID string) ([]ApprovalRecord, error)
	FindPendingForApprover(ctx context.Context, companyID, requestID, approverID string) (*ApprovalRecord, error)
	ListPendingByApprover(ctx context.Context, companyID, approverID string) ([]ApprovalRecord, error)
	DeleteByRequest(ctx context.Context, requestID string) error
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

func (r *repository) CreateBatch(ctx context.Context, records []ApprovalRecord) error {
	query := `
INSERT INTO approval_records (
	id, company_id, request_id, request_kind, level,
	approver_id, approver_type, decision
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	for i := range records {
		rec := &records[i]
		_, err := r.execer().ExecContext(
			ctx, query,
			rec.ID, rec.CompanyID, rec.RequestID, rec.RequestKind, rec.Level,
			rec.ApproverID, rec.ApproverType, rec.Decision,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) Decide(ctx context.Context, id, decision string, comment *string) (int64, error) {
	query := `
UPDATE approval_records
SET decision = $2, comment = $3, decided_at = NOW(), updated_at = NOW()
WHERE id = $1 AND decision = 'PENDING'
`
	res, err := r.execer().ExecContext(ctx, query, id, decision, comment)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) ListByRequest(ctx context.Context, companyID, requestID string) ([]ApprovalRecord, error) {
	var records []ApprovalRecord
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("request_id = ?", requestID).
		Order("level ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) ListPendingByRequest(ctx context.Context, companyID, requestID string) ([]ApprovalRecord, error) {
	var records []ApprovalRecord
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("request_id = ?", requestID).
		Where("decision = ?", DecisionPending).
		Order("level ASC").
		Find(&records).Error
	return records, err
}

func (r *repository) FindPendingForApprover(ctx context.Context, companyID, requestID, approverID string) (*ApprovalRecord, error) {
	var rec ApprovalRecord
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("request_id = ?", requestID).
		Where("approver_id = ?", approverID).
		Where("decision = ?", DecisionPending).
		Order("level ASC").
		First(&rec).Error
	return &rec, err
}

func (r *repository) ListPendingByApprover(ctx context.Context, companyID, approverID string) ([]ApprovalRecord, error) {
	var records []ApprovalRecord
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("approver_id = ?", approverID).
		Where("decision = ?", DecisionPending).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

// DeleteByRequest discards the open chain when a request is cancelled. Decided
// records for terminal requests are kept as history; cancellation before any
// decision leaves nothing worth auditing.
func (r *repository) DeleteByRequest(ctx context.Context, requestID string) error {
	query := `DELETE FROM approval_records WHERE request_id = $1 AND decision = 'PENDING'`
	_, err := r.execer().ExecContext(ctx, query, requestID)
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
