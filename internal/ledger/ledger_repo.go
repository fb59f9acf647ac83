package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	// CreateEntry inserts the row unless another transaction created it
	// first; it reports whether this call inserted. The conflict case must
	// not poison the surrounding transaction, so the caller can re-select
	// the winner's row.
	CreateEntry(ctx context.Context, e *LedgerEntry) (bool, error)
	// FindEntryForUpdate loads the ledger row with a row-level lock held for
	// the duration of the surrounding transaction. This is the one place true
	// concurrent-write contention is expected.
	FindEntryForUpdate(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*LedgerEntry, error)
	FindEntryByIDForUpdate(ctx context.Context, id string) (*LedgerEntry, error)
	UpdateAmounts(ctx context.Context, e *LedgerEntry) error
	FindEntry(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*LedgerEntry, error)
	FindEntryByID(ctx context.Context, companyID, id string) (*LedgerEntry, error)
	ListUnprocessedByYear(ctx context.Context, companyID string, year int) ([]LedgerEntry, error)
	ListExpirable(ctx context.Context, companyID string, now time.Time) ([]LedgerEntry, error)
	CreateAdjustment(ctx context.Context, adj *BalanceAdjustment) error
	ListAdjustmentsByEntry(ctx context.Context, companyID, entryID string) ([]BalanceAdjustment, error)
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

const entryColumns = `
	id::text,
	company_id::text,
	employee_id::text,
	benefit_type_id::text,
	year,
	brought_forward,
	earned,
	used,
	pending,
	adjustments,
	expired,
	carry_over_expiry_date,
	carry_over_expired,
	last_accrual_at,
	processed_at
`

func (r *repository) CreateEntry(ctx context.Context, e *LedgerEntry) (bool, error) {
	// ON CONFLICT DO NOTHING instead of surfacing 23505: a unique-violation
	// error would abort the enclosing transaction on postgres, leaving no way
	// to fall back to the concurrently created row.
	query := `
INSERT INTO balance_ledger_entries (
	id, company_id, employee_id, benefit_type_id, year,
	brought_forward, earned, used, pending, adjustments, expired,
	carry_over_expiry_date, carry_over_expired, last_accrual_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (company_id, employee_id, benefit_type_id, year) DO NOTHING
`
	res, err := r.execer().ExecContext(
		ctx, query,
		e.ID, e.CompanyID, e.EmployeeID, e.BenefitTypeID, e.Year,
		e.BroughtForward, e.Earned, e.Used, e.Pending, e.Adjustments, e.Expired,
		e.CarryOverExpiryDate, e.CarryOverExpired, e.LastAccrualAt,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *repository) FindEntryForUpdate(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*LedgerEntry, error) {
	query := `
SELECT ` + entryColumns + `
FROM balance_ledger_entries
WHERE company_id = $1 AND employee_id = $2 AND benefit_type_id = $3 AND year = $4
FOR UPDATE
`
	row := r.querier().QueryRowContext(ctx, query, companyID, employeeID, benefitTypeID, year)
	return scanEntry(row)
}

func (r *repository) FindEntryByIDForUpdate(ctx context.Context, id string) (*LedgerEntry, error) {
	query := `
SELECT ` + entryColumns + `
FROM balance_ledger_entries
WHERE id = $1
FOR UPDATE
`
	row := r.querier().QueryRowContext(ctx, query, id)
	return scanEntry(row)
}

func (r *repository) UpdateAmounts(ctx context.Context, e *LedgerEntry) error {
	query := `
UPDATE balance_ledger_entries
SET
	brought_forward = $2,
	earned = $3,
	used = $4,
	pending = $5,
	adjustments = $6,
	expired = $7,
	carry_over_expiry_date = $8,
	carry_over_expired = $9,
	last_accrual_at = $10,
	processed_at = $11,
	updated_at = NOW()
WHERE id = $1
`
	_, err := r.execer().ExecContext(
		ctx, query,
		e.ID,
		e.BroughtForward, e.Earned, e.Used, e.Pending, e.Adjustments, e.Expired,
		e.CarryOverExpiryDate, e.CarryOverExpired, e.LastAccrualAt, e.ProcessedAt,
	)
	return err
}

func (r *repository) FindEntry(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*LedgerEntry, error) {
	var e LedgerEntry
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Where("benefit_type_id = ?", benefitTypeID).
		Where("year = ?", year).
		First(&e).Error
	return &e, err
}

func (r *repository) FindEntryByID(ctx context.Context, companyID, id string) (*LedgerEntry, error) {
	var e LedgerEntry
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&e, "id = ?", id).Error
	return &e, err
}

func (r *repository) ListUnprocessedByYear(ctx context.Context, companyID string, year int) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("year = ?", year).
		Where("processed_at IS NULL").
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListExpirable(ctx context.Context, companyID string, now time.Time) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("carry_over_expiry_date IS NOT NULL").
		Where("carry_over_expiry_date < ?", now.Format("2006-01-02")).
		Where("carry_over_expired = ?", false).
		Find(&entries).Error
	return entries, err
}

func (r *repository) CreateAdjustment(ctx context.Context, adj *BalanceAdjustment) error {
	query := `
INSERT INTO balance_adjustments (
	id, company_id, ledger_entry_id, type, days, reason,
	previous_balance, new_balance, actor_employee_id, reference_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err := r.execer().ExecContext(
		ctx, query,
		adj.ID, adj.CompanyID, adj.LedgerEntryID, adj.Type, adj.Days, adj.Reason,
		adj.PreviousBalance, adj.NewBalance, adj.ActorEmployeeID, adj.ReferenceID,
	)
	return err
}

func (r *repository) ListAdjustmentsByEntry(ctx context.Context, companyID, entryID string) ([]BalanceAdjustment, error) {
	var adjustments []BalanceAdjustment
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("ledger_entry_id = ?", entryID).
		Order("created_at ASC").
		Find(&adjustments).Error
	return adjustments, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*LedgerEntry, error) {
	var e LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.CompanyID,
		&e.EmployeeID,
		&e.BenefitTypeID,
		&e.Year,
		&e.BroughtForward,
		&e.Earned,
		&e.Used,
		&e.Pending,
		&e.Adjustments,
		&e.Expired,
		&e.CarryOverExpiryDate,
		&e.CarryOverExpired,
		&e.LastAccrualAt,
		&e.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
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

func (r *repository) querier() interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
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
