package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, a *Attendance) error
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Attendance, error)
	FindByEmployeeAndDate(ctx context.Context, companyID, employeeID string, date time.Time) (*Attendance, error)
	FindAllByCompany(ctx context.Context, companyID string) ([]Attendance, error)
	FindAllByCompanyAndEmployee(ctx context.Context, companyID, employeeID string) ([]Attendance, error)
	Update(ctx context.Context, a *Attendance) error
	// MarkOvertimeApproved stamps the cross-link on the time record inside the
	// approval transaction.
	MarkOvertimeApproved(ctx context.Context, id, overtimeRequestID string, hours decimal.Decimal) error
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

func (r *repository) Create(ctx context.Context, a *Attendance) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Attendance, error) {
	var a Attendance
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&a, "id = ?", id).Error
	return &a, err
}

func (r *repository) FindByEmployeeAndDate(ctx context.Context, companyID, employeeID string, date time.Time) (*Attendance, error) {
	var a Attendance
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Where("attendance_date = ?", date.Format("2006-01-02")).
		First(&a).Error
	return &a, err
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Attendance, error) {
	var rows []Attendance
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("attendance_date DESC, clock_in DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindAllByCompanyAndEmployee(ctx context.Context, companyID, employeeID string) ([]Attendance, error) {
	var rows []Attendance
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Order("attendance_date DESC, clock_in DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, a *Attendance) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *repository) MarkOvertimeApproved(ctx context.Context, id, overtimeRequestID string, hours decimal.Decimal) error {
	query := `
UPDATE attendances
SET
	overtime_approved = TRUE,
	overtime_request_id = $2,
	overtime_hours = $3,
	updated_at = NOW()
WHERE id = $1
`
	_, err := r.execer().ExecContext(ctx, query, id, overtimeRequestID, hours)
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
