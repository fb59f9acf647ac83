package jobposting

import (
	"context"
	"database/sql"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	// Create inserts via raw SQL so it can ride the requisition approval
	// transaction.
	Create(ctx context.Context, p *JobPosting) error
	FindAllByCompany(ctx context.Context, companyID string) ([]JobPosting, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*JobPosting, error)
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

func (r *repository) Create(ctx context.Context, p *JobPosting) error {
	query := `
INSERT INTO job_postings (
	id, company_id, requisition_id, department_id, title, headcount,
	description, status, posted_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
`
	_, err := r.execer().ExecContext(
		ctx, query,
		p.ID, p.CompanyID, p.RequisitionID, p.DepartmentID, p.Title,
		p.Headcount, p.Description, p.Status, p.PostedAt,
	)
	return err
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]JobPosting, error) {
	var rows []JobPosting
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("posted_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*JobPosting, error) {
	var p JobPosting
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&p, "id = ?", id).Error
	return &p, err
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
