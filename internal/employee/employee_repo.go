package employee

import (
	"context"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Employee, error)
	FindAllActiveByCompany(ctx context.Context, companyID string) ([]Employee, error)
	// FindDepartmentHead returns the first active managerial-grade employee in
	// the department, excluding excludeID, ordered by id. Returns
	// gorm.ErrRecordNotFound when the department has no such employee.
	FindDepartmentHead(ctx context.Context, companyID, departmentID, excludeID string) (*Employee, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).
		Preload("Position").
		Scopes(tenant.Scope(companyID)).
		First(&e, "id = ?", id).Error
	return &e, err
}

func (r *repository) FindAllActiveByCompany(ctx context.Context, companyID string) ([]Employee, error) {
	var employees []Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employment_status = ?", StatusActive).
		Find(&employees).Error
	return employees, err
}

func (r *repository) FindDepartmentHead(ctx context.Context, companyID, departmentID, excludeID string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).
		Preload("Position").
		Scopes(tenant.Scope(companyID)).
		Joins("JOIN positions ON positions.id = employees.position_id").
		Where("employees.department_id = ?", departmentID).
		Where("employees.employment_status = ?", StatusActive).
		Where("employees.id <> ?", excludeID).
		Where("positions.job_level IN ?", []string{"MANAGER", "SENIOR_MANAGER", "DIRECTOR", "EXECUTIVE"}).
		Order("employees.id ASC").
		First(&e).Error
	return &e, err
}
