package benefit

import (
	"context"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	FindAllByCompany(ctx context.Context, companyID string) ([]BenefitType, error)
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*BenefitType, error)
	FindMonthlyAccrualByCompany(ctx context.Context, companyID string) ([]BenefitType, error)
	ListCompanyIDs(ctx context.Context) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]BenefitType, error) {
	var types []BenefitType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("name ASC").
		Find(&types).Error
	return types, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*BenefitType, error) {
	var bt BenefitType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&bt, "id = ?", id).Error
	return &bt, err
}

func (r *repository) FindMonthlyAccrualByCompany(ctx context.Context, companyID string) ([]BenefitType, error) {
	var types []BenefitType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("accrual_method = ?", AccrualMonthly).
		Find(&types).Error
	return types, err
}

// ListCompanyIDs feeds the batch scheduler: every tenant with configured
// benefit types gets accrual and expiry runs.
func (r *repository) ListCompanyIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&BenefitType{}).
		Distinct("company_id::text").
		Pluck("company_id::text", &ids).Error
	return ids, err
}
