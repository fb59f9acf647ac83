package position

import (
	"context"

	"github.com/helderdene/hris-sub010/internal/tenant"

	"gorm.io/gorm"
)

type Repository interface {
	FindAllByCompany(ctx context.Context, companyID string) ([]Position, error)
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Position, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]Position, error) {
	var positions []Position
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Find(&positions).Error
	return positions, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Position, error) {
	var pos Position
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&pos, "id = ?", id).Error
	return &pos, err
}
