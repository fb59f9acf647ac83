package tenant

import "gorm.io/gorm"

// Scope restricts a query to one company's rows. Every repository read in
// this module goes through it so a tenant can never see another tenant's
// requests, balances or roles.
func Scope(companyID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("company_id = ?", companyID)
	}
}
