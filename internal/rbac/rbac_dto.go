package rbac

import "github.com/helderdene/hris-sub010/internal/domain"

// Aliased so this package's Service satisfies middleware.RBACService
// without a conversion layer.
type (
	EnforceRequest  = domain.EnforceRequest
	EnforceResponse = domain.EnforceResponse
)
