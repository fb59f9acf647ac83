package approval

import (
	"context"
	"errors"

	"github.com/helderdene/hris-sub010/internal/employee"
	"github.com/helderdene/hris-sub010/internal/position"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultMaxLevels is the chain depth used for normal resolution.
	DefaultMaxLevels = 2
	// canApproveDepth is the deeper walk CanApprove uses to test chain
	// membership; it is never used to build a persisted chain.
	canApproveDepth = 5
)

// Resolver walks supervisor links to build an ordered approver chain. It
// never mutates state: an empty chain is a normal outcome the caller must
// check for, not an error.
type Resolver interface {
	ResolveChain(ctx context.Context, emp *employee.Employee, maxLevels int) ([]Approver, error)
	// FallbackApprover returns an active managerial employee in the
	// requester's department, or nil when the department has none.
	FallbackApprover(ctx context.Context, emp *employee.Employee) (*employee.Employee, error)
	CanApprove(ctx context.Context, approverID string, applicant *employee.Employee) (bool, error)
}

type resolver struct {
	employees employee.Repository
	logger    *zap.Logger
}

func NewResolver(employees employee.Repository, logger ...*zap.Logger) Resolver {
	l := zap.L().Named("approval.resolver")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.resolver")
	}
	return &resolver{employees: employees, logger: l}
}

func (r *resolver) ResolveChain(ctx context.Context, emp *employee.Employee, maxLevels int) ([]Approver, error) {
	if maxLevels <= 0 {
		maxLevels = DefaultMaxLevels
	}

	// Seeding the seen-set with the requester makes self-approval impossible
	// even on a corrupted org chart where someone supervises themselves.
	seen := map[string]bool{emp.ID.String(): true}
	chain := make([]Approver, 0, maxLevels)

	level := 1
	nextID := emp.SupervisorID
	for nextID != nil && level <= maxLevels {
		if seen[nextID.String()] {
			r.logger.Warn("supervisor cycle detected",
				zap.String("employee_id", emp.ID.String()),
				zap.String("supervisor_id", nextID.String()),
			)
			break
		}

		sup, err := r.employees.FindByIDAndCompany(ctx, emp.CompanyID.String(), nextID.String())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Dangling supervisor link; treat as end of chain.
				break
			}
			return nil, err
		}

		seen[sup.ID.String()] = true

		if !sup.IsActive() {
			// Inactive approvers are transparently skipped: the walk moves
			// up without consuming a level.
			nextID = sup.SupervisorID
			continue
		}

		chain = append(chain, Approver{
			EmployeeID: sup.ID,
			Type:       classify(level, sup.JobLevel()),
			Level:      level,
		})
		nextID = sup.SupervisorID
		level++
	}

	return chain, nil
}

// classify tags a chain step for display and notification routing; it plays
// no part in authorization.
func classify(level int, jobLevel string) string {
	switch {
	case level == 1:
		return ApproverSupervisor
	case position.IsManagerial(jobLevel):
		return ApproverDepartmentHead
	case level == 2:
		return ApproverManager
	default:
		return ApproverSeniorManager
	}
}

func (r *resolver) FallbackApprover(ctx context.Context, emp *employee.Employee) (*employee.Employee, error) {
	if emp.DepartmentID == nil {
		return nil, nil
	}

	head, err := r.employees.FindDepartmentHead(ctx, emp.CompanyID.String(), emp.DepartmentID.String(), emp.ID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return head, nil
}

func (r *resolver) CanApprove(ctx context.Context, approverID string, applicant *employee.Employee) (bool, error) {
	if approverID == applicant.ID.String() {
		return false, nil
	}

	chain, err := r.ResolveChain(ctx, applicant, canApproveDepth)
	if err != nil {
		return false, err
	}
	for _, step := range chain {
		if step.EmployeeID.String() == approverID {
			return true, nil
		}
	}
	return false, nil
}
