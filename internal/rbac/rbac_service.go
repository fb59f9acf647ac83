package rbac

import (
	"errors"
	"net/http"
	"sync"

	"github.com/helderdene/hris-sub010/internal/domain"
	"github.com/helderdene/hris-sub010/internal/shared/apperror"

	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	LoadCompanyPolicy(companyID string) error
	Enforce(req EnforceRequest) (bool, error)

	// Role management
	ListRoles(companyID string) ([]domain.RoleResponse, error)
	GetRole(companyID, id string) (*domain.RoleResponse, error)
	CreateRole(companyID string, req domain.CreateRoleRequest) (*domain.RoleResponse, error)
	UpdateRole(companyID, id string, req domain.UpdateRoleRequest) (*domain.RoleResponse, error)
	DeleteRole(companyID, id string) error
	ListPermissions() ([]domain.PermissionResponse, error)

	// AssignRoleToEmployee grants an existing role, looked up by name within
	// the company, to an employee.
	AssignRoleToEmployee(companyID, employeeID, roleName string) error
}

var errRoleNotFound = apperror.New(apperror.CodeNotFound, "role not found", http.StatusNotFound)

type service struct {
	repo     Repository
	enforcer *casbin.Enforcer
	logger   *zap.Logger
	mu       sync.Mutex
}

func NewService(repo Repository, enforcer *casbin.Enforcer, logger ...*zap.Logger) Service {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}
	return &service{
		repo:     repo,
		enforcer: enforcer,
		logger:   l,
	}
}

func (s *service) LoadCompanyPolicy(companyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadCompanyPolicyUnlocked(companyID)
}

// loadCompanyPolicyUnlocked rebuilds the in-memory model from the database.
// The enforcer holds a single company's policy at a time, so Enforce reloads
// under the mutex for whichever company the request belongs to.
func (s *service) loadCompanyPolicyUnlocked(companyID string) error {
	s.enforcer.ClearPolicy()

	employeeRoles, err := s.repo.GetEmployeeRoles(companyID)
	if err != nil {
		return err
	}

	for _, er := range employeeRoles {
		if _, err := s.enforcer.AddGroupingPolicy(er.EmployeeID, er.RoleID, companyID); err != nil {
			return err
		}
	}

	rolePerms, err := s.repo.GetRolePermissions(companyID)
	if err != nil {
		return err
	}

	for _, rp := range rolePerms {
		if _, err := s.enforcer.AddPolicy(rp.RoleID, companyID, rp.Resource, rp.Action); err != nil {
			return err
		}
	}

	s.logger.Debug("rbac policy loaded",
		zap.String("company_id", companyID),
		zap.Int("employee_roles", len(employeeRoles)),
		zap.Int("role_permissions", len(rolePerms)),
	)

	return nil
}

func (s *service) Enforce(req EnforceRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadCompanyPolicyUnlocked(req.CompanyID); err != nil {
		return false, err
	}

	allowed, err := s.enforcer.Enforce(
		req.EmployeeID,
		req.CompanyID,
		req.Resource,
		req.Action,
	)
	if err != nil {
		s.logger.Warn("rbac enforce failed",
			zap.String("employee_id", req.EmployeeID),
			zap.String("company_id", req.CompanyID),
			zap.String("resource", req.Resource),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		return false, err
	}

	s.logger.Debug("rbac enforce",
		zap.String("employee_id", req.EmployeeID),
		zap.String("resource", req.Resource),
		zap.String("action", req.Action),
		zap.Bool("allowed", allowed),
	)

	return allowed, nil
}

func (s *service) ListRoles(companyID string) ([]domain.RoleResponse, error) {
	rows, err := s.repo.ListRoles(companyID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.RoleResponse, 0, len(rows))
	for _, row := range rows {
		role, err := s.toRoleResponse(row)
		if err != nil {
			return nil, err
		}
		resp = append(resp, *role)
	}
	return resp, nil
}

func (s *service) GetRole(companyID, id string) (*domain.RoleResponse, error) {
	row, err := s.findCompanyRole(companyID, id)
	if err != nil {
		return nil, err
	}
	return s.toRoleResponse(*row)
}

func (s *service) CreateRole(companyID string, req domain.CreateRoleRequest) (*domain.RoleResponse, error) {
	if existing, err := s.repo.GetRoleByName(companyID, req.Name); err == nil && existing != nil {
		return nil, apperror.New(apperror.CodeConflict, "a role with this name already exists", http.StatusConflict)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row := &RoleRow{
		CompanyID:   companyID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.repo.CreateRole(row); err != nil {
		return nil, err
	}

	if len(req.Permissions) > 0 {
		if err := s.repo.UpdateRolePermissions(row.ID, req.Permissions); err != nil {
			return nil, err
		}
	}

	s.logger.Info("role created",
		zap.String("company_id", companyID),
		zap.String("role_id", row.ID),
		zap.String("name", row.Name),
	)

	return s.toRoleResponse(*row)
}

func (s *service) UpdateRole(companyID, id string, req domain.UpdateRoleRequest) (*domain.RoleResponse, error) {
	row, err := s.findCompanyRole(companyID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		row.Name = req.Name
	}
	if req.Description != "" {
		row.Description = req.Description
	}
	if err := s.repo.UpdateRole(row); err != nil {
		return nil, err
	}

	if req.Permissions != nil {
		if err := s.repo.UpdateRolePermissions(row.ID, req.Permissions); err != nil {
			return nil, err
		}
	}

	return s.toRoleResponse(*row)
}

func (s *service) DeleteRole(companyID, id string) error {
	if _, err := s.findCompanyRole(companyID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteRole(id); err != nil {
		return err
	}
	s.logger.Info("role deleted", zap.String("company_id", companyID), zap.String("role_id", id))
	return nil
}

func (s *service) ListPermissions() ([]domain.PermissionResponse, error) {
	rows, err := s.repo.ListPermissions()
	if err != nil {
		return nil, err
	}

	resp := make([]domain.PermissionResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, domain.PermissionResponse{
			ID:       row.ID,
			Resource: row.Resource,
			Action:   row.Action,
			Label:    row.Label,
			Category: row.Category,
		})
	}
	return resp, nil
}

func (s *service) AssignRoleToEmployee(companyID, employeeID, roleName string) error {
	role, err := s.repo.GetRoleByName(companyID, roleName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errRoleNotFound
		}
		return err
	}

	if err := s.repo.AssignEmployeeRole(employeeID, role.ID); err != nil {
		return err
	}

	s.logger.Info("role assigned",
		zap.String("company_id", companyID),
		zap.String("employee_id", employeeID),
		zap.String("role", roleName),
	)
	return nil
}

func (s *service) findCompanyRole(companyID, id string) (*RoleRow, error) {
	row, err := s.repo.GetRoleByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errRoleNotFound
		}
		return nil, err
	}
	if row.CompanyID != companyID {
		return nil, errRoleNotFound
	}
	return row, nil
}

func (s *service) toRoleResponse(row RoleRow) (*domain.RoleResponse, error) {
	perms, err := s.repo.GetPermissionsByRoleID(row.ID)
	if err != nil {
		return nil, err
	}

	permIDs := make([]string, 0, len(perms))
	for _, p := range perms {
		permIDs = append(permIDs, p.ID)
	}

	return &domain.RoleResponse{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Permissions: permIDs,
	}, nil
}
