package user

import (
	"context"
	"errors"
	"strings"

	"github.com/helderdene/hris-sub010/internal/shared/contextutil"
	usererrors "github.com/helderdene/hris-sub010/internal/user/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service interface {
	GetAll(ctx context.Context, companyID string) ([]UserResponse, error)
	GetByID(ctx context.Context, companyID, id string) (UserResponse, error)
	Create(ctx context.Context, companyID string, req CreateUserRequest) (UserResponse, error)
	AssignRole(ctx context.Context, companyID, userID, roleName string) error
	ToggleStatus(ctx context.Context, companyID, id string, isActive bool) error
	ChangePassword(ctx context.Context, companyID, userID, currentPassword, newPassword string) error
	ResetPassword(ctx context.Context, companyID, userID, newPassword string) error
}

// RoleAssigner decouples this package from the rbac service. The rbac
// Service satisfies it.
type RoleAssigner interface {
	AssignRoleToEmployee(companyID, employeeID, roleName string) error
}

type service struct {
	repo         Repository
	roleAssigner RoleAssigner
}

func NewService(repo Repository, roleAssigner ...RoleAssigner) Service {
	var assigner RoleAssigner
	if len(roleAssigner) > 0 {
		assigner = roleAssigner[0]
	}
	return &service{
		repo:         repo,
		roleAssigner: assigner,
	}
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]UserResponse, error) {
	users, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = mapToResponse(u)
	}

	return resp, nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (UserResponse, error) {
	u, err := s.findUser(ctx, companyID, id)
	if err != nil {
		return UserResponse{}, err
	}
	return mapToResponse(*u), nil
}

func (s *service) Create(ctx context.Context, companyID string, req CreateUserRequest) (UserResponse, error) {
	l := contextutil.GetLogger(ctx, nil)

	l.Info("creating user",
		zap.String("employee_id", req.EmployeeID),
		zap.String("email", req.Email),
	)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error("failed to hash password", zap.Error(err))
		return UserResponse{}, err
	}

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return UserResponse{}, usererrors.ErrInvalidCompanyID
	}
	employeeUUID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return UserResponse{}, usererrors.ErrInvalidEmployeeID
	}

	u := &User{
		CompanyID:  companyUUID,
		EmployeeID: employeeUUID,
		Name:       req.Email, // profile name follows the employee record
		Role:       "EMPLOYEE",
		Email:      req.Email,
		Password:   string(hashedPassword),
		IsActive:   true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		l.Error("failed to create user", zap.Error(err))
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "unique") {
			return UserResponse{}, usererrors.ErrUserAlreadyExists
		}
		return UserResponse{}, err
	}

	l.Info("user created", zap.String("email", u.Email))
	return mapToResponse(*u), nil
}

func (s *service) AssignRole(ctx context.Context, companyID, userID, roleName string) error {
	if s.roleAssigner == nil {
		return errors.New("role assigner is not configured")
	}

	u, err := s.findUser(ctx, companyID, userID)
	if err != nil {
		return err
	}

	return s.roleAssigner.AssignRoleToEmployee(companyID, u.EmployeeID.String(), strings.TrimSpace(roleName))
}

func (s *service) ToggleStatus(ctx context.Context, companyID, id string, isActive bool) error {
	l := contextutil.GetLogger(ctx, nil)

	u, err := s.findUser(ctx, companyID, id)
	if err != nil {
		return err
	}

	u.IsActive = isActive

	if err := s.repo.Update(ctx, u); err != nil {
		l.Error("failed to update user status", zap.Error(err))
		return err
	}

	l.Info("user status updated",
		zap.String("user_id", id),
		zap.Bool("is_active", isActive),
	)
	return nil
}

func (s *service) ChangePassword(ctx context.Context, companyID, userID, currentPassword, newPassword string) error {
	u, err := s.findUser(ctx, companyID, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(currentPassword)); err != nil {
		return usererrors.ErrWrongPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.Password = string(hashed)
	return s.repo.Update(ctx, u)
}

// ResetPassword is the admin path: no current-password check, guarded by RBAC
// at the route level.
func (s *service) ResetPassword(ctx context.Context, companyID, userID, newPassword string) error {
	u, err := s.findUser(ctx, companyID, userID)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.Password = string(hashed)
	return s.repo.Update(ctx, u)
}

func (s *service) findUser(ctx context.Context, companyID, id string) (*User, error) {
	u, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usererrors.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func mapToResponse(u User) UserResponse {
	resp := UserResponse{
		ID:         u.ID.String(),
		EmployeeID: u.EmployeeID.String(),
		Email:      u.Email,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if u.Employee != nil {
		resp.FullName = u.Employee.FullName
	}
	return resp
}
