package leave

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"
	leaveerrors "github.com/helderdene/hris-sub010/internal/leave/errors"
	"github.com/helderdene/hris-sub010/internal/ledger"
	ledgererrors "github.com/helderdene/hris-sub010/internal/ledger/errors"
	"github.com/helderdene/hris-sub010/internal/shared/contextutil"
	"github.com/helderdene/hris-sub010/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, companyID, actorID string, req CreateLeaveRequest) (LeaveResponse, error)
	Submit(ctx context.Context, companyID, actorID, id string) (LeaveResponse, error)
	Approve(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (LeaveResponse, error)
	Reject(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (LeaveResponse, error)
	Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (LeaveResponse, error)
	GetAll(ctx context.Context, companyID string) ([]LeaveResponse, error)
	GetByEmployee(ctx context.Context, companyID, employeeID string) ([]LeaveResponse, error)
	GetByID(ctx context.Context, companyID, id string) (LeaveResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	employees employee.Repository
	benefits  benefit.Repository
	ledger    ledger.Service
	engine    *workflow.Engine
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	employees employee.Repository,
	benefits benefit.Repository,
	ledgerSvc ledger.Service,
	engine *workflow.Engine,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		employees: employees,
		benefits:  benefits,
		ledger:    ledgerSvc,
		engine:    engine,
		logger:    l,
	}
}

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreateLeaveRequest) (LeaveResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("create leave requested",
		zap.String("request_id", rid),
		zap.String("company_id", companyID),
		zap.String("employee_id", req.EmployeeID),
	)

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidCompanyID
	}
	employeeUUID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidEmployeeID
	}
	benefitTypeUUID, err := uuid.Parse(req.BenefitTypeID)
	if err != nil {
		return LeaveResponse{}, ledgererrors.ErrBenefitTypeNotFound
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidDateFormat
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidDateFormat
	}
	if endDate.Before(startDate) {
		return LeaveResponse{}, leaveerrors.ErrInvalidDateRange
	}
	if req.HalfDay && !startDate.Equal(endDate) {
		return LeaveResponse{}, leaveerrors.ErrHalfDayRange
	}

	if _, err := s.employees.FindByIDAndCompany(ctx, companyID, req.EmployeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, leaveerrors.ErrEmployeeNotInCompany
		}
		return LeaveResponse{}, err
	}
	if _, err := s.benefits.FindByIDAndCompany(ctx, companyID, req.BenefitTypeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveResponse{}, ledgererrors.ErrBenefitTypeNotFound
		}
		return LeaveResponse{}, err
	}

	overlap, err := s.repo.HasOverlappingPeriod(ctx, companyID, req.EmployeeID, startDate, endDate, nil)
	if err != nil {
		return LeaveResponse{}, err
	}
	if overlap {
		return LeaveResponse{}, leaveerrors.ErrLeaveOverlap
	}

	l := &Leave{
		ID:            uuid.New(),
		CompanyID:     companyUUID,
		EmployeeID:    employeeUUID,
		BenefitTypeID: benefitTypeUUID,
		StartDate:     startDate,
		EndDate:       endDate,
		HalfDay:       req.HalfDay,
		TotalDays:     ComputeTotalDays(startDate, endDate, req.HalfDay),
		Reason:        req.Reason,
		State: workflow.State{
			Status:               workflow.StatusDraft,
			CurrentApprovalLevel: 1,
			TotalApprovalLevels:  1,
		},
	}
	if err := s.repo.Create(ctx, l); err != nil {
		s.logger.Error("create leave persist failed", zap.String("request_id", rid), zap.Error(err))
		return LeaveResponse{}, err
	}

	return mapToResponse(*l), nil
}

func (s *service) Submit(ctx context.Context, companyID, actorID, id string) (LeaveResponse, error) {
	l, err := s.findOwned(ctx, companyID, actorID, id)
	if err != nil {
		return LeaveResponse{}, err
	}

	// Re-check overlap at submission; another request may have landed since
	// the draft was created.
	excludeID := l.ID.String()
	overlap, err := s.repo.HasOverlappingPeriod(ctx, companyID, l.EmployeeID.String(), l.StartDate, l.EndDate, &excludeID)
	if err != nil {
		return LeaveResponse{}, err
	}
	if overlap {
		return LeaveResponse{}, leaveerrors.ErrLeaveOverlap
	}

	emp, err := s.employees.FindByIDAndCompany(ctx, companyID, l.EmployeeID.String())
	if err != nil {
		return LeaveResponse{}, err
	}
	bt, err := s.benefits.FindByIDAndCompany(ctx, companyID, l.BenefitTypeID.String())
	if err != nil {
		return LeaveResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	if _, err := s.engine.Submit(ctx, tx, workflow.SubmitInput{
		Kind:        workflow.KindLeave,
		RequestID:   l.ID,
		Requester:   emp,
		BenefitType: bt,
		Quantity:    l.TotalDays,
		Year:        l.StartDate.Year(),
	}, &l.State); err != nil {
		s.logger.Warn("submit leave failed",
			zap.String("leave_id", l.ID.String()),
			zap.Error(err),
		)
		return LeaveResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, l); err != nil {
		return LeaveResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return LeaveResponse{}, err
	}

	s.ledger.InvalidateBalance(ctx, companyID, l.EmployeeID.String(), l.BenefitTypeID.String(), l.StartDate.Year())
	return mapToResponse(*l), nil
}

func (s *service) Approve(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (LeaveResponse, error) {
	l, err := s.find(ctx, companyID, id)
	if err != nil {
		return LeaveResponse{}, err
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	var comment *string
	if req.Comment != "" {
		comment = &req.Comment
	}
	outcome, err := s.engine.Approve(ctx, tx, workflow.DecideInput{
		Kind:        workflow.KindLeave,
		RequestID:   l.ID,
		CompanyID:   l.CompanyID,
		RequesterID: l.EmployeeID,
		ApproverID:  actorUUID,
		Comment:     comment,
		Quantity:    l.TotalDays,
	}, &l.State)
	if err != nil {
		return LeaveResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, l); err != nil {
		return LeaveResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return LeaveResponse{}, err
	}

	if outcome.Final {
		s.ledger.InvalidateBalance(ctx, companyID, l.EmployeeID.String(), l.BenefitTypeID.String(), l.StartDate.Year())
	}
	s.logger.Info("leave approval recorded",
		zap.String("leave_id", l.ID.String()),
		zap.Bool("final", outcome.Final),
	)
	return mapToResponse(*l), nil
}

func (s *service) Reject(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (LeaveResponse, error) {
	if req.Reason == "" {
		return LeaveResponse{}, leaveerrors.ErrReasonRequired
	}
	l, err := s.find(ctx, companyID, id)
	if err != nil {
		return LeaveResponse{}, err
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	if err := s.engine.Reject(ctx, tx, workflow.DecideInput{
		Kind:        workflow.KindLeave,
		RequestID:   l.ID,
		CompanyID:   l.CompanyID,
		RequesterID: l.EmployeeID,
		ApproverID:  actorUUID,
		Quantity:    l.TotalDays,
	}, req.Reason, &l.State); err != nil {
		return LeaveResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, l); err != nil {
		return LeaveResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return LeaveResponse{}, err
	}

	s.ledger.InvalidateBalance(ctx, companyID, l.EmployeeID.String(), l.BenefitTypeID.String(), l.StartDate.Year())
	return mapToResponse(*l), nil
}

func (s *service) Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (LeaveResponse, error) {
	l, err := s.findOwned(ctx, companyID, actorID, id)
	if err != nil {
		return LeaveResponse{}, err
	}

	wasPending := l.Status == workflow.StatusPending

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LeaveResponse{}, err
	}
	defer tx.Rollback()

	if err := s.engine.Cancel(ctx, tx, workflow.CancelInput{
		Kind:        workflow.KindLeave,
		RequestID:   l.ID,
		CompanyID:   l.CompanyID,
		RequesterID: l.EmployeeID,
		Quantity:    l.TotalDays,
		Reason:      req.Reason,
	}, &l.State); err != nil {
		return LeaveResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, l); err != nil {
		return LeaveResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return LeaveResponse{}, err
	}

	if wasPending {
		s.ledger.InvalidateBalance(ctx, companyID, l.EmployeeID.String(), l.BenefitTypeID.String(), l.StartDate.Year())
	}
	return mapToResponse(*l), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]LeaveResponse, error) {
	leaves, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

func (s *service) GetByEmployee(ctx context.Context, companyID, employeeID string) ([]LeaveResponse, error) {
	leaves, err := s.repo.FindAllByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(leaves), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (LeaveResponse, error) {
	l, err := s.find(ctx, companyID, id)
	if err != nil {
		return LeaveResponse{}, err
	}
	return mapToResponse(*l), nil
}

func (s *service) find(ctx context.Context, companyID, id string) (*Leave, error) {
	l, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leaveerrors.ErrLeaveNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *service) findOwned(ctx context.Context, companyID, actorID, id string) (*Leave, error) {
	l, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if l.EmployeeID.String() != actorID {
		return nil, leaveerrors.ErrNotOwner
	}
	return l, nil
}
