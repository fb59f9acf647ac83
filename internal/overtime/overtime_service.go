package overtime

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/helderdene/hris-sub010/internal/attendance"
	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"
	"github.com/helderdene/hris-sub010/internal/ledger"
	ledgererrors "github.com/helderdene/hris-sub010/internal/ledger/errors"
	overtimeerrors "github.com/helderdene/hris-sub010/internal/overtime/errors"
	"github.com/helderdene/hris-sub010/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, companyID, actorID string, req CreateOvertimeRequest) (OvertimeResponse, error)
	Submit(ctx context.Context, companyID, actorID, id string) (OvertimeResponse, error)
	Approve(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (OvertimeResponse, error)
	Reject(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (OvertimeResponse, error)
	Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (OvertimeResponse, error)
	GetAll(ctx context.Context, companyID string) ([]OvertimeResponse, error)
	GetByEmployee(ctx context.Context, companyID, employeeID string) ([]OvertimeResponse, error)
	GetByID(ctx context.Context, companyID, id string) (OvertimeResponse, error)
}

type service struct {
	db          *sql.DB
	repo        Repository
	employees   employee.Repository
	benefits    benefit.Repository
	attendances attendance.Repository
	ledger      ledger.Service
	engine      *workflow.Engine
	logger      *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	employees employee.Repository,
	benefits benefit.Repository,
	attendances attendance.Repository,
	ledgerSvc ledger.Service,
	engine *workflow.Engine,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("overtime.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("overtime.service")
	}
	return &service{
		db:          db,
		repo:        repo,
		employees:   employees,
		benefits:    benefits,
		attendances: attendances,
		ledger:      ledgerSvc,
		engine:      engine,
		logger:      l,
	}
}

var maxHoursPerDay = decimal.NewFromInt(24)

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreateOvertimeRequest) (OvertimeResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return OvertimeResponse{}, overtimeerrors.ErrInvalidCompanyID
	}
	employeeUUID, err := uuid.Parse(actorID)
	if err != nil {
		return OvertimeResponse{}, overtimeerrors.ErrInvalidActorID
	}
	benefitTypeUUID, err := uuid.Parse(req.BenefitTypeID)
	if err != nil {
		return OvertimeResponse{}, ledgererrors.ErrBenefitTypeNotFound
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return OvertimeResponse{}, overtimeerrors.ErrInvalidDateFormat
	}
	hours, err := decimal.NewFromString(req.Hours)
	if err != nil {
		return OvertimeResponse{}, overtimeerrors.ErrInvalidHours
	}
	if hours.LessThan(decimal.NewFromFloat(0.5)) || hours.GreaterThan(maxHoursPerDay) {
		return OvertimeResponse{}, overtimeerrors.ErrInvalidHours
	}

	if _, err := s.employees.FindByIDAndCompany(ctx, companyID, actorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OvertimeResponse{}, overtimeerrors.ErrEmployeeNotInCompany
		}
		return OvertimeResponse{}, err
	}
	if _, err := s.benefits.FindByIDAndCompany(ctx, companyID, req.BenefitTypeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OvertimeResponse{}, ledgererrors.ErrBenefitTypeNotFound
		}
		return OvertimeResponse{}, err
	}

	taken, err := s.repo.HasRequestOnDate(ctx, companyID, actorID, date, nil)
	if err != nil {
		return OvertimeResponse{}, err
	}
	if taken {
		return OvertimeResponse{}, overtimeerrors.ErrOvertimeOverlap
	}

	o := &Overtime{
		ID:            uuid.New(),
		CompanyID:     companyUUID,
		EmployeeID:    employeeUUID,
		BenefitTypeID: benefitTypeUUID,
		Date:          date,
		Hours:         hours,
		Reason:        req.Reason,
		State: workflow.State{
			Status:               workflow.StatusDraft,
			CurrentApprovalLevel: 1,
			TotalApprovalLevels:  1,
		},
	}
	if err := s.repo.Create(ctx, o); err != nil {
		s.logger.Error("create overtime persist failed", zap.Error(err))
		return OvertimeResponse{}, err
	}

	return mapToResponse(*o), nil
}

func (s *service) Submit(ctx context.Context, companyID, actorID, id string) (OvertimeResponse, error) {
	o, err := s.findOwned(ctx, companyID, actorID, id)
	if err != nil {
		return OvertimeResponse{}, err
	}

	excludeID := o.ID.String()
	taken, err := s.repo.HasRequestOnDate(ctx, companyID, o.EmployeeID.String(), o.Date, &excludeID)
	if err != nil {
		return OvertimeResponse{}, err
	}
	if taken {
		return OvertimeResponse{}, overtimeerrors.ErrOvertimeOverlap
	}

	emp, err := s.employees.FindByIDAndCompany(ctx, companyID, o.EmployeeID.String())
	if err != nil {
		return OvertimeResponse{}, err
	}
	bt, err := s.benefits.FindByIDAndCompany(ctx, companyID, o.BenefitTypeID.String())
	if err != nil {
		return OvertimeResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return OvertimeResponse{}, err
	}
	defer tx.Rollback()

	if _, err := s.engine.Submit(ctx, tx, workflow.SubmitInput{
		Kind:        workflow.KindOvertime,
		RequestID:   o.ID,
		Requester:   emp,
		BenefitType: bt,
		Quantity:    o.Hours,
		Year:        o.Date.Year(),
	}, &o.State); err != nil {
		s.logger.Warn("submit overtime failed",
			zap.String("overtime_id", o.ID.String()),
			zap.Error(err),
		)
		return OvertimeResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, o); err != nil {
		return OvertimeResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return OvertimeResponse{}, err
	}

	s.ledger.InvalidateBalance(ctx, companyID, o.EmployeeID.String(), o.BenefitTypeID.String(), o.Date.Year())
	return mapToResponse(*o), nil
}

func (s *service) Approve(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (OvertimeResponse, error) {
	o, err := s.find(ctx, companyID, id)
	if err != nil {
		return OvertimeResponse{}, err
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return OvertimeResponse{}, overtimeerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return OvertimeResponse{}, err
	}
	defer tx.Rollback()

	var comment *string
	if req.Comment != "" {
		comment = &req.Comment
	}
	outcome, err := s.engine.Approve(ctx, tx, workflow.DecideInput{
		Kind:        workflow.KindOvertime,
		RequestID:   o.ID,
		CompanyID:   o.CompanyID,
		RequesterID: o.EmployeeID,
		ApproverID:  actorUUID,
		Comment:     comment,
		Quantity:    o.Hours,
	}, &o.State)
	if err != nil {
		return OvertimeResponse{}, err
	}

	if outcome.Final {
		s.linkTimeRecord(ctx, tx, o)
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, o); err != nil {
		return OvertimeResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return OvertimeResponse{}, err
	}

	if outcome.Final {
		s.ledger.InvalidateBalance(ctx, companyID, o.EmployeeID.String(), o.BenefitTypeID.String(), o.Date.Year())
	}
	s.logger.Info("overtime approval recorded",
		zap.String("overtime_id", o.ID.String()),
		zap.Bool("final", outcome.Final),
	)
	return mapToResponse(*o), nil
}

// linkTimeRecord stamps the matching daily time record and cross-links both
// rows. A missing record is logged, not an error: the employee may simply not
// have clocked in yet for that date.
func (s *service) linkTimeRecord(ctx context.Context, tx *sql.Tx, o *Overtime) {
	dtr, err := s.attendances.FindByEmployeeAndDate(ctx, o.CompanyID.String(), o.EmployeeID.String(), o.Date)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("time record lookup failed",
				zap.String("overtime_id", o.ID.String()),
				zap.Error(err),
			)
		} else {
			s.logger.Warn("no time record to link for approved overtime",
				zap.String("overtime_id", o.ID.String()),
				zap.String("date", o.Date.Format("2006-01-02")),
			)
		}
		return
	}

	if err := s.attendances.WithTx(tx).MarkOvertimeApproved(ctx, dtr.ID.String(), o.ID.String(), o.Hours); err != nil {
		s.logger.Warn("time record cross-link failed",
			zap.String("overtime_id", o.ID.String()),
			zap.String("time_record_id", dtr.ID.String()),
			zap.Error(err),
		)
		return
	}
	recordID := dtr.ID
	o.TimeRecordID = &recordID
}

func (s *service) Reject(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (OvertimeResponse, error) {
	if req.Reason == "" {
		return OvertimeResponse{}, overtimeerrors.ErrReasonRequired
	}
	o, err := s.find(ctx, companyID, id)
	if err != nil {
		return OvertimeResponse{}, err
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return OvertimeResponse{}, overtimeerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return OvertimeResponse{}, err
	}
	defer tx.Rollback()

	if err := s.engine.Reject(ctx, tx, workflow.DecideInput{
		Kind:        workflow.KindOvertime,
		RequestID:   o.ID,
		CompanyID:   o.CompanyID,
		RequesterID: o.EmployeeID,
		ApproverID:  actorUUID,
		Quantity:    o.Hours,
	}, req.Reason, &o.State); err != nil {
		return OvertimeResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, o); err != nil {
		return OvertimeResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return OvertimeResponse{}, err
	}

	s.ledger.InvalidateBalance(ctx, companyID, o.EmployeeID.String(), o.BenefitTypeID.String(), o.Date.Year())
	return mapToResponse(*o), nil
}

func (s *service) Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (OvertimeResponse, error) {
	o, err := s.findOwned(ctx, companyID, actorID, id)
	if err != nil {
		return OvertimeResponse{}, err
	}

	wasPending := o.Status == workflow.StatusPending

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return OvertimeResponse{}, err
	}
	defer tx.Rollback()

	if err := s.engine.Cancel(ctx, tx, workflow.CancelInput{
		Kind:        workflow.KindOvertime,
		RequestID:   o.ID,
		CompanyID:   o.CompanyID,
		RequesterID: o.EmployeeID,
		Quantity:    o.Hours,
		Reason:      req.Reason,
	}, &o.State); err != nil {
		return OvertimeResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, o); err != nil {
		return OvertimeResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return OvertimeResponse{}, err
	}

	if wasPending {
		s.ledger.InvalidateBalance(ctx, companyID, o.EmployeeID.String(), o.BenefitTypeID.String(), o.Date.Year())
	}
	return mapToResponse(*o), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]OvertimeResponse, error) {
	rows, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func (s *service) GetByEmployee(ctx context.Context, companyID, employeeID string) ([]OvertimeResponse, error) {
	rows, err := s.repo.FindAllByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (OvertimeResponse, error) {
	o, err := s.find(ctx, companyID, id)
	if err != nil {
		return OvertimeResponse{}, err
	}
	return mapToResponse(*o), nil
}

func (s *service) find(ctx context.Context, companyID, id string) (*Overtime, error) {
	o, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, overtimeerrors.ErrOvertimeNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *service) findOwned(ctx context.Context, companyID, actorID, id string) (*Overtime, error) {
	o, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if o.EmployeeID.String() != actorID {
		return nil, overtimeerrors.ErrNotOwner
	}
	return o, nil
}
