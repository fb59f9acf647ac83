package requisition

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/helderdene/hris-sub010/internal/employee"
	"github.com/helderdene/hris-sub010/internal/jobposting"
	requisitionerrors "github.com/helderdene/hris-sub010/internal/requisition/errors"
	"github.com/helderdene/hris-sub010/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, companyID, actorID string, req CreateRequisitionRequest) (RequisitionResponse, error)
	Submit(ctx context.Context, companyID, actorID, id string) (RequisitionResponse, error)
	Approve(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (RequisitionResponse, error)
	Reject(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (RequisitionResponse, error)
	Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (RequisitionResponse, error)
	GetAll(ctx context.Context, companyID string) ([]RequisitionResponse, error)
	GetByEmployee(ctx context.Context, companyID, employeeID string) ([]RequisitionResponse, error)
	GetByID(ctx context.Context, companyID, id string) (RequisitionResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	employees employee.Repository
	postings  jobposting.Repository
	engine    *workflow.Engine
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	employees employee.Repository,
	postings jobposting.Repository,
	engine *workflow.Engine,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("requisition.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("requisition.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		employees: employees,
		postings:  postings,
		engine:    engine,
		logger:    l,
	}
}

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreateRequisitionRequest) (RequisitionResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return RequisitionResponse{}, requisitionerrors.ErrInvalidCompanyID
	}
	employeeUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RequisitionResponse{}, requisitionerrors.ErrInvalidActorID
	}
	if req.Headcount < 1 || req.Headcount > 100 {
		return RequisitionResponse{}, requisitionerrors.ErrInvalidHeadcount
	}

	emp, err := s.employees.FindByIDAndCompany(ctx, companyID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequisitionResponse{}, requisitionerrors.ErrInvalidActorID
		}
		return RequisitionResponse{}, err
	}

	var departmentID *uuid.UUID
	if req.DepartmentID != nil {
		parsed, err := uuid.Parse(*req.DepartmentID)
		if err != nil {
			return RequisitionResponse{}, requisitionerrors.ErrInvalidCompanyID
		}
		departmentID = &parsed
	} else {
		// Default to the requester's own department.
		departmentID = emp.DepartmentID
	}

	rq := &Requisition{
		ID:            uuid.New(),
		CompanyID:     companyUUID,
		EmployeeID:    employeeUUID,
		DepartmentID:  departmentID,
		PositionTitle: req.PositionTitle,
		Headcount:     req.Headcount,
		Justification: req.Justification,
		State: workflow.State{
			Status:               workflow.StatusDraft,
			CurrentApprovalLevel: 1,
			TotalApprovalLevels:  1,
		},
	}
	if err := s.repo.Create(ctx, rq); err != nil {
		s.logger.Error("create requisition persist failed", zap.Error(err))
		return RequisitionResponse{}, err
	}

	return mapToResponse(*rq), nil
}

func (s *service) Submit(ctx context.Context, companyID, actorID, id string) (RequisitionResponse, error) {
	rq, err := s.findOwned(ctx, companyID, actorID, id)
	if err != nil {
		return RequisitionResponse{}, err
	}

	emp, err := s.employees.FindByIDAndCompany(ctx, companyID, rq.EmployeeID.String())
	if err != nil {
		return RequisitionResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RequisitionResponse{}, err
	}
	defer tx.Rollback()

	// Requisitions never draw on a balance: no BenefitType, no reservation.
	if _, err := s.engine.Submit(ctx, tx, workflow.SubmitInput{
		Kind:      workflow.KindRequisition,
		RequestID: rq.ID,
		Requester: emp,
	}, &rq.State); err != nil {
		s.logger.Warn("submit requisition failed",
			zap.String("requisition_id", rq.ID.String()),
			zap.Error(err),
		)
		return RequisitionResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, rq); err != nil {
		return RequisitionResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return RequisitionResponse{}, err
	}
	return mapToResponse(*rq), nil
}

func (s *service) Approve(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (RequisitionResponse, error) {
	rq, err := s.find(ctx, companyID, id)
	if err != nil {
		return RequisitionResponse{}, err
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RequisitionResponse{}, requisitionerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RequisitionResponse{}, err
	}
	defer tx.Rollback()

	var comment *string
	if req.Comment != "" {
		comment = &req.Comment
	}
	outcome, err := s.engine.Approve(ctx, tx, workflow.DecideInput{
		Kind:        workflow.KindRequisition,
		RequestID:   rq.ID,
		CompanyID:   rq.CompanyID,
		RequesterID: rq.EmployeeID,
		ApproverID:  actorUUID,
		Comment:     comment,
	}, &rq.State)
	if err != nil {
		return RequisitionResponse{}, err
	}

	if outcome.Final {
		if err := s.createPosting(ctx, tx, rq); err != nil {
			// Unlike the overtime DTR link, the posting IS the point of the
			// requisition: fail the approval rather than approve silently
			// without one.
			return RequisitionResponse{}, err
		}
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, rq); err != nil {
		return RequisitionResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return RequisitionResponse{}, err
	}

	s.logger.Info("requisition approval recorded",
		zap.String("requisition_id", rq.ID.String()),
		zap.Bool("final", outcome.Final),
	)
	return mapToResponse(*rq), nil
}

func (s *service) createPosting(ctx context.Context, tx *sql.Tx, rq *Requisition) error {
	posting := &jobposting.JobPosting{
		ID:            uuid.New(),
		CompanyID:     rq.CompanyID,
		RequisitionID: rq.ID,
		DepartmentID:  rq.DepartmentID,
		Title:         rq.PositionTitle,
		Headcount:     rq.Headcount,
		Description:   rq.Justification,
		Status:        jobposting.StatusOpen,
		PostedAt:      time.Now().UTC(),
	}
	if err := s.postings.WithTx(tx).Create(ctx, posting); err != nil {
		return err
	}
	postingID := posting.ID
	rq.JobPostingID = &postingID
	return nil
}

func (s *service) Reject(ctx context.Context, companyID, actorID, id string, req DecisionRequest) (RequisitionResponse, error) {
	if req.Reason == "" {
		return RequisitionResponse{}, requisitionerrors.ErrReasonRequired
	}
	rq, err := s.find(ctx, companyID, id)
	if err != nil {
		return RequisitionResponse{}, err
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RequisitionResponse{}, requisitionerrors.ErrInvalidActorID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RequisitionResponse{}, err
	}
	defer tx.Rollback()

	if err := s.engine.Reject(ctx, tx, workflow.DecideInput{
		Kind:        workflow.KindRequisition,
		RequestID:   rq.ID,
		CompanyID:   rq.CompanyID,
		RequesterID: rq.EmployeeID,
		ApproverID:  actorUUID,
	}, req.Reason, &rq.State); err != nil {
		return RequisitionResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, rq); err != nil {
		return RequisitionResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return RequisitionResponse{}, err
	}
	return mapToResponse(*rq), nil
}

func (s *service) Cancel(ctx context.Context, companyID, actorID, id string, req CancelRequest) (RequisitionResponse, error) {
	rq, err := s.findOwned(ctx, companyID, actorID, id)
	if err != nil {
		return RequisitionResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RequisitionResponse{}, err
	}
	defer tx.Rollback()

	if err := s.engine.Cancel(ctx, tx, workflow.CancelInput{
		Kind:        workflow.KindRequisition,
		RequestID:   rq.ID,
		CompanyID:   rq.CompanyID,
		RequesterID: rq.EmployeeID,
		Reason:      req.Reason,
	}, &rq.State); err != nil {
		return RequisitionResponse{}, err
	}

	if err := s.repo.WithTx(tx).UpdateState(ctx, rq); err != nil {
		return RequisitionResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return RequisitionResponse{}, err
	}
	return mapToResponse(*rq), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]RequisitionResponse, error) {
	rows, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func (s *service) GetByEmployee(ctx context.Context, companyID, employeeID string) ([]RequisitionResponse, error) {
	rows, err := s.repo.FindAllByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	return mapToListResponse(rows), nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (RequisitionResponse, error) {
	rq, err := s.find(ctx, companyID, id)
	if err != nil {
		return RequisitionResponse{}, err
	}
	return mapToResponse(*rq), nil
}

func (s *service) find(ctx context.Context, companyID, id string) (*Requisition, error) {
	rq, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, requisitionerrors.ErrRequisitionNotFound
		}
		return nil, err
	}
	return rq, nil
}

func (s *service) findOwned(ctx context.Context, companyID, actorID, id string) (*Requisition, error) {
	rq, err := s.find(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if rq.EmployeeID.String() != actorID {
		return nil, requisitionerrors.ErrNotOwner
	}
	return rq, nil
}
