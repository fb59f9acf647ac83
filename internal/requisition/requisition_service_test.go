package requisition_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/helderdene/hris-sub010/internal/approval"
	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"
	"github.com/helderdene/hris-sub010/internal/jobposting"
	"github.com/helderdene/hris-sub010/internal/ledger"
	"github.com/helderdene/hris-sub010/internal/requisition"
	requisitionerrors "github.com/helderdene/hris-sub010/internal/requisition/errors"
	"github.com/helderdene/hris-sub010/internal/workflow"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeRequisitionRepository struct {
	rows map[string]*requisition.Requisition
}

func newFakeRequisitionRepository() *fakeRequisitionRepository {
	return &fakeRequisitionRepository{rows: map[string]*requisition.Requisition{}}
}

func (f *fakeRequisitionRepository) WithTx(tx *sql.Tx) requisition.Repository { return f }

func (f *fakeRequisitionRepository) Create(ctx context.Context, rq *requisition.Requisition) error {
	f.rows[rq.ID.String()] = rq
	return nil
}

func (f *fakeRequisitionRepository) FindAllByCompany(ctx context.Context, companyID string) ([]requisition.Requisition, error) {
	var out []requisition.Requisition
	for _, rq := range f.rows {
		out = append(out, *rq)
	}
	return out, nil
}

func (f *fakeRequisitionRepository) FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]requisition.Requisition, error) {
	var out []requisition.Requisition
	for _, rq := range f.rows {
		if rq.EmployeeID.String() == employeeID {
			out = append(out, *rq)
		}
	}
	return out, nil
}

func (f *fakeRequisitionRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*requisition.Requisition, error) {
	if rq, ok := f.rows[id]; ok {
		copy := *rq
		return &copy, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRequisitionRepository) UpdateState(ctx context.Context, rq *requisition.Requisition) error {
	f.rows[rq.ID.String()] = rq
	return nil
}

type fakePostingRepository struct {
	createFn func(ctx context.Context, p *jobposting.JobPosting) error
	created  []jobposting.JobPosting
}

func (f *fakePostingRepository) WithTx(tx *sql.Tx) jobposting.Repository { return f }

func (f *fakePostingRepository) Create(ctx context.Context, p *jobposting.JobPosting) error {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}
	f.created = append(f.created, *p)
	return nil
}

func (f *fakePostingRepository) FindAllByCompany(ctx context.Context, companyID string) ([]jobposting.JobPosting, error) {
	return f.created, nil
}

func (f *fakePostingRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*jobposting.JobPosting, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeEmployeeRepository struct {
	employees map[string]*employee.Employee
}

func (f *fakeEmployeeRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*employee.Employee, error) {
	if e, ok := f.employees[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepository) FindAllActiveByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepository) FindDepartmentHead(ctx context.Context, companyID, departmentID, excludeID string) (*employee.Employee, error) {
	return nil, gorm.ErrRecordNotFound
}

// noLedger fails the test if the engine ever touches the ledger for a
// requisition.
type noLedger struct {
	t *testing.T
}

func (n *noLedger) EnsureEntryTx(ctx context.Context, tx *sql.Tx, emp *employee.Employee, bt *benefit.BenefitType, year int) (*ledger.LedgerEntry, error) {
	n.t.Fatal("requisition must not open a ledger entry")
	return nil, nil
}

func (n *noLedger) ReserveTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
	n.t.Fatal("requisition must not reserve balance")
	return nil
}

func (n *noLedger) ReleaseTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
	n.t.Fatal("requisition must not release balance")
	return nil
}

func (n *noLedger) CommitReservationTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
	n.t.Fatal("requisition must not commit balance")
	return nil
}

func (n *noLedger) GetBalance(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (ledger.BalanceResponse, error) {
	return ledger.BalanceResponse{}, nil
}

func (n *noLedger) InvalidateBalance(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) {
}

func (n *noLedger) RecordAdjustment(ctx context.Context, companyID, actorID string, req ledger.AdjustmentRequest) (ledger.AdjustmentResponse, error) {
	return ledger.AdjustmentResponse{}, nil
}

func (n *noLedger) ListAdjustments(ctx context.Context, companyID, entryID string) ([]ledger.AdjustmentResponse, error) {
	return nil, nil
}

func (n *noLedger) RunMonthlyAccrual(ctx context.Context, companyID string, now time.Time) (ledger.AccrualSummary, error) {
	return ledger.AccrualSummary{}, nil
}

func (n *noLedger) RollForwardYear(ctx context.Context, companyID string, fromYear int, now time.Time) (ledger.RollForwardSummary, error) {
	return ledger.RollForwardSummary{}, nil
}

func (n *noLedger) ExpireCarryOver(ctx context.Context, companyID string, now time.Time) (int, error) {
	return 0, nil
}

type fakeApprovalRepository struct {
	records []approval.ApprovalRecord
}

func (f *fakeApprovalRepository) WithTx(tx *sql.Tx) approval.Repository { return f }

func (f *fakeApprovalRepository) CreateBatch(ctx context.Context, records []approval.ApprovalRecord) error {
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeApprovalRepository) Decide(ctx context.Context, id, decision string, comment *string) (int64, error) {
	for i := range f.records {
		if f.records[i].ID.String() == id && f.records[i].Decision == approval.DecisionPending {
			f.records[i].Decision = decision
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeApprovalRepository) ListByRequest(ctx context.Context, companyID, requestID string) ([]approval.ApprovalRecord, error) {
	return f.records, nil
}

func (f *fakeApprovalRepository) ListPendingByRequest(ctx context.Context, companyID, requestID string) ([]approval.ApprovalRecord, error) {
	var pending []approval.ApprovalRecord
	for _, rec := range f.records {
		if rec.Decision == approval.DecisionPending {
			pending = append(pending, rec)
		}
	}
	return pending, nil
}

func (f *fakeApprovalRepository) FindPendingForApprover(ctx context.Context, companyID, requestID, approverID string) (*approval.ApprovalRecord, error) {
	for i := range f.records {
		rec := &f.records[i]
		if rec.ApproverID.String() == approverID && rec.Decision == approval.DecisionPending {
			return rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeApprovalRepository) ListPendingByApprover(ctx context.Context, companyID, approverID string) ([]approval.ApprovalRecord, error) {
	return nil, nil
}

func (f *fakeApprovalRepository) DeleteByRequest(ctx context.Context, requestID string) error {
	return nil
}

type fakeResolver struct {
	chain []approval.Approver
}

func (f *fakeResolver) ResolveChain(ctx context.Context, emp *employee.Employee, maxLevels int) ([]approval.Approver, error) {
	return f.chain, nil
}

func (f *fakeResolver) FallbackApprover(ctx context.Context, emp *employee.Employee) (*employee.Employee, error) {
	return nil, nil
}

func (f *fakeResolver) CanApprove(ctx context.Context, approverID string, applicant *employee.Employee) (bool, error) {
	return false, nil
}

type requisitionServiceDeps struct {
	sqlMock  sqlmock.Sqlmock
	service  requisition.Service
	repo     *fakeRequisitionRepository
	postings *fakePostingRepository

	companyID    uuid.UUID
	employeeID   uuid.UUID
	departmentID uuid.UUID
	supervisor   uuid.UUID
}

func setupRequisitionServiceTest(t *testing.T) *requisitionServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	companyID := uuid.New()
	employeeID := uuid.New()
	departmentID := uuid.New()
	supervisorID := uuid.New()

	deps := &requisitionServiceDeps{
		sqlMock:      sqlMock,
		repo:         newFakeRequisitionRepository(),
		postings:     &fakePostingRepository{},
		companyID:    companyID,
		employeeID:   employeeID,
		departmentID: departmentID,
		supervisor:   supervisorID,
	}
	employees := &fakeEmployeeRepository{employees: map[string]*employee.Employee{
		employeeID.String(): {
			ID:               employeeID,
			CompanyID:        companyID,
			DepartmentID:     &departmentID,
			EmploymentStatus: employee.StatusActive,
		},
	}}
	resolver := &fakeResolver{chain: []approval.Approver{
		{EmployeeID: supervisorID, Type: approval.ApproverSupervisor, Level: 1},
	}}

	engine := workflow.NewEngine(&noLedger{t: t}, resolver, &fakeApprovalRepository{}, nil)
	deps.service = requisition.NewService(db, deps.repo, employees, deps.postings, engine)
	return deps
}

func (d *requisitionServiceDeps) submitted(t *testing.T) requisition.RequisitionResponse {
	t.Helper()
	ctx := context.Background()
	draft, err := d.service.Create(ctx, d.companyID.String(), d.employeeID.String(), requisition.CreateRequisitionRequest{
		PositionTitle: "Backend Engineer",
		Headcount:     2,
		Justification: "team is understaffed",
	})
	assert.NoError(t, err)

	d.sqlMock.ExpectBegin()
	d.sqlMock.ExpectCommit()
	pending, err := d.service.Submit(ctx, d.companyID.String(), d.employeeID.String(), draft.ID)
	assert.NoError(t, err)
	return pending
}

func TestRequisitionService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success inherits requester department", func(t *testing.T) {
		deps := setupRequisitionServiceTest(t)
		resp, err := deps.service.Create(ctx, deps.companyID.String(), deps.employeeID.String(), requisition.CreateRequisitionRequest{
			PositionTitle: "Backend Engineer",
			Headcount:     2,
		})
		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusDraft, resp.Status)
		assert.NotNil(t, resp.DepartmentID)
		assert.Equal(t, deps.departmentID.String(), *resp.DepartmentID)
	})

	t.Run("negative headcount out of range", func(t *testing.T) {
		deps := setupRequisitionServiceTest(t)
		for _, headcount := range []int{0, -1, 101} {
			_, err := deps.service.Create(ctx, deps.companyID.String(), deps.employeeID.String(), requisition.CreateRequisitionRequest{
				PositionTitle: "Backend Engineer",
				Headcount:     headcount,
			})
			assert.ErrorIs(t, err, requisitionerrors.ErrInvalidHeadcount)
		}
	})
}

func TestRequisitionService_SubmitAndApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("submit never touches the ledger", func(t *testing.T) {
		deps := setupRequisitionServiceTest(t)
		pending := deps.submitted(t)

		assert.Equal(t, workflow.StatusPending, pending.Status)
		assert.Nil(t, pending.JobPostingID)
	})

	t.Run("final approval creates the job posting", func(t *testing.T) {
		deps := setupRequisitionServiceTest(t)
		pending := deps.submitted(t)

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()
		resp, err := deps.service.Approve(ctx, deps.companyID.String(), deps.supervisor.String(), pending.ID, requisition.DecisionRequest{Comment: "hire away"})
		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusApproved, resp.Status)
		assert.NotNil(t, resp.JobPostingID)

		assert.Len(t, deps.postings.created, 1)
		posting := deps.postings.created[0]
		assert.Equal(t, *resp.JobPostingID, posting.ID.String())
		assert.Equal(t, pending.ID, posting.RequisitionID.String())
		assert.Equal(t, "Backend Engineer", posting.Title)
		assert.Equal(t, 2, posting.Headcount)
		assert.Equal(t, jobposting.StatusOpen, posting.Status)
	})

	t.Run("negative posting failure rolls back the approval", func(t *testing.T) {
		deps := setupRequisitionServiceTest(t)
		pending := deps.submitted(t)

		boom := errors.New("postings table unavailable")
		deps.postings.createFn = func(ctx context.Context, p *jobposting.JobPosting) error {
			return boom
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()
		_, err := deps.service.Approve(ctx, deps.companyID.String(), deps.supervisor.String(), pending.ID, requisition.DecisionRequest{})
		assert.ErrorIs(t, err, boom)

		got, err := deps.service.GetByID(ctx, deps.companyID.String(), pending.ID)
		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusPending, got.Status)
		assert.Nil(t, got.JobPostingID)
	})
}

func TestRequisitionService_RejectAndCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("negative reject without a reason", func(t *testing.T) {
		deps := setupRequisitionServiceTest(t)
		pending := deps.submitted(t)

		_, err := deps.service.Reject(ctx, deps.companyID.String(), deps.supervisor.String(), pending.ID, requisition.DecisionRequest{})
		assert.ErrorIs(t, err, requisitionerrors.ErrReasonRequired)
	})

	t.Run("owner cancels without ledger involvement", func(t *testing.T) {
		deps := setupRequisitionServiceTest(t)
		pending := deps.submitted(t)

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()
		resp, err := deps.service.Cancel(ctx, deps.companyID.String(), deps.employeeID.String(), pending.ID, requisition.CancelRequest{Reason: "budget cut"})
		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusCancelled, resp.Status)
		assert.NotNil(t, resp.CancelReason)
	})
}
