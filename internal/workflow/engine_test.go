package workflow_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/helderdene/hris-sub010/internal/approval"
	approvalerrors "github.com/helderdene/hris-sub010/internal/approval/errors"
	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"
	"github.com/helderdene/hris-sub010/internal/ledger"
	"github.com/helderdene/hris-sub010/internal/notify"
	"github.com/helderdene/hris-sub010/internal/shared/apperror"
	"github.com/helderdene/hris-sub010/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeLedgerService struct {
	ensureEntryTxFn       func(ctx context.Context, tx *sql.Tx, emp *employee.Employee, bt *benefit.BenefitType, year int) (*ledger.LedgerEntry, error)
	reserveTxFn           func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error
	releaseTxFn           func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error
	commitReservationTxFn func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error
}

func (f *fakeLedgerService) EnsureEntryTx(ctx context.Context, tx *sql.Tx, emp *employee.Employee, bt *benefit.BenefitType, year int) (*ledger.LedgerEntry, error) {
	if f.ensureEntryTxFn != nil {
		return f.ensureEntryTxFn(ctx, tx, emp, bt, year)
	}
	return &ledger.LedgerEntry{ID: uuid.New(), Year: year}, nil
}

func (f *fakeLedgerService) ReserveTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
	if f.reserveTxFn != nil {
		return f.reserveTxFn(ctx, tx, entryID, days)
	}
	return nil
}

func (f *fakeLedgerService) ReleaseTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
	if f.releaseTxFn != nil {
		return f.releaseTxFn(ctx, tx, entryID, days)
	}
	return nil
}

func (f *fakeLedgerService) CommitReservationTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
	if f.commitReservationTxFn != nil {
		return f.commitReservationTxFn(ctx, tx, entryID, days)
	}
	return nil
}

func (f *fakeLedgerService) GetBalance(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (ledger.BalanceResponse, error) {
	return ledger.BalanceResponse{}, nil
}

func (f *fakeLedgerService) InvalidateBalance(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) {
}

func (f *fakeLedgerService) RecordAdjustment(ctx context.Context, companyID, actorID string, req ledger.AdjustmentRequest) (ledger.AdjustmentResponse, error) {
	return ledger.AdjustmentResponse{}, nil
}

func (f *fakeLedgerService) ListAdjustments(ctx context.Context, companyID, entryID string) ([]ledger.AdjustmentResponse, error) {
	return nil, nil
}

func (f *fakeLedgerService) RunMonthlyAccrual(ctx context.Context, companyID string, now time.Time) (ledger.AccrualSummary, error) {
	return ledger.AccrualSummary{}, nil
}

func (f *fakeLedgerService) RollForwardYear(ctx context.Context, companyID string, fromYear int, now time.Time) (ledger.RollForwardSummary, error) {
	return ledger.RollForwardSummary{}, nil
}

func (f *fakeLedgerService) ExpireCarryOver(ctx context.Context, companyID string, now time.Time) (int, error) {
	return 0, nil
}

type fakeApprovalRepository struct {
	records []approval.ApprovalRecord

	decideFn func(ctx context.Context, id, decision string, comment *string) (int64, error)
	deleted  []string
}

func (f *fakeApprovalRepository) WithTx(tx *sql.Tx) approval.Repository { return f }

func (f *fakeApprovalRepository) CreateBatch(ctx context.Context, records []approval.ApprovalRecord) error {
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeApprovalRepository) Decide(ctx context.Context, id, decision string, comment *string) (int64, error) {
	if f.decideFn != nil {
		return f.decideFn(ctx, id, decision, comment)
	}
	for i := range f.records {
		if f.records[i].ID.String() == id && f.records[i].Decision == approval.DecisionPending {
			now := time.Now()
			f.records[i].Decision = decision
			f.records[i].Comment = comment
			f.records[i].DecidedAt = &now
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
	f.deleted = append(f.deleted, requestID)
	return nil
}

type fakeResolver struct {
	chain    []approval.Approver
	fallback *employee.Employee
}

func (f *fakeResolver) ResolveChain(ctx context.Context, emp *employee.Employee, maxLevels int) ([]approval.Approver, error) {
	return f.chain, nil
}

func (f *fakeResolver) FallbackApprover(ctx context.Context, emp *employee.Employee) (*employee.Employee, error) {
	return f.fallback, nil
}

func (f *fakeResolver) CanApprove(ctx context.Context, approverID string, applicant *employee.Employee) (bool, error) {
	return false, nil
}

type recordingNotifier struct {
	sent []notify.Notification
}

func (r *recordingNotifier) NotifyTx(ctx context.Context, tx *sql.Tx, n notify.Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type engineDeps struct {
	engine    *workflow.Engine
	ledger    *fakeLedgerService
	approvals *fakeApprovalRepository
	resolver  *fakeResolver
	notifier  *recordingNotifier
}

func setupEngine(t *testing.T, chain []approval.Approver) *engineDeps {
	t.Helper()
	deps := &engineDeps{
		ledger:    &fakeLedgerService{},
		approvals: &fakeApprovalRepository{},
		resolver:  &fakeResolver{chain: chain},
		notifier:  &recordingNotifier{},
	}
	deps.engine = workflow.NewEngine(deps.ledger, deps.resolver, deps.approvals, deps.notifier)
	return deps
}

func requester(t *testing.T) *employee.Employee {
	t.Helper()
	return &employee.Employee{
		ID:               uuid.New(),
		CompanyID:        uuid.New(),
		EmploymentStatus: employee.StatusActive,
	}
}

func twoLevelChain() []approval.Approver {
	return []approval.Approver{
		{EmployeeID: uuid.New(), Type: approval.ApproverSupervisor, Level: 1},
		{EmployeeID: uuid.New(), Type: approval.ApproverManager, Level: 2},
	}
}

func leaveBenefitType() *benefit.BenefitType {
	return &benefit.BenefitType{
		ID:                       uuid.New(),
		AccrualMethod:            benefit.AccrualAnnual,
		DefaultAnnualEntitlement: decimal.NewFromInt(12),
	}
}

func TestEngine_SubmitApproveApprove(t *testing.T) {
	ctx := context.Background()
	chain := twoLevelChain()
	deps := setupEngine(t, chain)
	emp := requester(t)
	requestID := uuid.New()
	qty := decimal.NewFromFloat(2.5)

	var reserved, committed decimal.Decimal
	deps.ledger.reserveTxFn = func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
		reserved = days
		return nil
	}
	deps.ledger.commitReservationTxFn = func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
		committed = days
		return nil
	}

	st := &workflow.State{Status: workflow.StatusDraft}
	records, err := deps.engine.Submit(ctx, nil, workflow.SubmitInput{
		Kind:        workflow.KindLeave,
		RequestID:   requestID,
		Requester:   emp,
		BenefitType: leaveBenefitType(),
		Quantity:    qty,
		Year:        2026,
	}, st)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, workflow.StatusPending, st.Status)
	assert.Equal(t, 1, st.CurrentApprovalLevel)
	assert.Equal(t, 2, st.TotalApprovalLevels)
	assert.NotNil(t, st.SubmittedAt)
	assert.NotNil(t, st.LedgerEntryID)
	assert.True(t, reserved.Equal(qty))

	// First approver was notified of the submission.
	assert.Len(t, deps.notifier.sent, 1)
	assert.Equal(t, chain[0].EmployeeID, deps.notifier.sent[0].RecipientID)

	decide := workflow.DecideInput{
		Kind:        workflow.KindLeave,
		RequestID:   requestID,
		CompanyID:   emp.CompanyID,
		RequesterID: emp.ID,
		Quantity:    qty,
	}

	decide.ApproverID = chain[0].EmployeeID
	outcome, err := deps.engine.Approve(ctx, nil, decide, st)
	assert.NoError(t, err)
	assert.False(t, outcome.Final)
	assert.NotNil(t, outcome.NextApprover)
	assert.Equal(t, chain[1].EmployeeID, *outcome.NextApprover)
	assert.Equal(t, 2, st.CurrentApprovalLevel)
	assert.Equal(t, workflow.StatusPending, st.Status)
	assert.True(t, committed.IsZero())

	decide.ApproverID = chain[1].EmployeeID
	outcome, err = deps.engine.Approve(ctx, nil, decide, st)
	assert.NoError(t, err)
	assert.True(t, outcome.Final)
	assert.Equal(t, workflow.StatusApproved, st.Status)
	assert.NotNil(t, st.ApprovedAt)
	assert.True(t, committed.Equal(qty))

	// submitted → advanced → approved.
	assert.Len(t, deps.notifier.sent, 3)
	assert.Equal(t, emp.ID, deps.notifier.sent[2].RecipientID)
}

func TestEngine_Submit_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("negative submit from pending", func(t *testing.T) {
		deps := setupEngine(t, twoLevelChain())
		st := &workflow.State{Status: workflow.StatusPending}
		_, err := deps.engine.Submit(ctx, nil, workflow.SubmitInput{Requester: requester(t)}, st)
		var appErr *apperror.AppError
		assert.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeInvalidState, appErr.Code)
	})

	t.Run("negative no approver and no fallback", func(t *testing.T) {
		deps := setupEngine(t, nil)
		st := &workflow.State{Status: workflow.StatusDraft}
		_, err := deps.engine.Submit(ctx, nil, workflow.SubmitInput{
			Kind:      workflow.KindLeave,
			RequestID: uuid.New(),
			Requester: requester(t),
		}, st)
		assert.ErrorIs(t, err, approvalerrors.ErrNoApproverFound)
		assert.Equal(t, workflow.StatusDraft, st.Status)
	})

	t.Run("empty chain falls back to department head", func(t *testing.T) {
		deps := setupEngine(t, nil)
		head := requester(t)
		deps.resolver.fallback = head

		st := &workflow.State{Status: workflow.StatusDraft}
		records, err := deps.engine.Submit(ctx, nil, workflow.SubmitInput{
			Kind:      workflow.KindLeave,
			RequestID: uuid.New(),
			Requester: requester(t),
		}, st)
		assert.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, head.ID, records[0].ApproverID)
		assert.Equal(t, approval.ApproverDepartmentHead, records[0].ApproverType)
		assert.Equal(t, 1, st.TotalApprovalLevels)
	})

	t.Run("negative insufficient balance reported before missing approver", func(t *testing.T) {
		// No chain, no fallback AND no balance: the balance guard runs first,
		// so the requester is told about the balance, not the org chart.
		deps := setupEngine(t, nil)
		insufficient := apperror.New(apperror.CodeInsufficientBalance, "insufficient balance", 422)
		deps.ledger.reserveTxFn = func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
			return insufficient
		}

		st := &workflow.State{Status: workflow.StatusDraft}
		_, err := deps.engine.Submit(ctx, nil, workflow.SubmitInput{
			Kind:        workflow.KindLeave,
			RequestID:   uuid.New(),
			Requester:   requester(t),
			BenefitType: leaveBenefitType(),
			Quantity:    decimal.NewFromInt(5),
			Year:        2026,
		}, st)
		assert.ErrorIs(t, err, insufficient)
		assert.NotErrorIs(t, err, approvalerrors.ErrNoApproverFound)
		assert.Equal(t, workflow.StatusDraft, st.Status)
	})

	t.Run("negative insufficient balance leaves state untouched", func(t *testing.T) {
		deps := setupEngine(t, twoLevelChain())
		insufficient := apperror.New(apperror.CodeInsufficientBalance, "insufficient balance", 422)
		deps.ledger.reserveTxFn = func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
			return insufficient
		}

		st := &workflow.State{Status: workflow.StatusDraft}
		_, err := deps.engine.Submit(ctx, nil, workflow.SubmitInput{
			Kind:        workflow.KindLeave,
			RequestID:   uuid.New(),
			Requester:   requester(t),
			BenefitType: leaveBenefitType(),
			Quantity:    decimal.NewFromInt(5),
			Year:        2026,
		}, st)
		assert.ErrorIs(t, err, insufficient)
		assert.Equal(t, workflow.StatusDraft, st.Status)
	})
}

func TestEngine_Approve_Authorization(t *testing.T) {
	ctx := context.Background()
	chain := twoLevelChain()

	submit := func(t *testing.T, deps *engineDeps, emp *employee.Employee, requestID uuid.UUID) *workflow.State {
		t.Helper()
		st := &workflow.State{Status: workflow.StatusDraft}
		_, err := deps.engine.Submit(ctx, nil, workflow.SubmitInput{
			Kind:      workflow.KindLeave,
			RequestID: requestID,
			Requester: emp,
		}, st)
		assert.NoError(t, err)
		return st
	}

	t.Run("negative stranger cannot approve", func(t *testing.T) {
		deps := setupEngine(t, chain)
		emp := requester(t)
		requestID := uuid.New()
		st := submit(t, deps, emp, requestID)

		_, err := deps.engine.Approve(ctx, nil, workflow.DecideInput{
			Kind:        workflow.KindLeave,
			RequestID:   requestID,
			CompanyID:   emp.CompanyID,
			RequesterID: emp.ID,
			ApproverID:  uuid.New(),
		}, st)
		assert.ErrorIs(t, err, approvalerrors.ErrNotAuthorized)
	})

	t.Run("negative level-2 approver cannot decide ahead of turn", func(t *testing.T) {
		deps := setupEngine(t, chain)
		emp := requester(t)
		requestID := uuid.New()
		st := submit(t, deps, emp, requestID)

		_, err := deps.engine.Approve(ctx, nil, workflow.DecideInput{
			Kind:        workflow.KindLeave,
			RequestID:   requestID,
			CompanyID:   emp.CompanyID,
			RequesterID: emp.ID,
			ApproverID:  chain[1].EmployeeID,
		}, st)
		assert.ErrorIs(t, err, approvalerrors.ErrNotAuthorized)
	})

	t.Run("negative concurrent decision loses cleanly", func(t *testing.T) {
		deps := setupEngine(t, chain)
		emp := requester(t)
		requestID := uuid.New()
		st := submit(t, deps, emp, requestID)

		deps.approvals.decideFn = func(ctx context.Context, id, decision string, comment *string) (int64, error) {
			return 0, nil
		}
		_, err := deps.engine.Approve(ctx, nil, workflow.DecideInput{
			Kind:        workflow.KindLeave,
			RequestID:   requestID,
			CompanyID:   emp.CompanyID,
			RequesterID: emp.ID,
			ApproverID:  chain[0].EmployeeID,
		}, st)
		assert.ErrorIs(t, err, approvalerrors.ErrAlreadyDecided)
		assert.Equal(t, workflow.StatusPending, st.Status)
		assert.Equal(t, 1, st.CurrentApprovalLevel)
	})

	t.Run("negative approve a draft", func(t *testing.T) {
		deps := setupEngine(t, chain)
		st := &workflow.State{Status: workflow.StatusDraft}
		_, err := deps.engine.Approve(ctx, nil, workflow.DecideInput{}, st)
		var appErr *apperror.AppError
		assert.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeInvalidState, appErr.Code)
	})
}

func TestEngine_Reject(t *testing.T) {
	ctx := context.Background()
	chain := twoLevelChain()
	deps := setupEngine(t, chain)
	emp := requester(t)
	requestID := uuid.New()
	qty := decimal.NewFromInt(3)

	var released decimal.Decimal
	deps.ledger.releaseTxFn = func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
		released = days
		return nil
	}

	st := &workflow.State{Status: workflow.StatusDraft}
	_, err := deps.engine.Submit(ctx, nil, workflow.SubmitInput{
		Kind:        workflow.KindLeave,
		RequestID:   requestID,
		Requester:   emp,
		BenefitType: leaveBenefitType(),
		Quantity:    qty,
		Year:        2026,
	}, st)
	assert.NoError(t, err)

	err = deps.engine.Reject(ctx, nil, workflow.DecideInput{
		Kind:        workflow.KindLeave,
		RequestID:   requestID,
		CompanyID:   emp.CompanyID,
		RequesterID: emp.ID,
		ApproverID:  chain[0].EmployeeID,
		Quantity:    qty,
	}, "dates clash with the release", st)
	assert.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, st.Status)
	assert.NotNil(t, st.RejectedAt)
	// The full reservation is returned even though only level 1 decided.
	assert.True(t, released.Equal(qty))

	last := deps.notifier.sent[len(deps.notifier.sent)-1]
	assert.Equal(t, emp.ID, last.RecipientID)
	assert.Equal(t, "dates clash with the release", last.Reason)
}

func TestEngine_Cancel(t *testing.T) {
	ctx := context.Background()
	chain := twoLevelChain()

	t.Run("pending cancellation releases and notifies open approvers", func(t *testing.T) {
		deps := setupEngine(t, chain)
		emp := requester(t)
		requestID := uuid.New()
		qty := decimal.NewFromInt(2)

		var released decimal.Decimal
		deps.ledger.releaseTxFn = func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
			released = days
			return nil
		}

		st := &workflow.State{Status: workflow.StatusDraft}
		_, err := deps.engine.Submit(ctx, nil, workflow.SubmitInput{
			Kind:        workflow.KindLeave,
			RequestID:   requestID,
			Requester:   emp,
			BenefitType: leaveBenefitType(),
			Quantity:    qty,
			Year:        2026,
		}, st)
		assert.NoError(t, err)
		deps.notifier.sent = nil

		err = deps.engine.Cancel(ctx, nil, workflow.CancelInput{
			Kind:        workflow.KindLeave,
			RequestID:   requestID,
			CompanyID:   emp.CompanyID,
			RequesterID: emp.ID,
			Quantity:    qty,
			Reason:      "plans changed",
		}, st)
		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusCancelled, st.Status)
		assert.NotNil(t, st.CancelledAt)
		assert.Equal(t, "plans changed", *st.CancelReason)
		assert.True(t, released.Equal(qty))
		// Both levels were still pending, both get told.
		assert.Len(t, deps.notifier.sent, 2)
		assert.Contains(t, deps.approvals.deleted, requestID.String())
	})

	t.Run("draft cancellation touches no ledger", func(t *testing.T) {
		deps := setupEngine(t, chain)
		released := false
		deps.ledger.releaseTxFn = func(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
			released = true
			return nil
		}

		st := &workflow.State{Status: workflow.StatusDraft}
		err := deps.engine.Cancel(ctx, nil, workflow.CancelInput{
			Kind:      workflow.KindLeave,
			RequestID: uuid.New(),
			CompanyID: uuid.New(),
		}, st)
		assert.NoError(t, err)
		assert.Equal(t, workflow.StatusCancelled, st.Status)
		assert.False(t, released)
	})

	t.Run("negative approved request cannot be cancelled", func(t *testing.T) {
		deps := setupEngine(t, chain)
		st := &workflow.State{Status: workflow.StatusApproved}
		err := deps.engine.Cancel(ctx, nil, workflow.CancelInput{}, st)
		var appErr *apperror.AppError
		assert.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeInvalidState, appErr.Code)
		assert.Equal(t, workflow.StatusApproved, st.Status)
	})
}
