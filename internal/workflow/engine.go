package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/helderdene/hris-sub010/internal/approval"
	approvalerrors "github.com/helderdene/hris-sub010/internal/approval/errors"
	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"
	"github.com/helderdene/hris-sub010/internal/events"
	"github.com/helderdene/hris-sub010/internal/ledger"
	"github.com/helderdene/hris-sub010/internal/notify"
	workflowerrors "github.com/helderdene/hris-sub010/internal/workflow/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine drives the shared request lifecycle. It mutates only the passed-in
// State plus the approval and ledger rows inside the caller's transaction;
// persisting the surrounding request entity stays with the kind service.
type Engine struct {
	ledger    ledger.Service
	resolver  approval.Resolver
	approvals approval.Repository
	notifier  notify.Notifier
	logger    *zap.Logger
}

func NewEngine(
	ledgerSvc ledger.Service,
	resolver approval.Resolver,
	approvals approval.Repository,
	notifier notify.Notifier,
	logger ...*zap.Logger,
) *Engine {
	l := zap.L().Named("workflow.engine")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("workflow.engine")
	}
	return &Engine{
		ledger:    ledgerSvc,
		resolver:  resolver,
		approvals: approvals,
		notifier:  notifier,
		logger:    l,
	}
}

type SubmitInput struct {
	Kind      string
	RequestID uuid.UUID
	Requester *employee.Employee

	// BenefitType is nil for kinds that do not draw on a balance.
	BenefitType *benefit.BenefitType
	Quantity    decimal.Decimal
	Year        int

	// MaxLevels defaults to approval.DefaultMaxLevels when zero.
	MaxLevels int
}

func (e *Engine) Submit(ctx context.Context, tx *sql.Tx, in SubmitInput, st *State) ([]approval.ApprovalRecord, error) {
	if st.Status != StatusDraft {
		return nil, workflowerrors.NewInvalidState("submit", st.Status)
	}

	// The balance guard runs before chain resolution so a requester short on
	// balance sees InsufficientBalance even when they also have no approver.
	// Reserving here is safe: a later failure rolls the transaction back.
	if in.BenefitType != nil {
		if in.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, workflowerrors.ErrInvalidQuantity
		}
		entry, err := e.ledger.EnsureEntryTx(ctx, tx, in.Requester, in.BenefitType, in.Year)
		if err != nil {
			return nil, err
		}
		if err := e.ledger.ReserveTx(ctx, tx, entry.ID.String(), in.Quantity); err != nil {
			return nil, err
		}
		entryID := entry.ID
		st.LedgerEntryID = &entryID
	}

	chain, err := e.resolver.ResolveChain(ctx, in.Requester, in.MaxLevels)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		head, err := e.resolver.FallbackApprover(ctx, in.Requester)
		if err != nil {
			return nil, err
		}
		if head == nil {
			return nil, approvalerrors.ErrNoApproverFound
		}
		chain = []approval.Approver{{
			EmployeeID: head.ID,
			Type:       approval.ApproverDepartmentHead,
			Level:      1,
		}}
	}

	records := make([]approval.ApprovalRecord, len(chain))
	for i, step := range chain {
		records[i] = approval.ApprovalRecord{
			ID:           uuid.New(),
			CompanyID:    in.Requester.CompanyID,
			RequestID:    in.RequestID,
			RequestKind:  in.Kind,
			Level:        step.Level,
			ApproverID:   step.EmployeeID,
			ApproverType: step.Type,
			Decision:     approval.DecisionPending,
		}
	}
	if err := e.approvals.WithTx(tx).CreateBatch(ctx, records); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	st.Status = StatusPending
	st.CurrentApprovalLevel = 1
	st.TotalApprovalLevels = len(chain)
	st.SubmittedAt = &now

	e.notify(ctx, tx, notify.Notification{
		CompanyID:   in.Requester.CompanyID,
		RecipientID: records[0].ApproverID,
		RequesterID: in.Requester.ID,
		Event:       events.EventRequestSubmitted,
		RequestKind: in.Kind,
		RequestID:   in.RequestID,
		Level:       1,
	})

	e.logger.Info("request submitted",
		zap.String("kind", in.Kind),
		zap.String("request_id", in.RequestID.String()),
		zap.Int("levels", len(chain)),
	)
	return records, nil
}

type DecideInput struct {
	Kind        string
	RequestID   uuid.UUID
	CompanyID   uuid.UUID
	RequesterID uuid.UUID
	ApproverID  uuid.UUID
	Comment     *string
	Quantity    decimal.Decimal
}

type Outcome struct {
	Final        bool
	NextApprover *uuid.UUID
}

func (e *Engine) Approve(ctx context.Context, tx *sql.Tx, in DecideInput, st *State) (Outcome, error) {
	if st.Status != StatusPending {
		return Outcome{}, workflowerrors.NewInvalidState("approve", st.Status)
	}

	rec, err := e.authorize(ctx, in, st)
	if err != nil {
		return Outcome{}, err
	}

	rows, err := e.approvals.WithTx(tx).Decide(ctx, rec.ID.String(), approval.DecisionApproved, in.Comment)
	if err != nil {
		return Outcome{}, err
	}
	if rows == 0 {
		// A concurrent decision on the same step won the race.
		return Outcome{}, approvalerrors.ErrAlreadyDecided
	}

	now := time.Now().UTC()

	if st.CurrentApprovalLevel == st.TotalApprovalLevels {
		if st.LedgerEntryID != nil {
			if err := e.ledger.CommitReservationTx(ctx, tx, st.LedgerEntryID.String(), in.Quantity); err != nil {
				return Outcome{}, err
			}
		}
		st.Status = StatusApproved
		st.ApprovedAt = &now

		e.notify(ctx, tx, notify.Notification{
			CompanyID:   in.CompanyID,
			RecipientID: in.RequesterID,
			RequesterID: in.RequesterID,
			Event:       events.EventRequestApproved,
			RequestKind: in.Kind,
			RequestID:   in.RequestID,
			Level:       st.CurrentApprovalLevel,
		})
		return Outcome{Final: true}, nil
	}

	st.CurrentApprovalLevel++

	next, err := e.approverAtLevel(ctx, in, st.CurrentApprovalLevel)
	if err != nil {
		return Outcome{}, err
	}
	if next != nil {
		e.notify(ctx, tx, notify.Notification{
			CompanyID:   in.CompanyID,
			RecipientID: *next,
			RequesterID: in.RequesterID,
			Event:       events.EventRequestAdvanced,
			RequestKind: in.Kind,
			RequestID:   in.RequestID,
			Level:       st.CurrentApprovalLevel,
		})
	}
	return Outcome{NextApprover: next}, nil
}

func (e *Engine) Reject(ctx context.Context, tx *sql.Tx, in DecideInput, reason string, st *State) error {
	if st.Status != StatusPending {
		return workflowerrors.NewInvalidState("reject", st.Status)
	}

	rec, err := e.authorize(ctx, in, st)
	if err != nil {
		return err
	}

	comment := &reason
	if reason == "" {
		comment = in.Comment
	}
	rows, err := e.approvals.WithTx(tx).Decide(ctx, rec.ID.String(), approval.DecisionRejected, comment)
	if err != nil {
		return err
	}
	if rows == 0 {
		return approvalerrors.ErrAlreadyDecided
	}

	if st.LedgerEntryID != nil {
		if err := e.ledger.ReleaseTx(ctx, tx, st.LedgerEntryID.String(), in.Quantity); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	st.Status = StatusRejected
	st.RejectedAt = &now

	e.notify(ctx, tx, notify.Notification{
		CompanyID:   in.CompanyID,
		RecipientID: in.RequesterID,
		RequesterID: in.RequesterID,
		Event:       events.EventRequestRejected,
		RequestKind: in.Kind,
		RequestID:   in.RequestID,
		Reason:      reason,
	})
	return nil
}

type CancelInput struct {
	Kind        string
	RequestID   uuid.UUID
	CompanyID   uuid.UUID
	RequesterID uuid.UUID
	Quantity    decimal.Decimal
	Reason      string
}

func (e *Engine) Cancel(ctx context.Context, tx *sql.Tx, in CancelInput, st *State) error {
	if !st.CanCancel() {
		return workflowerrors.ErrCannotCancel
	}

	wasPending := st.Status == StatusPending
	if wasPending {
		pending, err := e.approvals.ListPendingByRequest(ctx, in.CompanyID.String(), in.RequestID.String())
		if err != nil {
			return err
		}

		if st.LedgerEntryID != nil {
			if err := e.ledger.ReleaseTx(ctx, tx, st.LedgerEntryID.String(), in.Quantity); err != nil {
				return err
			}
		}

		for _, rec := range pending {
			e.notify(ctx, tx, notify.Notification{
				CompanyID:   in.CompanyID,
				RecipientID: rec.ApproverID,
				RequesterID: in.RequesterID,
				Event:       events.EventRequestCancelled,
				RequestKind: in.Kind,
				RequestID:   in.RequestID,
				Level:       rec.Level,
				Reason:      in.Reason,
			})
		}

		if err := e.approvals.WithTx(tx).DeleteByRequest(ctx, in.RequestID.String()); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	st.Status = StatusCancelled
	st.CancelledAt = &now
	if in.Reason != "" {
		reason := in.Reason
		st.CancelReason = &reason
	}
	return nil
}

// authorize finds the pending approval record for the caller at the current
// level. Authorization is by snapshotted approver identity: org-chart changes
// after submission do not reroute an in-flight request.
func (e *Engine) authorize(ctx context.Context, in DecideInput, st *State) (*approval.ApprovalRecord, error) {
	rec, err := e.approvals.FindPendingForApprover(ctx, in.CompanyID.String(), in.RequestID.String(), in.ApproverID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, approvalerrors.ErrNotAuthorized
		}
		return nil, err
	}
	if rec.Level != st.CurrentApprovalLevel {
		// An approver deeper in the chain cannot decide ahead of turn.
		return nil, approvalerrors.ErrNotAuthorized
	}
	return rec, nil
}

func (e *Engine) approverAtLevel(ctx context.Context, in DecideInput, level int) (*uuid.UUID, error) {
	records, err := e.approvals.ListByRequest(ctx, in.CompanyID.String(), in.RequestID.String())
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Level == level && rec.IsPending() {
			id := rec.ApproverID
			return &id, nil
		}
	}
	return nil, nil
}

// notify enqueues within the transaction but never fails the transition:
// losing a notification is preferable to rolling back a decided request.
func (e *Engine) notify(ctx context.Context, tx *sql.Tx, n notify.Notification) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyTx(ctx, tx, n); err != nil {
		e.logger.Warn("notification enqueue failed",
			zap.String("event", n.Event),
			zap.String("request_id", n.RequestID.String()),
			zap.Error(err),
		)
	}
}
