package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"
	ledgererrors "github.com/helderdene/hris-sub010/internal/ledger/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type Service interface {
	// Transaction-scoped primitives composed into the workflow transitions.
	// The caller owns the transaction; the touched row stays locked until the
	// caller commits or rolls back.
	EnsureEntryTx(ctx context.Context, tx *sql.Tx, emp *employee.Employee, bt *benefit.BenefitType, year int) (*LedgerEntry, error)
	ReserveTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error
	ReleaseTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error
	CommitReservationTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error

	GetBalance(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (BalanceResponse, error)
	// InvalidateBalance drops the cached balance; callers invoke it after
	// committing a transaction that moved the amounts.
	InvalidateBalance(ctx context.Context, companyID, employeeID, benefitTypeID string, year int)
	RecordAdjustment(ctx context.Context, companyID, actorID string, req AdjustmentRequest) (AdjustmentResponse, error)
	ListAdjustments(ctx context.Context, companyID, entryID string) ([]AdjustmentResponse, error)

	// Batch operations driven by the scheduler.
	RunMonthlyAccrual(ctx context.Context, companyID string, now time.Time) (AccrualSummary, error)
	RollForwardYear(ctx context.Context, companyID string, fromYear int, now time.Time) (RollForwardSummary, error)
	ExpireCarryOver(ctx context.Context, companyID string, now time.Time) (int, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	benefits  benefit.Repository
	employees employee.Repository
	rdb       *redis.Client
	sf        *singleflight.Group
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	benefits benefit.Repository,
	employees employee.Repository,
	rdb *redis.Client,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("ledger.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		benefits:  benefits,
		employees: employees,
		rdb:       rdb,
		sf:        &singleflight.Group{},
		logger:    l,
	}
}

const balanceCacheTTL = 5 * time.Minute

func balanceCacheKey(companyID, employeeID, benefitTypeID string, year int) string {
	return fmt.Sprintf("ledger:balance:%s:%s:%s:%d", companyID, employeeID, benefitTypeID, year)
}

func (s *service) EnsureEntryTx(ctx context.Context, tx *sql.Tx, emp *employee.Employee, bt *benefit.BenefitType, year int) (*LedgerEntry, error) {
	qtx := s.repo.WithTx(tx)

	entry, err := qtx.FindEntryForUpdate(ctx, emp.CompanyID.String(), emp.ID.String(), bt.ID.String(), year)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	entry = &LedgerEntry{
		ID:             uuid.New(),
		CompanyID:      emp.CompanyID,
		EmployeeID:     emp.ID,
		BenefitTypeID:  bt.ID,
		Year:           year,
		BroughtForward: decimal.Zero,
		Earned:         initialEarned(bt, emp, year),
		Used:           decimal.Zero,
		Pending:        decimal.Zero,
		Adjustments:    decimal.Zero,
		Expired:        decimal.Zero,
	}

	inserted, err := qtx.CreateEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// A concurrent submission won the creation race; lock its row instead.
		return qtx.FindEntryForUpdate(ctx, emp.CompanyID.String(), emp.ID.String(), bt.ID.String(), year)
	}

	s.logger.Info("ledger entry created",
		zap.String("employee_id", emp.ID.String()),
		zap.String("benefit_type_id", bt.ID.String()),
		zap.Int("year", year),
		zap.String("initial_earned", entry.Earned.StringFixed(2)),
	)
	return entry, nil
}

func (s *service) ReserveTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
	if days.LessThanOrEqual(decimal.Zero) {
		return ledgererrors.ErrInvalidDays
	}

	qtx := s.repo.WithTx(tx)
	entry, err := qtx.FindEntryByIDForUpdate(ctx, entryID)
	if err != nil {
		return err
	}

	available := entry.Available()
	if available.LessThan(days) {
		return ledgererrors.NewInsufficientBalance(available)
	}

	entry.Pending = entry.Pending.Add(days)
	return qtx.UpdateAmounts(ctx, entry)
}

func (s *service) ReleaseTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
	if days.LessThanOrEqual(decimal.Zero) {
		return ledgererrors.ErrInvalidDays
	}

	qtx := s.repo.WithTx(tx)
	entry, err := qtx.FindEntryByIDForUpdate(ctx, entryID)
	if err != nil {
		return err
	}

	if entry.Pending.LessThan(days) {
		return ledgererrors.ErrNegativePending
	}

	entry.Pending = entry.Pending.Sub(days)
	return qtx.UpdateAmounts(ctx, entry)
}

func (s *service) CommitReservationTx(ctx context.Context, tx *sql.Tx, entryID string, days decimal.Decimal) error {
	if days.LessThanOrEqual(decimal.Zero) {
		return ledgererrors.ErrInvalidDays
	}

	qtx := s.repo.WithTx(tx)
	entry, err := qtx.FindEntryByIDForUpdate(ctx, entryID)
	if err != nil {
		return err
	}

	if entry.Pending.LessThan(days) {
		return ledgererrors.ErrNegativePending
	}

	entry.Pending = entry.Pending.Sub(days)
	entry.Used = entry.Used.Add(days)
	return qtx.UpdateAmounts(ctx, entry)
}

func (s *service) GetBalance(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (BalanceResponse, error) {
	cacheKey := balanceCacheKey(companyID, employeeID, benefitTypeID, year)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var resp BalanceResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		entry, err := s.repo.FindEntry(ctx, companyID, employeeID, benefitTypeID, year)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return BalanceResponse{}, err
			}
			// First read for this (employee, type, year): materialize the
			// entry with its initial entitlement instead of answering
			// "not found".
			entry, err = s.ensureEntry(ctx, companyID, employeeID, benefitTypeID, year)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return BalanceResponse{}, ledgererrors.ErrEntryNotFound
				}
				return BalanceResponse{}, err
			}
		}

		resp := mapToBalanceResponse(*entry)
		if s.rdb != nil {
			if jsonData, err := json.Marshal(resp); err == nil {
				s.rdb.Set(ctx, cacheKey, jsonData, balanceCacheTTL)
			}
		}
		return resp, nil
	})
	if err != nil {
		return BalanceResponse{}, err
	}
	return v.(BalanceResponse), nil
}

func (s *service) InvalidateBalance(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) {
	if s.rdb == nil {
		return
	}
	key := balanceCacheKey(companyID, employeeID, benefitTypeID, year)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("balance cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *service) RecordAdjustment(ctx context.Context, companyID, actorID string, req AdjustmentRequest) (AdjustmentResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return AdjustmentResponse{}, ledgererrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return AdjustmentResponse{}, ledgererrors.ErrInvalidActorID
	}
	if req.Type != AdjustmentCredit && req.Type != AdjustmentDebit {
		return AdjustmentResponse{}, ledgererrors.ErrInvalidAdjustmentType
	}
	days, err := decimal.NewFromString(req.Days)
	if err != nil || days.LessThanOrEqual(decimal.Zero) {
		return AdjustmentResponse{}, ledgererrors.ErrInvalidDays
	}

	// Tenant check before taking the lock.
	if _, err := s.repo.FindEntryByID(ctx, companyID, req.LedgerEntryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AdjustmentResponse{}, ledgererrors.ErrEntryNotFound
		}
		return AdjustmentResponse{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AdjustmentResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	entry, err := qtx.FindEntryByIDForUpdate(ctx, req.LedgerEntryID)
	if err != nil {
		return AdjustmentResponse{}, err
	}

	signed := days
	if req.Type == AdjustmentDebit {
		signed = days.Neg()
	}

	previous := entry.Available()
	entry.Adjustments = entry.Adjustments.Add(signed)
	next := entry.Available()
	if next.IsNegative() {
		return AdjustmentResponse{}, ledgererrors.NewInsufficientBalance(previous)
	}

	if err := qtx.UpdateAmounts(ctx, entry); err != nil {
		return AdjustmentResponse{}, err
	}

	adj := &BalanceAdjustment{
		ID:              uuid.New(),
		CompanyID:       entry.CompanyID,
		LedgerEntryID:   entry.ID,
		Type:            req.Type,
		Days:            days,
		Reason:          req.Reason,
		PreviousBalance: previous,
		NewBalance:      next,
		ActorEmployeeID: actorUUID,
	}
	if req.ReferenceID != nil {
		refUUID, err := uuid.Parse(*req.ReferenceID)
		if err != nil {
			return AdjustmentResponse{}, ledgererrors.ErrInvalidDays
		}
		adj.ReferenceID = &refUUID
	}

	if err := qtx.CreateAdjustment(ctx, adj); err != nil {
		return AdjustmentResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return AdjustmentResponse{}, err
	}

	s.InvalidateBalance(ctx, entry.CompanyID.String(), entry.EmployeeID.String(), entry.BenefitTypeID.String(), entry.Year)

	s.logger.Info("balance adjustment recorded",
		zap.String("ledger_entry_id", entry.ID.String()),
		zap.String("type", req.Type),
		zap.String("days", days.StringFixed(2)),
		zap.String("actor_id", actorID),
	)
	return mapToAdjustmentResponse(*adj), nil
}

func (s *service) ListAdjustments(ctx context.Context, companyID, entryID string) ([]AdjustmentResponse, error) {
	adjustments, err := s.repo.ListAdjustmentsByEntry(ctx, companyID, entryID)
	if err != nil {
		return nil, err
	}
	resp := make([]AdjustmentResponse, len(adjustments))
	for i, adj := range adjustments {
		resp[i] = mapToAdjustmentResponse(adj)
	}
	return resp, nil
}

type RollForwardSummary struct {
	EntriesProcessed int
	TotalCarriedOver decimal.Decimal
	TotalForfeited   decimal.Decimal
}

func (s *service) RollForwardYear(ctx context.Context, companyID string, fromYear int, now time.Time) (RollForwardSummary, error) {
	summary := RollForwardSummary{
		TotalCarriedOver: decimal.Zero,
		TotalForfeited:   decimal.Zero,
	}

	entries, err := s.repo.ListUnprocessedByYear(ctx, companyID, fromYear)
	if err != nil {
		return summary, err
	}

	for _, candidate := range entries {
		bt, err := s.benefits.FindByIDAndCompany(ctx, companyID, candidate.BenefitTypeID.String())
		if err != nil {
			s.logger.Warn("roll-forward skipping entry with missing benefit type",
				zap.String("ledger_entry_id", candidate.ID.String()),
				zap.Error(err),
			)
			continue
		}
		emp, err := s.employees.FindByIDAndCompany(ctx, companyID, candidate.EmployeeID.String())
		if err != nil {
			s.logger.Warn("roll-forward skipping entry with missing employee",
				zap.String("ledger_entry_id", candidate.ID.String()),
				zap.Error(err),
			)
			continue
		}

		carried, forfeited, err := s.rollForwardEntry(ctx, candidate.ID.String(), emp, bt, fromYear)
		if err != nil {
			return summary, err
		}
		summary.EntriesProcessed++
		summary.TotalCarriedOver = summary.TotalCarriedOver.Add(carried)
		summary.TotalForfeited = summary.TotalForfeited.Add(forfeited)
	}

	s.logger.Info("year-end roll-forward finished",
		zap.String("company_id", companyID),
		zap.Int("from_year", fromYear),
		zap.Int("entries", summary.EntriesProcessed),
		zap.String("carried_over", summary.TotalCarriedOver.StringFixed(2)),
		zap.String("forfeited", summary.TotalForfeited.StringFixed(2)),
	)
	return summary, nil
}

func (s *service) rollForwardEntry(ctx context.Context, entryID string, emp *employee.Employee, bt *benefit.BenefitType, fromYear int) (decimal.Decimal, decimal.Decimal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	entry, err := qtx.FindEntryByIDForUpdate(ctx, entryID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if entry.ProcessedAt != nil {
		// Another run got here first.
		return decimal.Zero, decimal.Zero, nil
	}

	// Pending reservations are intentionally left out of the year-end
	// computation; open requests spanning the boundary settle against the
	// old year's row.
	unused := entry.BroughtForward.
		Add(entry.Earned).
		Add(entry.Adjustments).
		Sub(entry.Used).
		Sub(entry.Expired)

	carryOver := decimal.Zero
	forfeit := decimal.Zero
	var expiryDate *time.Time

	switch {
	case !bt.CarryOverAllowed || unused.LessThanOrEqual(decimal.Zero):
		if unused.GreaterThan(decimal.Zero) {
			forfeit = unused
		}
	default:
		carryOver = unused
		if bt.MaxCarryOverDays != nil && carryOver.GreaterThan(*bt.MaxCarryOverDays) {
			carryOver = *bt.MaxCarryOverDays
		}
		forfeit = unused.Sub(carryOver)
		if bt.CarryOverExpiryMonths != nil {
			d := time.Date(fromYear+1, time.January, 1, 0, 0, 0, 0, time.UTC).
				AddDate(0, *bt.CarryOverExpiryMonths, -1)
			expiryDate = &d
		}
	}

	processedAt := time.Now().UTC()
	entry.ProcessedAt = &processedAt
	if err := qtx.UpdateAmounts(ctx, entry); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	nextYear := fromYear + 1
	next, err := qtx.FindEntryForUpdate(ctx, entry.CompanyID.String(), entry.EmployeeID.String(), entry.BenefitTypeID.String(), nextYear)
	switch {
	case err == nil:
		next.BroughtForward = carryOver
		next.CarryOverExpiryDate = expiryDate
		next.CarryOverExpired = false
		if err := qtx.UpdateAmounts(ctx, next); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	case errors.Is(err, sql.ErrNoRows):
		next = &LedgerEntry{
			ID:                  uuid.New(),
			CompanyID:           entry.CompanyID,
			EmployeeID:          entry.EmployeeID,
			BenefitTypeID:       entry.BenefitTypeID,
			Year:                nextYear,
			BroughtForward:      carryOver,
			Earned:              initialEarned(bt, emp, nextYear),
			Used:                decimal.Zero,
			Pending:             decimal.Zero,
			Adjustments:         decimal.Zero,
			Expired:             decimal.Zero,
			CarryOverExpiryDate: expiryDate,
		}
		if _, err := qtx.CreateEntry(ctx, next); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	default:
		return decimal.Zero, decimal.Zero, err
	}

	if err := tx.Commit(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return carryOver, forfeit, nil
}

func (s *service) ExpireCarryOver(ctx context.Context, companyID string, now time.Time) (int, error) {
	entries, err := s.repo.ListExpirable(ctx, companyID, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, candidate := range entries {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return expired, err
		}

		qtx := s.repo.WithTx(tx)
		entry, err := qtx.FindEntryByIDForUpdate(ctx, candidate.ID.String())
		if err != nil {
			tx.Rollback()
			return expired, err
		}
		if entry.CarryOverExpired {
			tx.Rollback()
			continue
		}

		// Usage is counted against brought-forward first, so only the part
		// of it not yet consumed can lapse.
		remaining := entry.BroughtForward.Sub(entry.Used).Sub(entry.Pending)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		if available := entry.Available(); remaining.GreaterThan(available) {
			remaining = available
		}
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		entry.Expired = entry.Expired.Add(remaining)
		entry.CarryOverExpired = true
		if err := qtx.UpdateAmounts(ctx, entry); err != nil {
			tx.Rollback()
			return expired, err
		}
		if err := tx.Commit(); err != nil {
			return expired, err
		}

		expired++
		s.logger.Info("carry-over expired",
			zap.String("ledger_entry_id", entry.ID.String()),
			zap.String("expired_days", remaining.StringFixed(2)),
		)
	}

	return expired, nil
}
