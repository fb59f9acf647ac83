package ledger_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"
	"github.com/helderdene/hris-sub010/internal/ledger"
	ledgererrors "github.com/helderdene/hris-sub010/internal/ledger/errors"
	"github.com/helderdene/hris-sub010/internal/shared/apperror"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeLedgerRepository struct {
	withTxFn                 func(tx *sql.Tx) ledger.Repository
	createEntryFn            func(ctx context.Context, e *ledger.LedgerEntry) (bool, error)
	findEntryForUpdateFn     func(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*ledger.LedgerEntry, error)
	findEntryByIDForUpdateFn func(ctx context.Context, id string) (*ledger.LedgerEntry, error)
	updateAmountsFn          func(ctx context.Context, e *ledger.LedgerEntry) error
	findEntryFn              func(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*ledger.LedgerEntry, error)
	findEntryByIDFn          func(ctx context.Context, companyID, id string) (*ledger.LedgerEntry, error)
	listUnprocessedByYearFn  func(ctx context.Context, companyID string, year int) ([]ledger.LedgerEntry, error)
	listExpirableFn          func(ctx context.Context, companyID string, now time.Time) ([]ledger.LedgerEntry, error)
	createAdjustmentFn       func(ctx context.Context, adj *ledger.BalanceAdjustment) error
	listAdjustmentsByEntryFn func(ctx context.Context, companyID, entryID string) ([]ledger.BalanceAdjustment, error)
}

func (f *fakeLedgerRepository) WithTx(tx *sql.Tx) ledger.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeLedgerRepository) CreateEntry(ctx context.Context, e *ledger.LedgerEntry) (bool, error) {
	if f.createEntryFn != nil {
		return f.createEntryFn(ctx, e)
	}
	return true, nil
}

func (f *fakeLedgerRepository) FindEntryForUpdate(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*ledger.LedgerEntry, error) {
	if f.findEntryForUpdateFn != nil {
		return f.findEntryForUpdateFn(ctx, companyID, employeeID, benefitTypeID, year)
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedgerRepository) FindEntryByIDForUpdate(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
	if f.findEntryByIDForUpdateFn != nil {
		return f.findEntryByIDForUpdateFn(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedgerRepository) UpdateAmounts(ctx context.Context, e *ledger.LedgerEntry) error {
	if f.updateAmountsFn != nil {
		return f.updateAmountsFn(ctx, e)
	}
	return nil
}

func (f *fakeLedgerRepository) FindEntry(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*ledger.LedgerEntry, error) {
	if f.findEntryFn != nil {
		return f.findEntryFn(ctx, companyID, employeeID, benefitTypeID, year)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedgerRepository) FindEntryByID(ctx context.Context, companyID, id string) (*ledger.LedgerEntry, error) {
	if f.findEntryByIDFn != nil {
		return f.findEntryByIDFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedgerRepository) ListUnprocessedByYear(ctx context.Context, companyID string, year int) ([]ledger.LedgerEntry, error) {
	if f.listUnprocessedByYearFn != nil {
		return f.listUnprocessedByYearFn(ctx, companyID, year)
	}
	return nil, nil
}

func (f *fakeLedgerRepository) ListExpirable(ctx context.Context, companyID string, now time.Time) ([]ledger.LedgerEntry, error) {
	if f.listExpirableFn != nil {
		return f.listExpirableFn(ctx, companyID, now)
	}
	return nil, nil
}

func (f *fakeLedgerRepository) CreateAdjustment(ctx context.Context, adj *ledger.BalanceAdjustment) error {
	if f.createAdjustmentFn != nil {
		return f.createAdjustmentFn(ctx, adj)
	}
	return nil
}

func (f *fakeLedgerRepository) ListAdjustmentsByEntry(ctx context.Context, companyID, entryID string) ([]ledger.BalanceAdjustment, error) {
	if f.listAdjustmentsByEntryFn != nil {
		return f.listAdjustmentsByEntryFn(ctx, companyID, entryID)
	}
	return nil, nil
}

type fakeBenefitRepository struct {
	findAllByCompanyFn            func(ctx context.Context, companyID string) ([]benefit.BenefitType, error)
	findByIDAndCompanyFn          func(ctx context.Context, companyID, id string) (*benefit.BenefitType, error)
	findMonthlyAccrualByCompanyFn func(ctx context.Context, companyID string) ([]benefit.BenefitType, error)
	listCompanyIDsFn              func(ctx context.Context) ([]string, error)
}

func (f *fakeBenefitRepository) FindAllByCompany(ctx context.Context, companyID string) ([]benefit.BenefitType, error) {
	if f.findAllByCompanyFn != nil {
		return f.findAllByCompanyFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeBenefitRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*benefit.BenefitType, error) {
	if f.findByIDAndCompanyFn != nil {
		return f.findByIDAndCompanyFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBenefitRepository) FindMonthlyAccrualByCompany(ctx context.Context, companyID string) ([]benefit.BenefitType, error) {
	if f.findMonthlyAccrualByCompanyFn != nil {
		return f.findMonthlyAccrualByCompanyFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeBenefitRepository) ListCompanyIDs(ctx context.Context) ([]string, error) {
	if f.listCompanyIDsFn != nil {
		return f.listCompanyIDsFn(ctx)
	}
	return nil, nil
}

type fakeEmployeeRepository struct {
	findByIDAndCompanyFn     func(ctx context.Context, companyID, id string) (*employee.Employee, error)
	findAllActiveByCompanyFn func(ctx context.Context, companyID string) ([]employee.Employee, error)
	findDepartmentHeadFn     func(ctx context.Context, companyID, departmentID, excludeID string) (*employee.Employee, error)
}

func (f *fakeEmployeeRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*employee.Employee, error) {
	if f.findByIDAndCompanyFn != nil {
		return f.findByIDAndCompanyFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEmployeeRepository) FindAllActiveByCompany(ctx context.Context, companyID string) ([]employee.Employee, error) {
	if f.findAllActiveByCompanyFn != nil {
		return f.findAllActiveByCompanyFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeEmployeeRepository) FindDepartmentHead(ctx context.Context, companyID, departmentID, excludeID string) (*employee.Employee, error) {
	if f.findDepartmentHeadFn != nil {
		return f.findDepartmentHeadFn(ctx, companyID, departmentID, excludeID)
	}
	return nil, gorm.ErrRecordNotFound
}

type ledgerServiceDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	service   ledger.Service
	repo      *fakeLedgerRepository
	benefits  *fakeBenefitRepository
	employees *fakeEmployeeRepository
}

func setupLedgerServiceTest(t *testing.T) *ledgerServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeLedgerRepository{}
	benefits := &fakeBenefitRepository{}
	employees := &fakeEmployeeRepository{}
	svc := ledger.NewService(db, repo, benefits, employees, nil)

	return &ledgerServiceDeps{
		db:        db,
		sqlMock:   sqlMock,
		service:   svc,
		repo:      repo,
		benefits:  benefits,
		employees: employees,
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testEntry(available string) *ledger.LedgerEntry {
	return &ledger.LedgerEntry{
		ID:             uuid.New(),
		CompanyID:      uuid.New(),
		EmployeeID:     uuid.New(),
		BenefitTypeID:  uuid.New(),
		Year:           2026,
		BroughtForward: decimal.Zero,
		Earned:         dec(available),
		Used:           decimal.Zero,
		Pending:        decimal.Zero,
		Adjustments:    decimal.Zero,
		Expired:        decimal.Zero,
	}
}

func beginTestTx(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *sql.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)
	return tx
}

func TestLedgerService_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("success moves days into pending", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		entry := testEntry("10.00")
		var saved *ledger.LedgerEntry
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}
		deps.repo.updateAmountsFn = func(ctx context.Context, e *ledger.LedgerEntry) error {
			saved = e
			return nil
		}

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		err := deps.service.ReserveTx(ctx, tx, entry.ID.String(), dec("2.50"))
		assert.NoError(t, err)
		assert.NotNil(t, saved)
		assert.True(t, saved.Pending.Equal(dec("2.50")))
		assert.True(t, saved.Available().Equal(dec("7.50")))
	})

	t.Run("negative insufficient balance carries available amount", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		entry := testEntry("1.50")
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}
		updated := false
		deps.repo.updateAmountsFn = func(ctx context.Context, e *ledger.LedgerEntry) error {
			updated = true
			return nil
		}

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		err := deps.service.ReserveTx(ctx, tx, entry.ID.String(), dec("2.00"))

		var appErr *apperror.AppError
		assert.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeInsufficientBalance, appErr.Code)
		assert.Equal(t, map[string]string{"available": "1.50"}, appErr.Details)
		assert.False(t, updated)
	})

	t.Run("negative zero days rejected", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		err := deps.service.ReserveTx(ctx, tx, uuid.New().String(), decimal.Zero)
		assert.ErrorIs(t, err, ledgererrors.ErrInvalidDays)
	})

	t.Run("exact balance can be fully reserved", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		entry := testEntry("3.00")
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		err := deps.service.ReserveTx(ctx, tx, entry.ID.String(), dec("3.00"))
		assert.NoError(t, err)
		assert.True(t, entry.Available().IsZero())
	})
}

func TestLedgerService_ReleaseAndCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("release returns days to available", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		entry := testEntry("10.00")
		entry.Pending = dec("4.00")
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		err := deps.service.ReleaseTx(ctx, tx, entry.ID.String(), dec("4.00"))
		assert.NoError(t, err)
		assert.True(t, entry.Pending.IsZero())
		assert.True(t, entry.Available().Equal(dec("10.00")))
	})

	t.Run("negative release beyond pending", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		entry := testEntry("10.00")
		entry.Pending = dec("1.00")
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		err := deps.service.ReleaseTx(ctx, tx, entry.ID.String(), dec("2.00"))
		assert.ErrorIs(t, err, ledgererrors.ErrNegativePending)
	})

	t.Run("commit converts pending into used and conserves the total", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		entry := testEntry("10.00")
		entry.Pending = dec("3.00")
		before := entry.Available()
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		err := deps.service.CommitReservationTx(ctx, tx, entry.ID.String(), dec("3.00"))
		assert.NoError(t, err)
		assert.True(t, entry.Pending.IsZero())
		assert.True(t, entry.Used.Equal(dec("3.00")))
		// Moving days between pending and used leaves available untouched.
		assert.True(t, entry.Available().Equal(before))
	})
}

func TestLedgerService_EnsureEntry(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	employeeID := uuid.New()
	benefitTypeID := uuid.New()

	annualType := &benefit.BenefitType{
		ID:                       benefitTypeID,
		CompanyID:                companyID,
		Name:                     "Annual Leave",
		AccrualMethod:            benefit.AccrualAnnual,
		DefaultAnnualEntitlement: dec("12.00"),
	}

	t.Run("annual full entitlement for employee hired before the year", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		emp := &employee.Employee{
			ID:        employeeID,
			CompanyID: companyID,
			HireDate:  time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC),
		}
		var created *ledger.LedgerEntry
		deps.repo.createEntryFn = func(ctx context.Context, e *ledger.LedgerEntry) (bool, error) {
			created = e
			return true, nil
		}

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		entry, err := deps.service.EnsureEntryTx(ctx, tx, emp, annualType, 2026)
		assert.NoError(t, err)
		assert.NotNil(t, created)
		assert.True(t, entry.Earned.Equal(dec("12.00")))
		assert.True(t, entry.BroughtForward.IsZero())
	})

	t.Run("annual entitlement pro-rated for mid-year hire", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		emp := &employee.Employee{
			ID:        employeeID,
			CompanyID: companyID,
			HireDate:  time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		}
		deps.repo.createEntryFn = func(ctx context.Context, e *ledger.LedgerEntry) (bool, error) { return true, nil }

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		entry, err := deps.service.EnsureEntryTx(ctx, tx, emp, annualType, 2026)
		assert.NoError(t, err)
		// July hire keeps July through December: 12 * 6/12.
		assert.True(t, entry.Earned.Equal(dec("6.00")), "got %s", entry.Earned)
	})

	t.Run("monthly accrual starts at zero", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		monthly := &benefit.BenefitType{
			ID:                       benefitTypeID,
			CompanyID:                companyID,
			AccrualMethod:            benefit.AccrualMonthly,
			DefaultAnnualEntitlement: dec("12.00"),
		}
		emp := &employee.Employee{ID: employeeID, CompanyID: companyID, HireDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
		deps.repo.createEntryFn = func(ctx context.Context, e *ledger.LedgerEntry) (bool, error) { return true, nil }

		tx := beginTestTx(t, deps.db, deps.sqlMock)
		entry, err := deps.service.EnsureEntryTx(ctx, tx, emp, monthly, 2026)
		assert.NoError(t, err)
		assert.True(t, entry.Earned.IsZero())
	})

	t.Run("existing entry returned without creating", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		existing := testEntry("5.00")
		deps.repo.findEntryForUpdateFn = func(ctx context.Context, gotCompany, gotEmployee, gotType string, year int) (*ledger.LedgerEntry, error) {
			return existing, nil
		}
		deps.repo.createEntryFn = func(ctx context.Context, e *ledger.LedgerEntry) (bool, error) {
			t.Fatal("create must not be called")
			return false, nil
		}

		emp := &employee.Employee{ID: employeeID, CompanyID: companyID}
		tx := beginTestTx(t, deps.db, deps.sqlMock)
		entry, err := deps.service.EnsureEntryTx(ctx, tx, emp, annualType, 2026)
		assert.NoError(t, err)
		assert.Equal(t, existing.ID, entry.ID)
	})

	t.Run("losing a concurrent creation race falls back to the winner's row", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		winner := testEntry("12.00")
		locks := 0
		deps.repo.findEntryForUpdateFn = func(ctx context.Context, gotCompany, gotEmployee, gotType string, year int) (*ledger.LedgerEntry, error) {
			locks++
			if locks == 1 {
				// No row yet when this transaction first looks.
				return nil, sql.ErrNoRows
			}
			return winner, nil
		}
		// The insert finds the winner's row already committed and inserts
		// nothing, without erroring the transaction.
		deps.repo.createEntryFn = func(ctx context.Context, e *ledger.LedgerEntry) (bool, error) {
			return false, nil
		}

		emp := &employee.Employee{ID: employeeID, CompanyID: companyID}
		tx := beginTestTx(t, deps.db, deps.sqlMock)
		entry, err := deps.service.EnsureEntryTx(ctx, tx, emp, annualType, 2026)
		assert.NoError(t, err)
		assert.Equal(t, winner.ID, entry.ID)
		assert.Equal(t, 2, locks, "must re-select the row under lock after the conflict")
	})
}

func TestLedgerService_RecordAdjustment(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	actorID := uuid.New()

	t.Run("success credit writes audit row", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		entry := testEntry("10.00")
		entry.CompanyID = companyID
		deps.repo.findEntryByIDFn = func(ctx context.Context, gotCompany, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}
		var audit *ledger.BalanceAdjustment
		deps.repo.createAdjustmentFn = func(ctx context.Context, adj *ledger.BalanceAdjustment) error {
			audit = adj
			return nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		resp, err := deps.service.RecordAdjustment(ctx, companyID.String(), actorID.String(), ledger.AdjustmentRequest{
			LedgerEntryID: entry.ID.String(),
			Type:          ledger.AdjustmentCredit,
			Days:          "2.00",
			Reason:        "service award",
		})
		assert.NoError(t, err)
		assert.NotNil(t, audit)
		assert.Equal(t, "10.00", resp.PreviousBalance)
		assert.Equal(t, "12.00", resp.NewBalance)
		assert.True(t, entry.Adjustments.Equal(dec("2.00")))
	})

	t.Run("negative debit beyond available rejected", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		entry := testEntry("1.00")
		entry.CompanyID = companyID
		deps.repo.findEntryByIDFn = func(ctx context.Context, gotCompany, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		_, err := deps.service.RecordAdjustment(ctx, companyID.String(), actorID.String(), ledger.AdjustmentRequest{
			LedgerEntryID: entry.ID.String(),
			Type:          ledger.AdjustmentDebit,
			Days:          "5.00",
			Reason:        "correction",
		})
		var appErr *apperror.AppError
		assert.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeInsufficientBalance, appErr.Code)
	})

	t.Run("negative unknown adjustment type", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.RecordAdjustment(ctx, companyID.String(), actorID.String(), ledger.AdjustmentRequest{
			LedgerEntryID: uuid.New().String(),
			Type:          "TRANSFER",
			Days:          "1.00",
			Reason:        "x",
		})
		assert.ErrorIs(t, err, ledgererrors.ErrInvalidAdjustmentType)
	})

	t.Run("negative entry from another company invisible", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		deps.repo.findEntryByIDFn = func(ctx context.Context, gotCompany, id string) (*ledger.LedgerEntry, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.RecordAdjustment(ctx, companyID.String(), actorID.String(), ledger.AdjustmentRequest{
			LedgerEntryID: uuid.New().String(),
			Type:          ledger.AdjustmentDebit,
			Days:          "1.00",
			Reason:        "x",
		})
		assert.ErrorIs(t, err, ledgererrors.ErrEntryNotFound)
	})
}

func TestLedgerService_GetBalance_Cache(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New().String()
	employeeID := uuid.New().String()
	benefitTypeID := uuid.New().String()

	t.Run("cache hit skips the repository", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		rdb, redisMock := redismock.NewClientMock()
		repo := &fakeLedgerRepository{
			findEntryFn: func(ctx context.Context, companyID, employeeID, benefitTypeID string, year int) (*ledger.LedgerEntry, error) {
				t.Fatal("repository must not be hit on cache hit")
				return nil, nil
			},
		}
		svc := ledger.NewService(db, repo, &fakeBenefitRepository{}, &fakeEmployeeRepository{}, rdb)

		cached := ledger.BalanceResponse{ID: uuid.New().String(), Available: "7.50", Year: 2026}
		payload, err := json.Marshal(cached)
		assert.NoError(t, err)

		key := "ledger:balance:" + companyID + ":" + employeeID + ":" + benefitTypeID + ":2026"
		redisMock.ExpectGet(key).SetVal(string(payload))

		resp, err := svc.GetBalance(ctx, companyID, employeeID, benefitTypeID, 2026)
		assert.NoError(t, err)
		assert.Equal(t, "7.50", resp.Available)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestLedgerService_RollForwardYear(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	employeeID := uuid.New()
	benefitTypeID := uuid.New()
	now := time.Date(2027, 1, 1, 2, 0, 0, 0, time.UTC)

	expiryMonths := 3
	maxCarry := dec("5.00")
	carryType := &benefit.BenefitType{
		ID:                       benefitTypeID,
		CompanyID:                companyID,
		Name:                     "Annual Leave",
		AccrualMethod:            benefit.AccrualAnnual,
		DefaultAnnualEntitlement: dec("12.00"),
		CarryOverAllowed:         true,
		MaxCarryOverDays:         &maxCarry,
		CarryOverExpiryMonths:    &expiryMonths,
	}

	oldEntry := func() *ledger.LedgerEntry {
		return &ledger.LedgerEntry{
			ID:             uuid.New(),
			CompanyID:      companyID,
			EmployeeID:     employeeID,
			BenefitTypeID:  benefitTypeID,
			Year:           2026,
			BroughtForward: decimal.Zero,
			Earned:         dec("12.00"),
			Used:           dec("4.00"),
			Pending:        dec("2.00"),
			Adjustments:    decimal.Zero,
			Expired:        decimal.Zero,
		}
	}

	setup := func(t *testing.T, entry *ledger.LedgerEntry, bt *benefit.BenefitType) (*ledgerServiceDeps, *[]ledger.LedgerEntry, *[]ledger.LedgerEntry) {
		deps := setupLedgerServiceTest(t)

		deps.benefits.findByIDAndCompanyFn = func(ctx context.Context, gotCompany, id string) (*benefit.BenefitType, error) {
			return bt, nil
		}
		deps.employees.findByIDAndCompanyFn = func(ctx context.Context, gotCompany, id string) (*employee.Employee, error) {
			return &employee.Employee{
				ID:        employeeID,
				CompanyID: companyID,
				HireDate:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			}, nil
		}
		deps.repo.listUnprocessedByYearFn = func(ctx context.Context, gotCompany string, year int) ([]ledger.LedgerEntry, error) {
			return []ledger.LedgerEntry{*entry}, nil
		}
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}
		deps.repo.findEntryForUpdateFn = func(ctx context.Context, gotCompany, gotEmployee, gotType string, year int) (*ledger.LedgerEntry, error) {
			return nil, sql.ErrNoRows
		}

		updated := &[]ledger.LedgerEntry{}
		created := &[]ledger.LedgerEntry{}
		deps.repo.updateAmountsFn = func(ctx context.Context, e *ledger.LedgerEntry) error {
			*updated = append(*updated, *e)
			return nil
		}
		deps.repo.createEntryFn = func(ctx context.Context, e *ledger.LedgerEntry) (bool, error) {
			*created = append(*created, *e)
			return true, nil
		}
		return deps, updated, created
	}

	t.Run("carry-over capped and expiry date set", func(t *testing.T) {
		entry := oldEntry()
		deps, updated, created := setup(t, entry, carryType)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		summary, err := deps.service.RollForwardYear(ctx, companyID.String(), 2026, now)
		assert.NoError(t, err)
		assert.Equal(t, 1, summary.EntriesProcessed)
		// Unused is 12 - 4 = 8; pending is deliberately not subtracted.
		// The cap of 5 carries over, 3 are forfeited.
		assert.True(t, summary.TotalCarriedOver.Equal(dec("5.00")))
		assert.True(t, summary.TotalForfeited.Equal(dec("3.00")))

		assert.Len(t, *updated, 1)
		assert.NotNil(t, (*updated)[0].ProcessedAt)

		assert.Len(t, *created, 1)
		next := (*created)[0]
		assert.Equal(t, 2027, next.Year)
		assert.True(t, next.BroughtForward.Equal(dec("5.00")))
		assert.True(t, next.Earned.Equal(dec("12.00")))
		assert.NotNil(t, next.CarryOverExpiryDate)
		assert.Equal(t, "2027-03-31", next.CarryOverExpiryDate.Format("2006-01-02"))
	})

	t.Run("no carry-over forfeits everything", func(t *testing.T) {
		noCarry := *carryType
		noCarry.CarryOverAllowed = false
		entry := oldEntry()
		deps, _, created := setup(t, entry, &noCarry)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		summary, err := deps.service.RollForwardYear(ctx, companyID.String(), 2026, now)
		assert.NoError(t, err)
		assert.True(t, summary.TotalCarriedOver.IsZero())
		assert.True(t, summary.TotalForfeited.Equal(dec("8.00")))
		assert.True(t, (*created)[0].BroughtForward.IsZero())
	})

	t.Run("already processed entry is skipped", func(t *testing.T) {
		entry := oldEntry()
		stamp := time.Now()
		deps, updated, _ := setup(t, entry, carryType)
		defer deps.db.Close()

		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			e := *entry
			e.ProcessedAt = &stamp
			return &e, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		summary, err := deps.service.RollForwardYear(ctx, companyID.String(), 2026, now)
		assert.NoError(t, err)
		assert.Equal(t, 1, summary.EntriesProcessed)
		assert.True(t, summary.TotalCarriedOver.IsZero())
		assert.Empty(t, *updated)
	})
}

func TestLedgerService_ExpireCarryOver(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	now := time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("unconsumed brought-forward lapses", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		expiry := time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)
		entry := &ledger.LedgerEntry{
			ID:                  uuid.New(),
			CompanyID:           companyID,
			EmployeeID:          uuid.New(),
			BenefitTypeID:       uuid.New(),
			Year:                2027,
			BroughtForward:      dec("5.00"),
			Earned:              dec("12.00"),
			Used:                dec("2.00"),
			Pending:             dec("1.00"),
			Adjustments:         decimal.Zero,
			Expired:             decimal.Zero,
			CarryOverExpiryDate: &expiry,
		}
		deps.repo.listExpirableFn = func(ctx context.Context, gotCompany string, gotNow time.Time) ([]ledger.LedgerEntry, error) {
			return []ledger.LedgerEntry{*entry}, nil
		}
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		count, err := deps.service.ExpireCarryOver(ctx, companyID.String(), now)
		assert.NoError(t, err)
		assert.Equal(t, 1, count)
		// 5 brought forward minus 2 used minus 1 pending leaves 2 to lapse.
		assert.True(t, entry.Expired.Equal(dec("2.00")))
		assert.True(t, entry.CarryOverExpired)
		assert.True(t, entry.Available().Equal(dec("12.00")))
	})

	t.Run("fully consumed carry-over expires nothing", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		expiry := time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)
		entry := &ledger.LedgerEntry{
			ID:                  uuid.New(),
			CompanyID:           companyID,
			EmployeeID:          uuid.New(),
			BenefitTypeID:       uuid.New(),
			Year:                2027,
			BroughtForward:      dec("5.00"),
			Earned:              dec("12.00"),
			Used:                dec("6.00"),
			Pending:             decimal.Zero,
			Adjustments:         decimal.Zero,
			Expired:             decimal.Zero,
			CarryOverExpiryDate: &expiry,
		}
		deps.repo.listExpirableFn = func(ctx context.Context, gotCompany string, gotNow time.Time) ([]ledger.LedgerEntry, error) {
			return []ledger.LedgerEntry{*entry}, nil
		}
		deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
			return entry, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		count, err := deps.service.ExpireCarryOver(ctx, companyID.String(), now)
		assert.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.True(t, entry.Expired.IsZero())
		assert.True(t, entry.CarryOverExpired)
	})
}

func TestLedgerService_RunMonthlyAccrual(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	now := time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC)

	rate := dec("1.25")
	monthlyType := benefit.BenefitType{
		ID:                       uuid.New(),
		CompanyID:                companyID,
		Name:                     "Monthly Leave",
		AccrualMethod:            benefit.AccrualMonthly,
		DefaultAnnualEntitlement: dec("15.00"),
		MonthlyAccrualRate:       &rate,
	}

	activeEmployee := employee.Employee{
		ID:               uuid.New(),
		CompanyID:        companyID,
		EmploymentStatus: employee.StatusActive,
		HireDate:         time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}

	t.Run("accrues the monthly rate once", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		deps.benefits.findMonthlyAccrualByCompanyFn = func(ctx context.Context, gotCompany string) ([]benefit.BenefitType, error) {
			return []benefit.BenefitType{monthlyType}, nil
		}
		deps.employees.findAllActiveByCompanyFn = func(ctx context.Context, gotCompany string) ([]employee.Employee, error) {
			return []employee.Employee{activeEmployee}, nil
		}

		march := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		entry := &ledger.LedgerEntry{
			ID:            uuid.New(),
			CompanyID:     companyID,
			EmployeeID:    activeEmployee.ID,
			BenefitTypeID: monthlyType.ID,
			Year:          2026,
			Earned:        dec("5.00"),
			LastAccrualAt: &march,
		}
		deps.repo.findEntryForUpdateFn = func(ctx context.Context, gotCompany, gotEmployee, gotType string, year int) (*ledger.LedgerEntry, error) {
			return entry, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		summary, err := deps.service.RunMonthlyAccrual(ctx, companyID.String(), now)
		assert.NoError(t, err)
		assert.Equal(t, 1, summary.EmployeesAccrued)
		assert.True(t, entry.Earned.Equal(dec("6.25")))
		assert.Equal(t, now.Month(), entry.LastAccrualAt.Month())
	})

	t.Run("second run in the same month is a no-op", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		deps.benefits.findMonthlyAccrualByCompanyFn = func(ctx context.Context, gotCompany string) ([]benefit.BenefitType, error) {
			return []benefit.BenefitType{monthlyType}, nil
		}
		deps.employees.findAllActiveByCompanyFn = func(ctx context.Context, gotCompany string) ([]employee.Employee, error) {
			return []employee.Employee{activeEmployee}, nil
		}

		stamped := time.Date(2026, 5, 1, 0, 30, 0, 0, time.UTC)
		entry := &ledger.LedgerEntry{
			ID:            uuid.New(),
			CompanyID:     companyID,
			EmployeeID:    activeEmployee.ID,
			BenefitTypeID: monthlyType.ID,
			Year:          2026,
			Earned:        dec("6.25"),
			LastAccrualAt: &stamped,
		}
		deps.repo.findEntryForUpdateFn = func(ctx context.Context, gotCompany, gotEmployee, gotType string, year int) (*ledger.LedgerEntry, error) {
			return entry, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		summary, err := deps.service.RunMonthlyAccrual(ctx, companyID.String(), now)
		assert.NoError(t, err)
		assert.Equal(t, 0, summary.EmployeesAccrued)
		assert.Equal(t, 1, summary.Skipped)
		assert.True(t, entry.Earned.Equal(dec("6.25")))
	})

	t.Run("tenure requirement filters employees", func(t *testing.T) {
		deps := setupLedgerServiceTest(t)
		defer deps.db.Close()

		gated := monthlyType
		gated.MinTenureMonths = 6
		deps.benefits.findMonthlyAccrualByCompanyFn = func(ctx context.Context, gotCompany string) ([]benefit.BenefitType, error) {
			return []benefit.BenefitType{gated}, nil
		}
		newHire := activeEmployee
		newHire.HireDate = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		deps.employees.findAllActiveByCompanyFn = func(ctx context.Context, gotCompany string) ([]employee.Employee, error) {
			return []employee.Employee{newHire}, nil
		}

		summary, err := deps.service.RunMonthlyAccrual(ctx, companyID.String(), now)
		assert.NoError(t, err)
		assert.Equal(t, 0, summary.EmployeesAccrued)
		assert.Equal(t, 1, summary.Skipped)
	})
}

func TestLedgerService_ErrTranslation(t *testing.T) {
	deps := setupLedgerServiceTest(t)
	defer deps.db.Close()

	deps.repo.findEntryByIDForUpdateFn = func(ctx context.Context, id string) (*ledger.LedgerEntry, error) {
		return nil, errors.New("connection reset")
	}

	tx := beginTestTx(t, deps.db, deps.sqlMock)
	err := deps.service.ReserveTx(context.Background(), tx, uuid.New().String(), dec("1.00"))
	assert.Error(t, err)
	var appErr *apperror.AppError
	assert.False(t, errors.As(err, &appErr))
}
