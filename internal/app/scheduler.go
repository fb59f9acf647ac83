package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"
	"github.com/helderdene/hris-sub010/internal/ledger"
	"github.com/helderdene/hris-sub010/internal/shared/connection"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	schedulerTickInterval = time.Hour
	jobLockTTL            = 6 * time.Hour
)

// RunScheduler drives the time-based ledger jobs: monthly accrual on the
// first of each month, year-end roll-forward on January 1st, and daily
// carry-over expiry. A redis SetNX lock per (job, company, period) keeps
// replicas from running the same job twice.
func RunScheduler() error {
	logger := zap.L().Named("app.scheduler")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rdb, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}
	defer rdb.Close()

	benefitRepo := benefit.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)
	ledgerService := ledger.NewService(sqlDB, ledgerRepo, benefitRepo, employeeRepo, rdb, logger)

	s := &scheduler{
		rdb:      rdb,
		benefits: benefitRepo,
		ledger:   ledgerService,
		logger:   logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(schedulerTickInterval)
	defer ticker.Stop()

	// Run once at startup so a restart never skips a due period.
	s.tick(ctx, time.Now().UTC())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			logger.Info("scheduler shutting down")
			cancel()
			return nil
		case <-ticker.C:
			s.tick(ctx, time.Now().UTC())
		}
	}
}

type scheduler struct {
	rdb      *redis.Client
	benefits benefit.Repository
	ledger   ledger.Service
	logger   *zap.Logger
}

func (s *scheduler) tick(ctx context.Context, now time.Time) {
	companies, err := s.benefits.ListCompanyIDs(ctx)
	if err != nil {
		s.logger.Error("scheduler tick: listing companies failed", zap.Error(err))
		return
	}

	for _, companyID := range companies {
		if now.Day() == 1 {
			s.runMonthlyAccrual(ctx, companyID, now)
		}
		if now.Month() == time.January && now.Day() == 1 {
			s.runRollForward(ctx, companyID, now)
		}
		s.runExpireCarryOver(ctx, companyID, now)
	}
}

func (s *scheduler) runMonthlyAccrual(ctx context.Context, companyID string, now time.Time) {
	period := now.Format("2006-01")
	if !s.acquireLock(ctx, "accrual", companyID, period) {
		return
	}

	summary, err := s.ledger.RunMonthlyAccrual(ctx, companyID, now)
	if err != nil {
		s.logger.Error("monthly accrual failed",
			zap.String("company_id", companyID),
			zap.String("period", period),
			zap.Error(err),
		)
		// Release so the next tick retries within the same period.
		s.releaseLock(ctx, "accrual", companyID, period)
		return
	}

	s.logger.Info("monthly accrual complete",
		zap.String("company_id", companyID),
		zap.String("period", period),
		zap.Int("benefit_types", summary.BenefitTypes),
		zap.Int("employees_accrued", summary.EmployeesAccrued),
		zap.Int("skipped", summary.Skipped),
	)
}

func (s *scheduler) runRollForward(ctx context.Context, companyID string, now time.Time) {
	fromYear := now.Year() - 1
	period := fmt.Sprintf("%d", fromYear)
	if !s.acquireLock(ctx, "rollforward", companyID, period) {
		return
	}

	summary, err := s.ledger.RollForwardYear(ctx, companyID, fromYear, now)
	if err != nil {
		s.logger.Error("year-end roll-forward failed",
			zap.String("company_id", companyID),
			zap.Int("from_year", fromYear),
			zap.Error(err),
		)
		s.releaseLock(ctx, "rollforward", companyID, period)
		return
	}

	s.logger.Info("year-end roll-forward complete",
		zap.String("company_id", companyID),
		zap.Int("from_year", fromYear),
		zap.Int("entries", summary.EntriesProcessed),
		zap.String("carried_over", summary.TotalCarriedOver.String()),
		zap.String("forfeited", summary.TotalForfeited.String()),
	)
}

func (s *scheduler) runExpireCarryOver(ctx context.Context, companyID string, now time.Time) {
	period := now.Format("2006-01-02")
	if !s.acquireLock(ctx, "expirecarry", companyID, period) {
		return
	}

	expired, err := s.ledger.ExpireCarryOver(ctx, companyID, now)
	if err != nil {
		s.logger.Error("carry-over expiry failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		s.releaseLock(ctx, "expirecarry", companyID, period)
		return
	}

	if expired > 0 {
		s.logger.Info("carry-over expired",
			zap.String("company_id", companyID),
			zap.Int("entries", expired),
		)
	}
}

func jobLockKey(job, companyID, period string) string {
	return fmt.Sprintf("scheduler:lock:%s:%s:%s", job, companyID, period)
}

func (s *scheduler) acquireLock(ctx context.Context, job, companyID, period string) bool {
	ok, err := s.rdb.SetNX(ctx, jobLockKey(job, companyID, period), "1", jobLockTTL).Result()
	if err != nil {
		s.logger.Warn("scheduler lock unavailable",
			zap.String("job", job),
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return false
	}
	return ok
}

func (s *scheduler) releaseLock(ctx context.Context, job, companyID, period string) {
	if err := s.rdb.Del(ctx, jobLockKey(job, companyID, period)).Err(); err != nil {
		s.logger.Warn("scheduler lock release failed", zap.String("job", job), zap.Error(err))
	}
}
