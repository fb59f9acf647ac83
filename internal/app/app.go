package app

import (
	"os"

	"github.com/helderdene/hris-sub010/internal/approval"
	"github.com/helderdene/hris-sub010/internal/attendance"
	"github.com/helderdene/hris-sub010/internal/auth"
	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/jobposting"
	"github.com/helderdene/hris-sub010/internal/leave"
	"github.com/helderdene/hris-sub010/internal/ledger"
	"github.com/helderdene/hris-sub010/internal/middleware"
	"github.com/helderdene/hris-sub010/internal/overtime"
	"github.com/helderdene/hris-sub010/internal/requisition"
	"github.com/helderdene/hris-sub010/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func BuildApp(router *gin.Engine) error {
	logger := zap.L()

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
	logger.Info("database connection established")

	if os.Getenv("DB_AUTOMIGRATE") == "true" {
		if err := autoMigrate(gormDB); err != nil {
			return err
		}
		logger.Info("schema migration complete")
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}
	logger.Info("redis connection established")

	router.Use(middleware.RequestID())

	return registerModules(router, sqlDB, gormDB, redisClient, logger)
}

// autoMigrate covers the tables this subsystem owns. The employee and
// position tables belong to the core HR suite and are migrated there.
func autoMigrate(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(
		&auth.User{},
		&benefit.BenefitType{},
		&ledger.LedgerEntry{},
		&ledger.BalanceAdjustment{},
		&approval.ApprovalRecord{},
		&attendance.Attendance{},
		&leave.Leave{},
		&overtime.Overtime{},
		&requisition.Requisition{},
		&jobposting.JobPosting{},
	)
}
