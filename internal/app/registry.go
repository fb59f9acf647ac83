package app

import (
	"database/sql"

	"github.com/helderdene/hris-sub010/internal/approval"
	"github.com/helderdene/hris-sub010/internal/attendance"
	"github.com/helderdene/hris-sub010/internal/auth"
	"github.com/helderdene/hris-sub010/internal/benefit"
	"github.com/helderdene/hris-sub010/internal/employee"
	"github.com/helderdene/hris-sub010/internal/jobposting"
	"github.com/helderdene/hris-sub010/internal/leave"
	"github.com/helderdene/hris-sub010/internal/ledger"
	"github.com/helderdene/hris-sub010/internal/messaging/kafka"
	"github.com/helderdene/hris-sub010/internal/middleware"
	"github.com/helderdene/hris-sub010/internal/notify"
	"github.com/helderdene/hris-sub010/internal/overtime"
	"github.com/helderdene/hris-sub010/internal/position"
	"github.com/helderdene/hris-sub010/internal/rbac"
	"github.com/helderdene/hris-sub010/internal/rbac/infra"
	"github.com/helderdene/hris-sub010/internal/rbac/rbac_http"
	"github.com/helderdene/hris-sub010/internal/requisition"
	"github.com/helderdene/hris-sub010/internal/user"
	"github.com/helderdene/hris-sub010/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	logger *zap.Logger,
) error {
	// --- Repositories ---
	rbacRepo := rbac.NewRepository(gormDB)
	authRepo := auth.NewRepository(gormDB)
	userRepo := user.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	benefitRepo := benefit.NewRepository(gormDB)
	positionRepo := position.NewRepository(gormDB)
	attendanceRepo := attendance.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	overtimeRepo := overtime.NewRepository(gormDB)
	requisitionRepo := requisition.NewRepository(gormDB)
	jobPostingRepo := jobposting.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)
	approvalRepo := approval.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)
	inboxRepo := notify.NewInboxRepository(db)

	// --- RBAC core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer, logger)

	// --- Workflow core ---
	ledgerService := ledger.NewService(db, ledgerRepo, benefitRepo, employeeRepo, rdb, logger)
	resolver := approval.NewResolver(employeeRepo, logger)
	notifier := notify.NewOutboxNotifier(outboxRepo, logger)
	engine := workflow.NewEngine(ledgerService, resolver, approvalRepo, notifier, logger)

	// --- Services ---
	authService := auth.NewService(authRepo, rbacService, employeeRepo, logger)
	userService := user.NewService(userRepo, rbacService)
	attendanceService := attendance.NewService(db, attendanceRepo, logger)
	leaveService := leave.NewService(db, leaveRepo, employeeRepo, benefitRepo, ledgerService, engine, logger)
	overtimeService := overtime.NewService(db, overtimeRepo, employeeRepo, benefitRepo, attendanceRepo, ledgerService, engine, logger)
	requisitionService := requisition.NewService(db, requisitionRepo, employeeRepo, jobPostingRepo, engine, logger)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService)
	userHandler := user.NewHandler(userService, logger)
	attendanceHandler := attendance.NewHandler(attendanceService)
	benefitHandler := benefit.NewHandler(benefitRepo, logger)
	positionHandler := position.NewHandler(positionRepo)
	leaveHandler := leave.NewHandler(leaveService, logger)
	overtimeHandler := overtime.NewHandler(overtimeService, logger)
	requisitionHandler := requisition.NewHandler(requisitionService, logger)
	jobPostingHandler := jobposting.NewHandler(jobPostingRepo)
	ledgerHandler := ledger.NewHandler(ledgerService, logger)
	notifyHandler := notify.NewHandler(inboxRepo)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Routes ---
	api := router.Group("/api/v1")
	api.Use(middleware.Idempotency(rdb))
	{
		auth.RegisterRoutes(api, authHandler)
		user.RegisterRoutes(api, userHandler, rbacService, logger)
		attendance.RegisterRoutes(api, attendanceHandler, rbacService)
		benefit.RegisterRoutes(api, benefitHandler, rbacService)
		position.RegisterRoutes(api, positionHandler, rbacService)
		leave.RegisterRoutes(api, leaveHandler, rbacService)
		overtime.RegisterRoutes(api, overtimeHandler, rbacService)
		requisition.RegisterRoutes(api, requisitionHandler, rbacService)
		jobposting.RegisterRoutes(api, jobPostingHandler, rbacService)
		ledger.RegisterRoutes(api, ledgerHandler, rbacService)
		notify.RegisterRoutes(api, notifyHandler)
		rbac_http.RegisterRoutes(api, rbacHandler, rbacService)
	}

	return nil
}
