package ledger

import (
	"github.com/helderdene/hris-sub010/internal/middleware"
	"github.com/helderdene/hris-sub010/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	balances := r.Group("/balances")
	balances.Use(middleware.AuthMiddleware())
	{
		balances.GET("/:employeeId/:benefitTypeId", middleware.RBACAuthorize(rbacService, "balance", "read"), handler.GetBalance)
	}

	adjustments := r.Group("/balance-adjustments")
	adjustments.Use(middleware.AuthMiddleware())
	{
		adjustments.POST("", middleware.RBACAuthorize(rbacService, "balance", "adjust"), handler.CreateAdjustment)
		adjustments.GET("/entry/:entryId", middleware.RBACAuthorize(rbacService, "balance", "read"), handler.ListAdjustments)
	}
}
