package attendance

import (
	"github.com/helderdene/hris-sub010/internal/middleware"
	"github.com/helderdene/hris-sub010/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService rbac.Service) {
	attendances := r.Group("/attendances")
	attendances.Use(middleware.AuthMiddleware())
	{
		attendances.GET("", middleware.RBACAuthorize(rbacService, "attendance", "read"), h.GetAll)
		attendances.GET("/:id", middleware.RBACAuthorize(rbacService, "attendance", "read"), h.GetById)
		attendances.POST("/clock-in", middleware.RBACAuthorize(rbacService, "attendance", "create"), h.ClockIn)
		attendances.POST("/clock-out", middleware.RBACAuthorize(rbacService, "attendance", "create"), h.ClockOut)
	}
}
