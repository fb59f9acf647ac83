package requisition

import (
	"github.com/helderdene/hris-sub010/internal/middleware"
	"github.com/helderdene/hris-sub010/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService rbac.Service) {
	requisitions := r.Group("/requisitions")
	requisitions.Use(middleware.AuthMiddleware())
	{
		requisitions.POST("", middleware.RBACAuthorize(rbacService, "requisition", "create"), h.Create)
		requisitions.POST("/:id/submit", middleware.RBACAuthorize(rbacService, "requisition", "create"), h.Submit)
		requisitions.POST("/:id/approve", middleware.RBACAuthorize(rbacService, "requisition", "approve"), h.Approve)
		requisitions.POST("/:id/reject", middleware.RBACAuthorize(rbacService, "requisition", "approve"), h.Reject)
		requisitions.POST("/:id/cancel", middleware.RBACAuthorize(rbacService, "requisition", "create"), h.Cancel)
		requisitions.GET("", middleware.RBACAuthorize(rbacService, "requisition", "read"), h.GetAll)
		requisitions.GET("/:id", middleware.RBACAuthorize(rbacService, "requisition", "read"), h.GetById)
	}
}
