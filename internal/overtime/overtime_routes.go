package overtime

import (
	"github.com/helderdene/hris-sub010/internal/middleware"
	"github.com/helderdene/hris-sub010/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService rbac.Service) {
	overtimes := r.Group("/overtimes")
	overtimes.Use(middleware.AuthMiddleware())
	{
		overtimes.POST("", middleware.RBACAuthorize(rbacService, "overtime", "create"), h.Create)
		overtimes.POST("/:id/submit", middleware.RBACAuthorize(rbacService, "overtime", "create"), h.Submit)
		overtimes.POST("/:id/approve", middleware.RBACAuthorize(rbacService, "overtime", "approve"), h.Approve)
		overtimes.POST("/:id/reject", middleware.RBACAuthorize(rbacService, "overtime", "approve"), h.Reject)
		overtimes.POST("/:id/cancel", middleware.RBACAuthorize(rbacService, "overtime", "create"), h.Cancel)
		overtimes.GET("", middleware.RBACAuthorize(rbacService, "overtime", "read"), h.GetAll)
		overtimes.GET("/:id", middleware.RBACAuthorize(rbacService, "overtime", "read"), h.GetById)
	}
}
