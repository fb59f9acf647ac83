package position

import (
	"github.com/helderdene/hris-sub010/internal/middleware"
	"github.com/helderdene/hris-sub010/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService rbac.Service) {
	positions := r.Group("/positions")
	positions.Use(middleware.AuthMiddleware())
	{
		positions.GET("", middleware.RBACAuthorize(rbacService, "position", "read"), h.GetAll)
		positions.GET("/:id", middleware.RBACAuthorize(rbacService, "position", "read"), h.GetById)
	}
}
