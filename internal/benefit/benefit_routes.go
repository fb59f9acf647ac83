package benefit

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
	types := r.Group("/benefit-types")
	types.Use(middleware.AuthMiddleware())
	{
		types.GET("", middleware.RBACAuthorize(rbacService, "benefit_type", "read"), handler.GetAll)
		types.GET("/:id", middleware.RBACAuthorize(rbacService, "benefit_type", "read"), handler.GetById)
	}
}
