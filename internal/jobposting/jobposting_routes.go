package jobposting

import (
	"github.com/helderdene/hris-sub010/internal/middleware"
	"github.com/helderdene/hris-sub010/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService rbac.Service) {
	postings := r.Group("/job-postings")
	postings.Use(middleware.AuthMiddleware())
	{
		postings.GET("", middleware.RBACAuthorize(rbacService, "jobposting", "read"), h.GetAll)
		postings.GET("/:id", middleware.RBACAuthorize(rbacService, "jobposting", "read"), h.GetById)
	}
}
