package notify

import (
	"github.com/helderdene/hris-sub010/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	{
		notifications.GET("", handler.List)
		notifications.PATCH("/:id/read", handler.MarkRead)
	}
}
