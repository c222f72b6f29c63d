package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kamrulhasan12345/brainstormers-server/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/unread-count", handler.UnreadCount)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/:id/read", handler.MarkRead)
		group.DELETE("/:id", handler.Delete)

		group.POST("/dispatch", handler.Dispatch)
		group.POST("/preview", handler.Preview)
	}

	api.GET("/ws/notifications", handler.Stream)
}
