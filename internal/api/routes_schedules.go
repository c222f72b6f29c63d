package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kamrulhasan12345/brainstormers-server/internal/handlers"
)

func registerScheduleRoutes(api *gin.RouterGroup, handler *handlers.ScheduleHandler) {
	group := api.Group("/schedules")
	{
		group.GET("/lectures", handler.Lectures)
		group.GET("/exams", handler.Exams)
	}
}
