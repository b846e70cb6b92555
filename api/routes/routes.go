package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taxkit/tax-document-renamer/api/handlers"
	"github.com/taxkit/tax-document-renamer/api/middleware"
)

// SetupRoutes wires all API routes.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	runs := v1.Group("/runs")
	{
		runs.POST("", h.Run.SubmitRun)
		runs.GET("", h.Run.ListRuns)
		runs.GET("/:runId", h.Run.GetRun)
		runs.GET("/:runId/decisions", h.Run.ListDecisions)
		runs.GET("/:runId/task", h.Run.TaskStatus)
		runs.GET("/:runId/export", h.Run.ExportRun)
		runs.POST("/:runId/period", h.Run.ForcePeriod)
		runs.DELETE("/:runId", h.Run.CancelRun)
	}
}
