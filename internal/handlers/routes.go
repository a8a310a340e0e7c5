package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything Register mounts.
type Handlers struct {
	Health    *HealthHandler
	Parcels   *ParcelHandler
	Selection *SelectionHandler
	Projects  *ProjectHandler
}

// Register mounts the health, metrics and API v1 routes on router.
func Register(router *gin.Engine, h Handlers) {
	router.GET("/health", h.Health.Health)
	router.GET("/health/ready", h.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", h.Health.Info)
		v1.GET("/divisions", h.Parcels.Divisions)

		parcels := v1.Group("/parcels")
		{
			parcels.GET("", h.Parcels.List)
			parcels.GET("/counts", h.Parcels.Counts)
			parcels.GET("/at-point", h.Parcels.AtPoint)
			parcels.GET("/:id", h.Parcels.Get)
		}

		sel := v1.Group("/selection")
		{
			sel.GET("", h.Selection.Current)
			sel.POST("/pick", h.Selection.Pick)
			sel.POST("/remove", h.Selection.Remove)
			sel.POST("/reorder", h.Selection.Reorder)
			sel.POST("/clear", h.Selection.Clear)
			sel.POST("/restore/:projectId", h.Selection.Restore)
		}

		projects := v1.Group("/projects")
		{
			projects.GET("", h.Projects.List)
			projects.POST("", h.Projects.Create)
			projects.GET("/:id", h.Projects.Get)
			projects.PUT("/:id", h.Projects.Update)
			projects.PATCH("/:id/name", h.Projects.Rename)
			projects.DELETE("/:id", h.Projects.Delete)
		}

		v1.POST("/admin/reload", h.Parcels.Reload)
	}
}
