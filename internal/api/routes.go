package api

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.ConsoleInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(s.services.Metrics.Handler()))

	live := s.router.Group("/live")
	{
		live.GET("/status", s.liveHandler.GetStatus)
		live.PUT("/mode", s.liveHandler.SetMode)
		live.POST("/play", s.liveHandler.Play)
		live.POST("/pause", s.liveHandler.Pause)
		live.GET("/frame", s.liveHandler.GetFrame)
		live.GET("/stream", gin.WrapH(s.services.Stream))
	}

	alerts := s.router.Group("/alerts")
	{
		alerts.GET("", s.alertHandler.ListAlerts)
		alerts.POST("/:id/confirm", s.alertHandler.ConfirmAlert)
		alerts.POST("/:id/dismiss", s.alertHandler.DismissAlert)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
		system.GET("/debug", s.systemHandler.GetDebugInfo)
	}
}
