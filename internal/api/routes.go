package api

import "github.com/gin-gonic/gin"

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	zones := s.router.Group("/zones")
	{
		zones.GET("", s.zoneHandler.ListZones)
		zones.GET("/:id", s.zoneHandler.GetZone)
		zones.GET("/:id/flow", s.zoneHandler.ZoneFlow)
	}

	signals := s.router.Group("/signals")
	{
		signals.GET("", s.signalHandler.ListSignals)
		signals.GET("/events", s.signalHandler.ListEvents)
		signals.POST("/auto-mode", s.signalHandler.ToggleAutoMode)
		signals.POST("/:id/state", s.signalHandler.SetSignalState)
	}

	s.router.GET("/stats", s.zoneHandler.GetStats)
	s.router.GET("/system/stats", s.systemHandler.GetStats)

	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}
}
