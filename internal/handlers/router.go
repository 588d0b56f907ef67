package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/edforge/test-session-service/internal/monitor"
	"github.com/edforge/test-session-service/internal/services"
	"github.com/edforge/test-session-service/internal/utils"
)

type HandlerManager struct {
	sessionHandler    *SessionHandler
	testHandler       *TestHandler
	connectionHandler *ConnectionHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	m *monitor.Monitor,
	validator *utils.Validator,
	logger utils.Logger,
	redirects RedirectTargets,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(
			serviceManager.Resolver(),
			serviceManager.Session(),
			serviceManager.Report(),
			validator,
			logger,
			redirects,
		),
		testHandler:       NewTestHandler(serviceManager.Resolver(), logger),
		connectionHandler: NewConnectionHandler(m, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "test-session-service",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(auth)
	{
		v1.GET("/tests", hm.testHandler.ListTests)

		sessions := v1.Group("/test-sessions")
		{
			sessions.POST("", hm.sessionHandler.CreateSession)
			sessions.POST("/resolve", hm.sessionHandler.Resolve)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.POST("/:id/questions/:question_id/submit", hm.sessionHandler.SubmitAnswer)
			sessions.GET("/:id/report", hm.sessionHandler.ExportReport)
		}

		connection := v1.Group("/connection")
		{
			connection.GET("/status", hm.connectionHandler.Status)
			connection.POST("/heartbeat", hm.connectionHandler.Heartbeat)
		}
	}
}
