package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-service/internal/metrics"
	"github.com/SAP-F-2025/exam-service/internal/services"
	"github.com/SAP-F-2025/exam-service/internal/utils"
)

type HandlerManager struct {
	sessionHandler   *SessionHandler
	candidateHandler *CandidateHandler
	adminHandler     *AdminHandler
	health           func(ctx context.Context) error
	metrics          *metrics.Metrics
	adminToken       string
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	metrics *metrics.Metrics,
	adminToken string,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler:   NewSessionHandler(serviceManager.Session(), logger),
		candidateHandler: NewCandidateHandler(serviceManager.Candidate(), logger),
		adminHandler:     NewAdminHandler(serviceManager.Question(), serviceManager.Export(), logger),
		health:           serviceManager.HealthCheck,
		metrics:          metrics,
		adminToken:       adminToken,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)
	if hm.metrics != nil {
		router.GET("/metrics", hm.metrics.Handler())
	}

	v1 := router.Group("/api/v1")
	{
		// Candidate routes
		candidates := v1.Group("/candidates")
		{
			candidates.POST("", hm.candidateHandler.Register)
			candidates.GET("/:telegram_id", hm.candidateHandler.GetCandidate)
			candidates.PUT("/:telegram_id/language", hm.candidateHandler.UpdateLanguage)
			candidates.PUT("/:telegram_id/phone", hm.candidateHandler.UpdatePhone)
		}

		// Session routes, addressed by the opaque session token
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.CreateSession)
			sessions.GET("/:token/current", hm.sessionHandler.GetCurrent)
			sessions.POST("/:token/answers", hm.sessionHandler.RecordAnswer)
			sessions.POST("/:token/answer", hm.sessionHandler.Answer)
			sessions.POST("/:token/next", hm.sessionHandler.Next)
			sessions.POST("/:token/prev", hm.sessionHandler.Prev)
			sessions.POST("/:token/submit", hm.sessionHandler.Submit)
			sessions.GET("/:token/result", hm.sessionHandler.GetResult)
		}

		admin := v1.Group("/admin")
		admin.Use(AdminTokenMiddleware(hm.adminToken))
		{
			admin.POST("/subjects/:id/questions/upload", hm.adminHandler.ImportQuestions)
			admin.PATCH("/questions/:id/active", hm.adminHandler.SetQuestionActive)
			admin.GET("/exports/sessions", hm.adminHandler.ExportSessions)
		}
	}
}

// HealthCheck reports whether the services and their database are reachable
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
