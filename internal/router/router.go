package router

import (
	"github.com/gin-gonic/gin"

	"github.com/medinote/consent-service/internal/config"
	"github.com/medinote/consent-service/internal/handlers"
	"github.com/medinote/consent-service/internal/middleware"
	"github.com/medinote/consent-service/internal/service"
)

// SetupRouter configures all API routes
func SetupRouter(
	cfg *config.Config,
	tokenService *service.TokenService,
	consentService *service.ConsentService,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationIDMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	consentHandler := handlers.NewConsentHandler(tokenService, consentService)

	v1 := router.Group("/api/v1")
	{
		// Public patient-facing surface: the token inside the body is the
		// sole credential. Everything else requires clinician auth.
		v1.POST("/consent/decisions", consentHandler.SubmitDecision)

		trusted := v1.Group("/consent", middleware.RequireClinician(cfg.Security.APIKey))
		{
			trusted.POST("/tokens", consentHandler.IssueToken)
			trusted.GET("/status/:patientId", consentHandler.CheckStatus)
			trusted.POST("/verbal", consentHandler.RecordVerbalConsent)
			trusted.POST("/withdraw", consentHandler.Withdraw)
			trusted.GET("/history/:patientId", consentHandler.History)
			trusted.GET("/audit/:patientId", consentHandler.AuditTrail)
		}
	}

	return router
}
