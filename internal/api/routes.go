package api

import (
	"alcyxob/workout-tracker/internal/metrics"
	"alcyxob/workout-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuthSettings configures token verification for the protected routes.
type AuthSettings struct {
	JWTSecret string
	Issuer    string
}

func SetupRoutes(
	router *gin.Engine,
	auth AuthSettings,
	templateService service.TemplateService,
	sessionService service.SessionService,
	metricsManager *metrics.Manager,
	gatherer prometheus.Gatherer,
) {
	templateHandler := NewTemplateHandler(templateService)
	sessionHandler := NewSessionHandler(sessionService, metricsManager)

	authMiddleware := AuthMiddleware(auth.JWTSecret, auth.Issuer)

	router.Use(RequestMetrics(metricsManager))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	protected := router.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			identity, ok := requireIdentity(c)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, gin.H{"subject": identity.Subject, "email": identity.Email})
		})

		// --- Template Routes ---
		templateGroup := protected.Group("/templates")
		{
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.POST("", templateHandler.CreateTemplate)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			templateGroup.PATCH("/:id", templateHandler.UpdateTemplateName)
			templateGroup.DELETE("/:id", templateHandler.RemoveTemplate)
			templateGroup.POST("/:id/exercises", templateHandler.AddExercise)
		}
		protected.PATCH("/template-exercises/:id", templateHandler.UpdateExercise)
		protected.DELETE("/template-exercises/:id", templateHandler.RemoveExercise)

		// POST /api/v1/uploads/images
		protected.POST("/uploads/images", templateHandler.IssueImageUpload)

		// --- Session Routes ---
		// Static segments are registered next to /:id; gin prefers them.
		sessionGroup := protected.Group("/sessions")
		{
			sessionGroup.POST("", sessionHandler.StartSession)
			sessionGroup.GET("/recent", sessionHandler.ListRecent)
			sessionGroup.GET("/active", sessionHandler.GetActiveSession)
			sessionGroup.GET("/history/exercises", sessionHandler.GetPastExercises)
			sessionGroup.GET("/:id", sessionHandler.GetSession)
			sessionGroup.DELETE("/:id", sessionHandler.RemoveSession)
			sessionGroup.GET("/:id/progress", sessionHandler.GetProgress)
			sessionGroup.POST("/:id/complete", sessionHandler.CompleteSession)
			sessionGroup.POST("/:id/exercises", sessionHandler.AddExercise)
		}
		protected.POST("/session-exercises/:id/sets", sessionHandler.AddSet)
		protected.PATCH("/sets/:id", sessionHandler.UpdateSet)
		protected.DELETE("/sets/:id", sessionHandler.RemoveSet)
	}
}
