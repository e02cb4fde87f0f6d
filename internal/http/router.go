package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	matchH *MatchHandler,
	evalH *EvaluationHandler,
	profileH *ProfileHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	patients := r.Group("/patients/:id")
	patients.GET("/recommendations", matchH.Recommendations)
	patients.GET("/matches", matchH.PatientMatches)

	matches := r.Group("/matches")
	matches.POST("", matchH.CreateMatch)
	matches.POST("/:id/cancel", matchH.CancelMatch)
	matches.POST("/:id/complete", matchH.CompleteMatch)
	matches.GET("/:id/history", matchH.MatchEntries)

	r.GET("/evaluations", evalH.Evaluate)

	profiles := r.Group("/profiles")
	profiles.GET("/questions", profileH.Questions)
	profiles.PUT("/:owner_type/:owner_id/answers", profileH.SubmitAnswers)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
