package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/handlers"
	wshandler "github.com/voxgate/voxgate/internal/handlers/websocket"
	"github.com/voxgate/voxgate/pkg/Logger"
)

// NewRouter wires the control API routes.
func NewRouter(
	settings *config.Settings,
	voiceHandler *handlers.VoiceHandler,
	statusHandler *wshandler.StatusHandler,
	logger *Logger.Logger,
) *gin.Engine {
	if !settings.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/api/v1/auth/token", voiceHandler.Token)

	api := r.Group("/api/v1")
	api.Use(handlers.AuthMiddleware(settings.Server.AuthSecret, logger))
	{
		api.GET("/status", voiceHandler.Status)
		api.GET("/status/stream", statusHandler.Stream)

		listening := api.Group("/listening")
		{
			listening.POST("/start", voiceHandler.StartListening)
			listening.POST("/stop", voiceHandler.StopListening)
			listening.POST("/reenable", voiceHandler.Reenable)
		}

		enrollment := api.Group("/enrollment")
		{
			enrollment.POST("/start", voiceHandler.BeginEnrollment)
			enrollment.POST("/cancel", voiceHandler.CancelEnrollment)
		}

		api.DELETE("/voiceprint", voiceHandler.ClearVoiceprint)
	}

	return r
}
