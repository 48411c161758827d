package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	voice "github.com/voxgate/voxgate/internal/domains/voice"
	"github.com/voxgate/voxgate/pkg/Logger"
)

// VoiceHandler exposes the voice pipeline over the control API.
type VoiceHandler struct {
	svc        *voice.Service
	logger     *Logger.Logger
	authSecret string
}

// NewVoiceHandler creates a new voice handler
func NewVoiceHandler(svc *voice.Service, authSecret string, logger *Logger.Logger) *VoiceHandler {
	return &VoiceHandler{
		svc:        svc,
		logger:     logger,
		authSecret: authSecret,
	}
}

// Status reports the current pipeline state.
func (h *VoiceHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Listening: h.svc.Listening(),
		Enrolled:  h.svc.Enrolled(),
		Enrolling: h.svc.Enrolling(),
		State:     h.svc.MachineState(),
		Last:      h.svc.Status(),
	})
}

// StartListening enables wake detection.
func (h *VoiceHandler) StartListening(c *gin.Context) {
	if err := h.svc.StartListening(); err != nil {
		status := http.StatusConflict
		if err == voice.ErrEnrollmentRunning {
			status = http.StatusLocked
		}
		c.JSON(status, ErrorResponse{Error: "Could not start listening", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Listening started"})
}

// StopListening disables wake detection.
func (h *VoiceHandler) StopListening(c *gin.Context) {
	h.svc.StopListening()
	c.JSON(http.StatusOK, SuccessResponse{Message: "Listening stopped"})
}

// Reenable clears a fatal recognition lockout.
func (h *VoiceHandler) Reenable(c *gin.Context) {
	h.svc.Reenable()
	c.JSON(http.StatusOK, SuccessResponse{Message: "Listening re-enabled"})
}

// BeginEnrollment starts the guided voiceprint enrollment flow.
func (h *VoiceHandler) BeginEnrollment(c *gin.Context) {
	if err := h.svc.BeginEnrollment(); err != nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Could not start enrollment", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Enrollment started"})
}

// CancelEnrollment aborts an in-progress enrollment.
func (h *VoiceHandler) CancelEnrollment(c *gin.Context) {
	h.svc.CancelEnrollment()
	c.JSON(http.StatusOK, SuccessResponse{Message: "Enrollment cancelled"})
}

// ClearVoiceprint deletes the stored voiceprint.
func (h *VoiceHandler) ClearVoiceprint(c *gin.Context) {
	if err := h.svc.ClearVoiceprint(); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Could not clear voiceprint", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Voiceprint cleared"})
}

// Token exchanges the shared secret for a bearer token.
func (h *VoiceHandler) Token(c *gin.Context) {
	if h.authSecret == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Authentication disabled"})
		return
	}
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request data", Details: err.Error()})
		return
	}
	if req.Secret != h.authSecret {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid secret"})
		return
	}
	subject := req.Subject
	if subject == "" {
		subject = "controller"
	}
	token, err := IssueToken(h.authSecret, subject, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Could not issue token", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token})
}
