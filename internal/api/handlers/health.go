package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ConsoleID string
	Version   string
}

func NewHealthHandler(consoleID, version string) *HealthHandler {
	return &HealthHandler{ConsoleID: consoleID, Version: version}
}

type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	ConsoleID string `json:"console_id" example:"console-1"`
}

type ConsoleInfoResponse struct {
	ConsoleID    string   `json:"console_id" example:"console-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the console is healthy and responsive
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		ConsoleID: h.ConsoleID,
	})
}

// @Summary Console information
// @Description Get basic console information and capabilities
// @Tags health
// @Produce json
// @Success 200 {object} ConsoleInfoResponse
// @Router / [get]
func (h *HealthHandler) ConsoleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, ConsoleInfoResponse{
		ConsoleID: h.ConsoleID,
		Status:    "running",
		Version:   h.Version,
		Capabilities: []string{
			"live_detection",
			"alert_triage",
			"incident_confirmation",
		},
	})
}
