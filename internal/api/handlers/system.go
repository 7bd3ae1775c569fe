package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"vigil-live-go/internal/services/channel"
)

// ChannelInspector exposes the raw channel state for debugging
type ChannelInspector interface {
	Status() channel.Status
}

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	ConsoleID string
	startedAt time.Time
	channels  ChannelInspector
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(consoleID string, channels ChannelInspector) *SystemHandler {
	return &SystemHandler{
		ConsoleID: consoleID,
		startedAt: time.Now(),
		channels:  channels,
	}
}

// @Summary Get system stats
// @Description Get process statistics
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"console_id":     h.ConsoleID,
			"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
			"memory_mb":      m.Alloc / 1024 / 1024,
			"cpu_cores":      runtime.NumCPU(),
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
		},
		"timestamp": time.Now().Unix(),
	})
}

// @Summary Get debug info
// @Description Get the raw inference channel state for troubleshooting
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/debug [get]
func (h *SystemHandler) GetDebugInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"debug": gin.H{
			"console_id": h.ConsoleID,
			"channel":    h.channels.Status(),
			"endpoints":  []string{"/health", "/live", "/alerts", "/system", "/metrics"},
		},
		"timestamp": time.Now().Unix(),
	})
}
