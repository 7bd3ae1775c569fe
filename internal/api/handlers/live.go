package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vigil-live-go/internal/logging"
	"vigil-live-go/internal/models"
	"vigil-live-go/internal/services/framepump"
	"vigil-live-go/internal/services/live"
)

// LiveService is the live view the handlers control
type LiveService interface {
	Status() live.Status
	SetMode(mode models.DetectionMode) error
	Play() error
	Pause()
	LatestFrame() ([]byte, string, error)
}

type LiveHandler struct {
	live LiveService
}

func NewLiveHandler(svc LiveService) *LiveHandler {
	return &LiveHandler{live: svc}
}

type ErrorResponse struct {
	Error string `json:"error" example:"unknown detection mode"`
}

type ModeRequest struct {
	Mode string `json:"mode" binding:"required" example:"fire"`
}

// GetStatus returns the live view state
// @Summary Live status
// @Description Mode, connection state, normalized detection status and playback state
// @Tags live
// @Produce json
// @Success 200 {object} live.Status
// @Router /live/status [get]
func (h *LiveHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.live.Status())
}

// SetMode switches the detection mode
// @Summary Switch detection mode
// @Description Closes the current channel, opens one for the new mode and clears pending alerts
// @Tags live
// @Accept json
// @Produce json
// @Param request body ModeRequest true "Detection mode"
// @Success 200 {object} live.Status
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /live/mode [put]
func (h *LiveHandler) SetMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	mode, err := models.ParseDetectionMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.Set(logging.ModeKey, string(mode))

	if err := h.live.SetMode(mode); err != nil {
		logging.Error(c).Err(err).Msg("Mode switch failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	logging.Info(c).Msg("Mode switched")
	c.JSON(http.StatusOK, h.live.Status())
}

// Play resumes frame sampling
// @Summary Play
// @Tags live
// @Produce json
// @Success 200 {object} live.Status
// @Failure 409 {object} ErrorResponse
// @Router /live/play [post]
func (h *LiveHandler) Play(c *gin.Context) {
	if err := h.live.Play(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, framepump.ErrEnded) {
			status = http.StatusConflict
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.live.Status())
}

// Pause suspends frame sampling
// @Summary Pause
// @Tags live
// @Produce json
// @Success 200 {object} live.Status
// @Router /live/pause [post]
func (h *LiveHandler) Pause(c *gin.Context) {
	h.live.Pause()
	c.JSON(http.StatusOK, h.live.Status())
}

// GetFrame returns the latest annotated frame
// @Summary Latest annotated frame
// @Tags live
// @Produce image/jpeg
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /live/frame [get]
func (h *LiveHandler) GetFrame(c *gin.Context) {
	data, mediaType, err := h.live.LatestFrame()
	if err != nil {
		if errors.Is(err, live.ErrNoFrame) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		logging.Warn(c).Err(err).Msg("Latest frame is not decodable")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, mediaType, data)
}
