package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"vigil-live-go/internal/logging"
	"vigil-live-go/internal/models"
	"vigil-live-go/internal/services/alertfeed"
)

// AlertService is the alert feed the handlers triage
type AlertService interface {
	Alerts() []models.Alert
	ConfirmAlert(ctx context.Context, id int64) error
	DismissAlert(id int64) error
}

type AlertHandler struct {
	alerts         AlertService
	confirmTimeout time.Duration
}

func NewAlertHandler(svc AlertService, confirmTimeout time.Duration) *AlertHandler {
	return &AlertHandler{alerts: svc, confirmTimeout: confirmTimeout}
}

type AlertListResponse struct {
	Alerts []models.Alert `json:"alerts"`
	Count  int            `json:"count" example:"1"`
}

type AlertActionResponse struct {
	ID     int64  `json:"id" example:"1709647629000"`
	Action string `json:"action" example:"confirmed"`
}

// ListAlerts returns pending alerts
// @Summary List pending alerts
// @Description Pending alerts, newest first
// @Tags alerts
// @Produce json
// @Success 200 {object} AlertListResponse
// @Router /alerts [get]
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	alerts := h.alerts.Alerts()
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, AlertListResponse{Alerts: alerts, Count: len(alerts)})
}

// ConfirmAlert records the alert as an incident
// @Summary Confirm an alert
// @Description Forwards the alert as an incident and removes it. If delivery fails the alert is kept.
// @Tags alerts
// @Produce json
// @Param id path int true "Alert ID"
// @Success 200 {object} AlertActionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /alerts/{id}/confirm [post]
func (h *AlertHandler) ConfirmAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if h.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.confirmTimeout)
		defer cancel()
	}

	if err := h.alerts.ConfirmAlert(ctx, id); err != nil {
		switch {
		case errors.Is(err, alertfeed.ErrAlertNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, alertfeed.ErrConfirmInProgress):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		default:
			logging.Warn(c).Err(err).Int64("alert_id", id).Msg("Confirmation not delivered, alert kept")
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		}
		return
	}

	logging.Info(c).Int64("alert_id", id).Msg("Alert confirmed")
	c.JSON(http.StatusOK, AlertActionResponse{ID: id, Action: "confirmed"})
}

// DismissAlert drops the alert
// @Summary Dismiss an alert
// @Tags alerts
// @Produce json
// @Param id path int true "Alert ID"
// @Success 200 {object} AlertActionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /alerts/{id}/dismiss [post]
func (h *AlertHandler) DismissAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}

	if err := h.alerts.DismissAlert(id); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, AlertActionResponse{ID: id, Action: "dismissed"})
}

func alertID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid alert id"})
		return 0, false
	}
	return id, true
}
