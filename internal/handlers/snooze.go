package handlers

import (
	"net/http"
	"strconv"

	"garage_door/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      Snooze open-door reminders
// @Description  Binds a suppression window to the current event; a mismatched
// @Description  event timestamp means the door state changed underfoot.
// @Tags         snooze
// @Produce      json
// @Security     ApiKeyAuth
// @Param        buildTimestamp        query  string  true  "Device identity"
// @Param        snoozeDuration        query  string  true  "Duration, \"0h\" through \"12h\""
// @Param        snoozeEventTimestamp  query  int     true  "Timestamp of the event being snoozed"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/snooze [post]
func (h *Handler) snoozeSubmit(c *gin.Context) {
	if !h.flags.SnoozeEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Disabled"})
		return
	}
	buildTimestamp := h.requireBuildTimestamp(c)
	if buildTimestamp == "" {
		return
	}
	eventTs, err := strconv.ParseInt(c.Query("snoozeEventTimestamp"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snoozeEventTimestamp"})
		return
	}
	snooze, err := h.services.Snooze.Submit(c.Request.Context(), service.SnoozeSubmitParams{
		BuildTimestamp:       buildTimestamp,
		RequesterEmail:       callerEmail(c),
		SnoozeDuration:       c.Query("snoozeDuration"),
		SnoozeEventTimestamp: eventTs,
	})
	if err != nil {
		h.serviceError(c, err, "snooze_submit_failed", "buildTimestamp", buildTimestamp)
		return
	}
	c.JSON(http.StatusOK, snooze)
}

// @Summary      Snooze status
// @Tags         snooze
// @Produce      json
// @Param        buildTimestamp  query  string  true  "Device identity"
// @Success      200  {object}  map[string]interface{}  "status, snooze"
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/snooze/status [get]
func (h *Handler) snoozeStatus(c *gin.Context) {
	if !h.flags.SnoozeEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Disabled"})
		return
	}
	buildTimestamp := h.requireBuildTimestamp(c)
	if buildTimestamp == "" {
		return
	}
	res, err := h.services.Snooze.Status(c.Request.Context(), buildTimestamp)
	if err != nil {
		h.serviceError(c, err, "snooze_status_failed", "buildTimestamp", buildTimestamp)
		return
	}
	c.JSON(http.StatusOK, res)
}
