package handlers

import (
	"net/http"
	"strconv"
	"time"

	"garage_door"

	"github.com/gin-gonic/gin"
)

const (
	buildTimestampParam = "buildTimestamp"
	errMissingBuild     = "Missing required parameter: buildTimestamp"
)

// requireBuildTimestamp extracts the device identity or answers 400.
// Returns "" when the request was already handled.
func (h *Handler) requireBuildTimestamp(c *gin.Context) string {
	buildTimestamp := c.Query(buildTimestampParam)
	if buildTimestamp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMissingBuild})
	}
	return buildTimestamp
}

// @Summary      Device check-in
// @Description  One periodic device report of both end-stop sensors.
// @Tags         events
// @Produce      json
// @Param        buildTimestamp  query  string  true   "Device identity"
// @Param        sensorA         query  string  false  "Closed end-stop, '0' or '1'"
// @Param        sensorB         query  string  false  "Open end-stop, '0' or '1'"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/checkin [post]
func (h *Handler) deviceCheckIn(c *gin.Context) {
	buildTimestamp := h.requireBuildTimestamp(c)
	if buildTimestamp == "" {
		return
	}
	snap := garage_door.SensorSnapshot{
		SensorA:           c.Query("sensorA"),
		SensorB:           c.Query("sensorB"),
		ObservedAtSeconds: time.Now().Unix(),
	}
	rec, err := h.services.CheckIn.Process(c.Request.Context(), buildTimestamp, snap)
	if err != nil {
		h.serviceError(c, err, "checkin_failed", "buildTimestamp", buildTimestamp)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// @Summary      Current event
// @Tags         events
// @Produce      json
// @Param        buildTimestamp  query  string  true  "Device identity"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/events/current [get]
func (h *Handler) currentEvent(c *gin.Context) {
	buildTimestamp := h.requireBuildTimestamp(c)
	if buildTimestamp == "" {
		return
	}
	rec, err := h.services.Events.Current(c.Request.Context(), buildTimestamp)
	if err != nil {
		h.serviceError(c, err, "current_event_failed", "buildTimestamp", buildTimestamp)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no current event"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// @Summary      Event history
// @Tags         events
// @Produce      json
// @Param        buildTimestamp       query  string  true   "Device identity"
// @Param        eventHistoryMaxCount query  int     false  "Max records (default 12)"
// @Success      200  {object}  map[string]interface{}  "count, events"
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/events/history [get]
func (h *Handler) eventHistory(c *gin.Context) {
	buildTimestamp := h.requireBuildTimestamp(c)
	if buildTimestamp == "" {
		return
	}
	maxCount := 0
	if qs := c.Query("eventHistoryMaxCount"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid eventHistoryMaxCount"})
			return
		}
		maxCount = v
	}
	events, err := h.services.Events.History(c.Request.Context(), buildTimestamp, maxCount)
	if err != nil {
		h.serviceError(c, err, "event_history_failed", "buildTimestamp", buildTimestamp)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}
