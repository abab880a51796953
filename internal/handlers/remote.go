package handlers

import (
	"net/http"

	"garage_door/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      Request a remote button push
// @Description  Asks the device to actuate the door on its next poll.
// @Tags         remote
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        buildTimestamp  query  string  true   "Device identity"
// @Param        buttonAckToken  query  string  false  "Token the device echoes back to acknowledge"
// @Param        session         query  string  false  "Caller session id"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/remote/push [post]
func (h *Handler) remoteButtonPush(c *gin.Context) {
	if !h.flags.RemoteButtonEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Disabled"})
		return
	}
	buildTimestamp := h.requireBuildTimestamp(c)
	if buildTimestamp == "" {
		return
	}
	cmd, err := h.services.RemoteCommand.RequestPush(c.Request.Context(), service.PushParams{
		BuildTimestamp: buildTimestamp,
		RequesterEmail: callerEmail(c),
		ButtonAckToken: c.Query("buttonAckToken"),
		Session:        c.Query("session"),
	})
	if err != nil {
		h.serviceError(c, err, "remote_push_failed", "buildTimestamp", buildTimestamp)
		return
	}
	c.JSON(http.StatusOK, cmd)
}

// @Summary      Device command poll
// @Description  The device reads the outstanding command and reports the ack
// @Description  token it has observed; served state advances accordingly.
// @Tags         remote
// @Produce      json
// @Param        buildTimestamp  query  string  true   "Device identity"
// @Param        buttonAckToken  query  string  false  "Ack token observed by the device"
// @Param        session         query  string  false  "Device session id"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/remote/button [get]
func (h *Handler) remoteButtonPoll(c *gin.Context) {
	if !h.flags.RemoteButtonEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Disabled"})
		return
	}
	buildTimestamp := h.requireBuildTimestamp(c)
	if buildTimestamp == "" {
		return
	}
	cmd, err := h.services.RemoteCommand.DevicePoll(c.Request.Context(), service.PollParams{
		BuildTimestamp:   buildTimestamp,
		ObservedAckToken: c.Query("buttonAckToken"),
		Session:          c.Query("session"),
	})
	if err != nil {
		h.serviceError(c, err, "remote_poll_failed", "buildTimestamp", buildTimestamp)
		return
	}
	c.JSON(http.StatusOK, cmd)
}
