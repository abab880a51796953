package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type retentionInput struct {
	OlderThan string `json:"olderThan" binding:"required"`
	DryRun    bool   `json:"dryRun"`
}

// @Summary      Purge event and command history
// @Description  Deletes history rows older than the given retention window.
// @Description  Current-state rows are never touched. Set dryRun to count only.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        input  body  retentionInput  true  "Retention window, e.g. {\"olderThan\":\"720h\"}"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/admin/retention [post]
func (h *Handler) purgeHistory(c *gin.Context) {
	var input retentionInput
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}
	olderThan, err := time.ParseDuration(input.OlderThan)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid olderThan duration"})
		return
	}
	res, err := h.services.Maintenance.PurgeHistory(c.Request.Context(), olderThan, input.DryRun)
	if err != nil {
		h.serviceError(c, err, "retention_failed", "olderThan", input.OlderThan)
		return
	}
	if h.log != nil {
		h.log.Infow("retention_applied",
			"cutoff", res.CutoffSeconds,
			"dryRun", res.DryRun,
			"eventRows", res.EventRows,
			"commandRows", res.CommandRows,
			"requestedBy", callerEmail(c),
		)
	}
	c.JSON(http.StatusOK, res)
}
