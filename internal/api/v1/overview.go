package v1

import (
	"net/http"
	"strconv"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/service"
	"github.com/gin-gonic/gin"
)

// OverviewHandler serves the operations dashboard endpoints
type OverviewHandler struct {
	overview service.OverviewService
	runs     service.JobRunService
	logger   *logger.Logger
}

// NewOverviewHandler creates a new overview handler
func NewOverviewHandler(
	overview service.OverviewService,
	runs service.JobRunService,
	logger *logger.Logger,
) *OverviewHandler {
	return &OverviewHandler{
		overview: overview,
		runs:     runs,
		logger:   logger,
	}
}

// @Summary Operations overview
// @Description Collection counters and the most recent job runs
// @Tags Overview
// @Produce json
// @Success 200 {object} service.Overview
// @Router /overview [get]
func (h *OverviewHandler) GetOverview(c *gin.Context) {
	overview, err := h.overview.GetOverview(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to build overview", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// @Summary List recent job runs
// @Description The newest entries of the job run ledger
// @Tags Overview
// @Produce json
// @Param limit query int false "Maximum runs to return"
// @Success 200 {array} jobrun.JobRun
// @Router /job-runs [get]
func (h *OverviewHandler) ListJobRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.Error(ierr.NewError("invalid limit").
				WithHint("Limit must be a non-negative integer").
				Mark(ierr.ErrValidation))
			return
		}
		limit = parsed
	}

	runs, err := h.runs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorw("failed to list job runs", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, runs)
}
