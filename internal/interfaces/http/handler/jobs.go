package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/scheduler"
)

// Background job names as registered with the scheduler.
const (
	JobStatusRefresh = "status-refresh"
	JobOnHoldRepair  = "on-hold-repair"
)

// JobsHandler exposes manual triggers and run history for background jobs
type JobsHandler struct {
	BaseHandler
	sched *scheduler.Scheduler
}

// NewJobsHandler creates a new JobsHandler
func NewJobsHandler(sched *scheduler.Scheduler) *JobsHandler {
	return &JobsHandler{sched: sched}
}

// RegisterRoutes registers job routes on the API group
func (h *JobsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	jobs := rg.Group("/jobs")
	jobs.POST("/:name/run", h.Run)
	jobs.GET("/history", h.History)
}

// Run godoc
// @Summary      Run a background job now
// @Description  Trigger one immediate run of a registered background job and wait for its report
// @Tags         jobs
// @Produce      json
// @Param        name path string true "Job name" Enums(status-refresh, on-hold-repair)
// @Success      200 {object} dto.Response{data=scheduler.RunRecord}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /jobs/{name}/run [post]
func (h *JobsHandler) Run(c *gin.Context) {
	name := c.Param("name")

	record, err := h.sched.TriggerNow(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			h.NotFound(c, "Unknown job: "+name)
			return
		}
		h.InternalError(c, err.Error())
		return
	}

	h.Success(c, record)
}

// History godoc
// @Summary      List recent job runs
// @Description  List recent background job runs, newest first
// @Tags         jobs
// @Produce      json
// @Success      200 {object} dto.Response{data=[]scheduler.RunRecord}
// @Security     BearerAuth
// @Router       /jobs/history [get]
func (h *JobsHandler) History(c *gin.Context) {
	h.Success(c, h.sched.History())
}
