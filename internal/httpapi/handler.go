package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/bartek5186/catalog2dw/internal/pipeline"
	"github.com/bartek5186/catalog2dw/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Runner interface {
	Run(ctx context.Context, ev *pipeline.Event, names ...string) error
}

type StatusSource interface {
	Status() scheduler.Status
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	log     zerolog.Logger
	runner  Runner
	sched   StatusSource
	version string
}

// NewHandler creates a new HTTP handler. sched may be nil when no scheduler runs.
func NewHandler(log zerolog.Logger, runner Runner, sched StatusSource, version string) *Handler {
	return &Handler{log: log, runner: runner, sched: sched, version: version}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "catalog2dw",
		"version": h.version,
	})
}

// RunStage runs one named stage with the JSON event in the body.
func (h *Handler) RunStage(c *gin.Context) {
	name := c.Param("name")
	if _, ok := pipeline.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown stage " + name, "stages": pipeline.Names()})
		return
	}
	h.run(c, name)
}

// RunPipeline runs scrape, generate and load.
func (h *Handler) RunPipeline(c *gin.Context) {
	h.run(c, pipeline.Full...)
}

func (h *Handler) SchedulerStatus(c *gin.Context) {
	if h.sched == nil {
		c.JSON(http.StatusOK, scheduler.Status{})
		return
	}
	c.JSON(http.StatusOK, h.sched.Status())
}

func (h *Handler) run(c *gin.Context, names ...string) {
	ev := &pipeline.Event{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	err := h.runner.Run(c.Request.Context(), ev, names...)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, ev)
	case errors.Is(err, pipeline.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrUnknownStage):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Strs("stages", names).Str("run_id", ev.RunID).Msg("triggered run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "event": ev})
	}
}
