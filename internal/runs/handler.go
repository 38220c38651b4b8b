package runs

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eleven-am/menu-capture/internal/dto"
	"github.com/eleven-am/menu-capture/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With("handler", "runs"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
}

func runToResponse(r *Run) dto.RunResponse {
	return dto.RunResponse{
		ID:              r.ID,
		Mode:            r.Mode.String(),
		TargetPath:      r.TargetPath,
		ArtifactPath:    r.ArtifactPath,
		Status:          string(r.Status),
		Fragments:       r.Fragments,
		Bytes:           r.Bytes,
		FirstFragmentMs: r.FirstFragmentMs,
		DurationMs:      r.DurationMs,
		Error:           r.Error,
		StartedAt:       r.StartedAt,
		EndedAt:         r.EndedAt,
	}
}

func queryInt(c echo.Context, name string, def, upper int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}

// List godoc
// @Summary      List recent runs
// @Description  Returns the most recent transcription runs, newest first
// @Tags         runs
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of runs (default 20, max 200)"
// @Success      200    {object}  dto.RunListResponse
// @Failure      500    {object}  dto.ErrorResponse
// @Router       /runs [get]
func (h *Handler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 20, 200)

	list, err := h.store.List(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		return shared.InternalError("list_failed", "failed to list runs")
	}

	response := make([]dto.RunResponse, len(list))
	for i, r := range list {
		response[i] = runToResponse(r)
	}

	return c.JSON(http.StatusOK, dto.RunListResponse{
		Runs:  response,
		Total: len(response),
	})
}

// Get godoc
// @Summary      Get a run
// @Tags         runs
// @Produce      json
// @Param        id   path      string  true  "Run ID"
// @Success      200  {object}  dto.RunResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /runs/{id} [get]
func (h *Handler) Get(c echo.Context) error {
	id := c.Param("id")

	run, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NotFound("run_not_found", "run not found")
		}
		h.logger.Error("failed to get run", "error", err, "run_id", id)
		return shared.InternalError("get_failed", "failed to get run")
	}

	return c.JSON(http.StatusOK, runToResponse(run))
}

// Stats godoc
// @Summary      Daily run counters
// @Tags         runs
// @Produce      json
// @Param        days  query     int  false  "Number of days, today first (default 7, max 30)"
// @Success      200   {object}  dto.RunStatsListResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /runs/stats [get]
func (h *Handler) Stats(c echo.Context) error {
	days := queryInt(c, "days", 7, maxStatDays)

	stats, err := h.store.Stats(c.Request().Context(), days)
	if err != nil {
		h.logger.Error("failed to get run stats", "error", err)
		return shared.InternalError("stats_failed", "failed to get run stats")
	}

	response := make([]dto.RunStatsResponse, len(stats))
	for i, d := range stats {
		response[i] = dto.RunStatsResponse{
			Date:          d.Date,
			Started:       d.Started,
			Completed:     d.Completed,
			Failed:        d.Failed,
			Cancelled:     d.Cancelled,
			Fragments:     d.Fragments,
			Bytes:         d.Bytes,
			AvgDurationMs: d.AvgDurationMs,
		}
	}

	return c.JSON(http.StatusOK, dto.RunStatsListResponse{
		Days:  days,
		Stats: response,
	})
}
