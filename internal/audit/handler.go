package audit

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
		logger: logger.With("handler", "audit"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
}

func toResponse(a *Artifact) dto.ArtifactResponse {
	return dto.ArtifactResponse{
		ID:         a.ID,
		RunID:      a.RunID,
		SourcePath: a.SourcePath,
		Path:       a.Path,
		Size:       a.Size,
		SHA256:     a.SHA256,
		MimeType:   a.MimeType,
		Width:      a.Width,
		Height:     a.Height,
		CreatedAt:  a.CreatedAt,
	}
}

func (h *Handler) mapError(err error, op string) error {
	switch {
	case errors.Is(err, shared.ErrDisabled):
		return shared.ServiceUnavailable("audit_disabled", "artifact index is not configured")
	case errors.Is(err, shared.ErrNotFound):
		return shared.NotFound("artifact_not_found", "artifact not found")
	}
	h.logger.Error("artifact query failed", "op", op, "error", err)
	return shared.InternalError(op+"_failed", "failed to query artifacts")
}

// List godoc
// @Summary      List log artifacts
// @Description  Returns indexed log artifacts, newest first
// @Tags         artifacts
// @Produce      json
// @Param        limit   query     int     false  "Maximum number of artifacts (default 50, max 500)"
// @Param        source  query     string  false  "Filter by absolute source path"
// @Param        run_id  query     string  false  "Filter by run"
// @Success      200     {object}  dto.ArtifactListResponse
// @Failure      503     {object}  dto.ErrorResponse
// @Router       /artifacts [get]
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		list []*Artifact
		err  error
	)
	if runID := c.QueryParam("run_id"); runID != "" {
		list, err = h.store.GetByRun(ctx, runID)
	} else {
		limit := 50
		if v, convErr := strconv.Atoi(c.QueryParam("limit")); convErr == nil && v > 0 && v <= 500 {
			limit = v
		}
		list, err = h.store.List(ctx, c.QueryParam("source"), limit)
	}
	if err != nil {
		return h.mapError(err, "list")
	}

	response := make([]dto.ArtifactResponse, len(list))
	for i, a := range list {
		response[i] = toResponse(a)
	}

	return c.JSON(http.StatusOK, dto.ArtifactListResponse{
		Artifacts: response,
		Total:     len(response),
	})
}

// Get godoc
// @Summary      Get a log artifact
// @Tags         artifacts
// @Produce      json
// @Param        id   path      string  true  "Artifact ID"
// @Success      200  {object}  dto.ArtifactResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /artifacts/{id} [get]
func (h *Handler) Get(c echo.Context) error {
	a, err := h.store.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(err, "get")
	}
	return c.JSON(http.StatusOK, toResponse(a))
}
