package workspace

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/eleven-am/menu-capture/internal/dto"
	"github.com/eleven-am/menu-capture/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	files    *Files
	treeFile string
	logger   *slog.Logger
}

func NewHandler(files *Files, treeFile string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		files:    files,
		treeFile: treeFile,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/tree", h.GetTree)
	g.POST("/tree/refresh", h.RefreshTree)
	g.GET("/raw", h.GetRaw)
	g.POST("/dirs", h.CreateDir)
	g.DELETE("/dirs", h.DeleteDir)
	g.DELETE("", h.DeleteFile)
	g.POST("/images", h.SaveImage)
	g.POST("/json", h.SaveJSON)
}

// @Summary      Get the workspace tree
// @Tags         files
// @Produce      json
// @Success      200  {object}  workspace.Node
// @Failure      500  {object}  shared.APIError
// @Router       /files/tree [get]
func (h *Handler) GetTree(c echo.Context) error {
	tree, err := h.files.Tree()
	if err != nil {
		h.logger.Error("failed to build tree", "error", err)
		return shared.InternalError("tree_failed", "failed to read workspace tree")
	}
	return c.JSON(http.StatusOK, tree)
}

// @Summary      Regenerate the tree file
// @Description  Walks the workspace and rewrites the tree JSON file consumed by the UI
// @Tags         files
// @Produce      json
// @Success      200  {object}  workspace.Node
// @Failure      500  {object}  shared.APIError
// @Router       /files/tree/refresh [post]
func (h *Handler) RefreshTree(c echo.Context) error {
	tree, err := h.files.WriteTree(h.treeFile)
	if err != nil {
		h.logger.Error("failed to write tree", "error", err, "dest", h.treeFile)
		return shared.InternalError("tree_failed", "failed to regenerate tree file")
	}
	return c.JSON(http.StatusOK, tree)
}

// @Summary      Download a file
// @Tags         files
// @Param        path  query  string  true  "root-relative or absolute path"
// @Success      200
// @Failure      400  {object}  shared.APIError
// @Failure      404  {object}  shared.APIError
// @Router       /files/raw [get]
func (h *Handler) GetRaw(c echo.Context) error {
	target, err := h.files.Locate(c.QueryParam("path"))
	if err != nil {
		return h.mapError(err)
	}
	return c.File(target)
}

// @Summary      Create a directory
// @Tags         files
// @Accept       json
// @Produce      json
// @Param        request  body  dto.CreateDirRequest  true  "directory to create"
// @Success      201  {object}  dto.PathResponse
// @Failure      400  {object}  shared.APIError
// @Router       /files/dirs [post]
func (h *Handler) CreateDir(c echo.Context) error {
	var req dto.CreateDirRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	target, err := h.files.CreateDir(req.Path)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusCreated, dto.PathResponse{Path: h.files.Root().Rel(target)})
}

// @Summary      Delete a directory
// @Tags         files
// @Param        path  query  string  true  "directory path"
// @Success      204  "No Content"
// @Failure      400  {object}  shared.APIError
// @Failure      404  {object}  shared.APIError
// @Router       /files/dirs [delete]
func (h *Handler) DeleteDir(c echo.Context) error {
	if err := h.files.RemoveDir(c.QueryParam("path")); err != nil {
		return h.mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// @Summary      Delete a file
// @Tags         files
// @Param        path  query  string  true  "file path"
// @Success      204  "No Content"
// @Failure      400  {object}  shared.APIError
// @Failure      404  {object}  shared.APIError
// @Router       /files [delete]
func (h *Handler) DeleteFile(c echo.Context) error {
	if err := h.files.RemoveFile(c.QueryParam("path")); err != nil {
		return h.mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// @Summary      Save an image
// @Tags         files
// @Accept       json
// @Produce      json
// @Param        request  body  dto.SaveImageRequest  true  "image payload"
// @Success      201  {object}  dto.PathResponse
// @Failure      400  {object}  shared.APIError
// @Router       /files/images [post]
func (h *Handler) SaveImage(c echo.Context) error {
	var req dto.SaveImageRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	target, err := h.files.SaveImage(req.Path, req.Data)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusCreated, dto.PathResponse{Path: h.files.Root().Rel(target)})
}

// @Summary      Save a JSON document
// @Tags         files
// @Accept       json
// @Produce      json
// @Param        request  body  dto.SaveJSONRequest  true  "json payload"
// @Success      201  {object}  dto.PathResponse
// @Failure      400  {object}  shared.APIError
// @Router       /files/json [post]
func (h *Handler) SaveJSON(c echo.Context) error {
	var req dto.SaveJSONRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	target, err := h.files.SaveJSON(req.Path, req.Content)
	if err != nil {
		return h.mapError(err)
	}
	return c.JSON(http.StatusCreated, dto.PathResponse{Path: h.files.Root().Rel(target)})
}

func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidContent):
		return shared.BadRequest("invalid_content", err.Error())
	case errors.Is(err, ErrIsDirectory), errors.Is(err, ErrNotDirectory):
		return shared.Conflict("wrong_type", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		return shared.NotFound("not_found", "path not found")
	}

	var pathErr *shared.InvalidPathError
	if errors.As(err, &pathErr) {
		h.logger.Warn("rejected path", "path", pathErr.Path, "reason", pathErr.Reason)
		return shared.HTTPError(err)
	}

	h.logger.Error("workspace operation failed", "error", err)
	return shared.InternalError("workspace_failed", "workspace operation failed")
}
