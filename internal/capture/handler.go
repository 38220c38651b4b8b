package capture

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/menu-capture/internal/dto"
	"github.com/eleven-am/menu-capture/internal/relay"
	"github.com/eleven-am/menu-capture/internal/shared"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	HeaderRunID = "X-Run-ID"

	wsRequestWait    = 30 * time.Second
	maxRequestSize   = 64 * 1024
	wsCloseAppOffset = 4000
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Handler struct {
	service *Service
	relay   *relay.Relay
	limiter *RateLimiter
	logger  *slog.Logger
}

func NewHandler(service *Service, r *relay.Relay, limiter *RateLimiter, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		relay:   r,
		limiter: limiter,
		logger:  logger.With("handler", "capture"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, h.limiter.Middleware())
	}
	g.POST("/stream", h.Stream, mw...)
	g.POST("", h.Transcribe, mw...)
	g.GET("/ws", h.WebSocket, mw...)
}

func validateCaptureRequest(req *dto.CaptureRequest) error {
	if strings.TrimSpace(req.TargetPath) == "" {
		return shared.NewAPIError("validation_failed", "invalid request").
			WithDetails([]dto.ValidationError{{Field: "target_path", Message: "target_path is required"}}).
			ToHTTP(http.StatusBadRequest)
	}
	return nil
}

func bindCaptureRequest(c echo.Context) (dto.CaptureRequest, error) {
	var req dto.CaptureRequest
	if err := c.Bind(&req); err != nil {
		return req, shared.BadRequest("invalid_request", "invalid request body")
	}
	return req, validateCaptureRequest(&req)
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// Stream godoc
// @Summary      Transcribe a menu screenshot as a live stream
// @Description  Preprocesses the image at target_path, sends it to the completion service and relays the
// @Description  answer fragments as they arrive. The body is the raw concatenation of the fragments and ends
// @Description  when the connection closes. Errors detected before the first fragment are returned as JSON.
// @Tags         transcriptions
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      dto.CaptureRequest  true  "Capture request"
// @Success      200      {string}  string              "Streamed JSON text"
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      429      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Failure      502      {object}  dto.ErrorResponse
// @Failure      503      {object}  dto.ErrorResponse
// @Router       /transcriptions/stream [post]
func (h *Handler) Stream(c echo.Context) error {
	req, err := bindCaptureRequest(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()

	sink, err := relay.NewHTTPSink(c.Response())
	if err != nil {
		return shared.InternalError("streaming_unsupported", "streaming is not supported")
	}

	pending, err := h.service.Open(ctx, req, shared.ModeStream)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return shared.HTTPError(err)
	}

	c.Response().Header().Set(HeaderRunID, pending.Run.ID)

	session, err := h.relay.With("request_id", requestID(c), "run_id", pending.Run.ID).
		Pump(ctx, pending.Stream, sink, func() { pending.Stream.Close() })
	h.service.Finish(ctx, pending, session, err)

	switch {
	case err == nil:
		sink.Finish()
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	case !sink.Written():
		return shared.HTTPError(err)
	}

	// Bytes already reached the caller. Abort the connection so the
	// truncation shows instead of a clean end of stream.
	panic(http.ErrAbortHandler)
}

// Transcribe godoc
// @Summary      Transcribe a menu screenshot
// @Description  Buffered variant of the stream endpoint: waits for the complete answer
// @Tags         transcriptions
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CaptureRequest  true  "Capture request"
// @Success      200      {object}  dto.TranscriptionResponse
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse
// @Failure      429      {object}  dto.ErrorResponse
// @Failure      500      {object}  dto.ErrorResponse
// @Failure      502      {object}  dto.ErrorResponse
// @Failure      503      {object}  dto.ErrorResponse
// @Router       /transcriptions [post]
func (h *Handler) Transcribe(c echo.Context) error {
	req, err := bindCaptureRequest(c)
	if err != nil {
		return err
	}

	resp, err := h.service.Transcribe(c.Request().Context(), req)
	if err != nil {
		return shared.HTTPError(err)
	}

	c.Response().Header().Set(HeaderRunID, resp.RunID)
	return c.JSON(http.StatusOK, resp)
}

// WebSocket godoc
// @Summary      Transcribe over a websocket
// @Description  The first client message is a CaptureRequest JSON object. Each fragment is sent as one text
// @Description  message and the server closes normally at the end. Failures close with code 4000+HTTP status
// @Description  and the error code as reason, or 1011 once fragments were sent.
// @Tags         transcriptions
// @Router       /transcriptions/ws [get]
func (h *Handler) WebSocket(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return nil
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	sink := relay.NewWSSink(ws)

	ws.SetReadLimit(maxRequestSize)
	_ = ws.SetReadDeadline(time.Now().Add(wsRequestWait))

	var req dto.CaptureRequest
	_, data, err := ws.ReadMessage()
	if err != nil {
		h.logger.Debug("websocket closed before request", "error", err)
		return nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		h.closeWithError(sink, shared.BadRequest("invalid_request", "invalid request body"))
		return nil
	}
	if err := validateCaptureRequest(&req); err != nil {
		h.closeWithError(sink, err)
		return nil
	}
	_ = ws.SetReadDeadline(time.Time{})

	// A client that goes away shows up as a read error.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pending, err := h.service.Open(ctx, req, shared.ModeWebSocket)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.closeWithError(sink, shared.HTTPError(err))
		}
		return nil
	}

	session, err := h.relay.With("request_id", requestID(c), "run_id", pending.Run.ID).
		Pump(ctx, pending.Stream, sink, func() { pending.Stream.Close() })
	h.service.Finish(ctx, pending, session, err)

	return nil
}

func (h *Handler) closeWithError(sink *relay.WSSink, err error) {
	httpErr := shared.HTTPError(err)
	reason := http.StatusText(httpErr.Code)
	if apiErr, ok := httpErr.Message.(*shared.APIError); ok {
		reason = apiErr.Code
	}
	if cerr := sink.CloseWith(wsCloseAppOffset+httpErr.Code, reason); cerr != nil {
		h.logger.Debug("failed to send close frame", "error", cerr)
	}
}
