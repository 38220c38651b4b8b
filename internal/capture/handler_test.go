package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/menu-capture/internal/completion"
	"github.com/eleven-am/menu-capture/internal/dto"
	"github.com/eleven-am/menu-capture/internal/imaging"
	"github.com/eleven-am/menu-capture/internal/relay"
	"github.com/eleven-am/menu-capture/internal/runs"
	"github.com/eleven-am/menu-capture/internal/shared"
	"github.com/eleven-am/menu-capture/internal/workspace"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

var menuFragments = []string{"{\"menu\"", ":\"X\"", ",\"items\"", ":[]", "}"}

type countingPreprocessor struct {
	next  *imaging.Preprocessor
	calls atomic.Int32
}

func (p *countingPreprocessor) Process(ctx context.Context, path string) (*imaging.Image, error) {
	p.calls.Add(1)
	return p.next.Process(ctx, path)
}

type harness struct {
	server       *httptest.Server
	root         string
	logDir       string
	runs         *runs.Store
	preprocessor *countingPreprocessor
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, apiKey string, upstream http.HandlerFunc) *harness {
	t.Helper()
	return newHarnessWithConfig(t, completion.Config{APIKey: apiKey}, upstream)
}

func newHarnessWithConfig(t *testing.T, cfg completion.Config, upstream http.HandlerFunc) *harness {
	t.Helper()

	upstreamURL := "http://127.0.0.1:1"
	if upstream != nil {
		up := httptest.NewServer(upstream)
		t.Cleanup(up.Close)
		upstreamURL = up.URL
	}

	base := t.TempDir()
	rootDir := filepath.Join(base, "workspace")
	logDir := filepath.Join(base, "logs")
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	root, err := workspace.NewRoot(rootDir)
	if err != nil {
		t.Fatalf("NewRoot: %v", err)
	}

	logger := testLogger()
	pre := &countingPreprocessor{
		next: imaging.NewPreprocessor(imaging.Config{}, imaging.NewArtifactWriter(logDir), logger),
	}
	cfg.BaseURL = upstreamURL
	client := completion.NewClient(cfg, logger)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	runStore := runs.NewStore(rdb, time.Hour)

	service := NewService(root, pre, client, runStore, nil, logger)
	handler := NewHandler(service, relay.New(logger), nil, logger)

	e := echo.New()
	handler.RegisterRoutes(e.Group("/api/v1/transcriptions"))

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &harness{
		server:       server,
		root:         rootDir,
		logDir:       logDir,
		runs:         runStore,
		preprocessor: pre,
	}
}

func (h *harness) writeImage(t *testing.T, name string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 24, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 15), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(h.root, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func (h *harness) artifactCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(h.logDir)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("read log dir: %v", err)
	}
	return len(entries)
}

func (h *harness) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(h.server.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func fragmentUpstream(fragments []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range fragments {
			payload, _ := json.Marshal(map[string]any{
				"choices": []map[string]any{{"delta": map[string]string{"content": f}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func decodeAPIError(t *testing.T, resp *http.Response) shared.APIError {
	t.Helper()
	var apiErr shared.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return apiErr
}

func TestHandler_RegisterRoutes(t *testing.T) {
	e := echo.New()
	NewHandler(nil, nil, NewRateLimiter(DefaultRateLimiterConfig()), testLogger()).RegisterRoutes(e.Group("/transcriptions"))

	routes := make(map[string]bool)
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /transcriptions/stream",
		"POST /transcriptions",
		"GET /transcriptions/ws",
	} {
		if !routes[want] {
			t.Errorf("expected route %s", want)
		}
	}
}

func TestStream_RelaysFragments(t *testing.T) {
	h := newHarness(t, "sk-test", fragmentUpstream(menuFragments))
	h.writeImage(t, "menu.png")

	resp := h.post(t, "/api/v1/transcriptions/stream", dto.CaptureRequest{
		TargetPath:  "menu.png",
		UserMessage: "white balance menu",
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != relay.ContentTypeEventStream {
		t.Errorf("unexpected content type %q", ct)
	}
	if resp.Header.Get("Cache-Control") != "no-cache" {
		t.Error("expected Cache-Control: no-cache")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != strings.Join(menuFragments, "") {
		t.Errorf("unexpected body %q", body)
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Errorf("body should be valid JSON: %v", err)
	}
	if h.artifactCount(t) != 1 {
		t.Errorf("expected one artifact, got %d", h.artifactCount(t))
	}

	runID := resp.Header.Get(HeaderRunID)
	if runID == "" {
		t.Fatal("expected run id header")
	}
	run, err := h.runs.Get(context.Background(), runID)
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if run.Status != runs.StatusCompleted || run.Fragments != 5 {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestStream_OutsideRoot(t *testing.T) {
	var upstreamCalls atomic.Int32
	h := newHarness(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls.Add(1)
	})

	for _, target := range []string{"/etc/passwd", "../outside.png", "a/../../b.png"} {
		resp := h.post(t, "/api/v1/transcriptions/stream", dto.CaptureRequest{TargetPath: target})

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, resp.StatusCode)
			continue
		}
		if apiErr := decodeAPIError(t, resp); apiErr.Code != "invalid_path" {
			t.Errorf("%s: expected invalid_path, got %s", target, apiErr.Code)
		}
	}

	if h.artifactCount(t) != 0 {
		t.Error("no artifact may be written for a rejected path")
	}
	if h.preprocessor.calls.Load() != 0 {
		t.Error("rejected paths must not be preprocessed")
	}
	if upstreamCalls.Load() != 0 {
		t.Error("rejected paths must not reach the upstream")
	}
}

func TestStream_NotConfigured(t *testing.T) {
	h := newHarness(t, "", nil)
	h.writeImage(t, "menu.png")

	resp := h.post(t, "/api/v1/transcriptions/stream", dto.CaptureRequest{TargetPath: "menu.png"})

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if apiErr := decodeAPIError(t, resp); apiErr.Code != "not_configured" {
		t.Errorf("expected not_configured, got %s", apiErr.Code)
	}
	if h.preprocessor.calls.Load() != 0 {
		t.Error("no preprocessing should happen without a credential")
	}
	if h.artifactCount(t) != 0 {
		t.Error("no artifact should be written without a credential")
	}
}

func TestStream_NotConfiguredBeforePathCheck(t *testing.T) {
	h := newHarness(t, "", nil)

	resp := h.post(t, "/api/v1/transcriptions/stream", dto.CaptureRequest{TargetPath: "/etc/passwd"})

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestStream_PreprocessErrors(t *testing.T) {
	h := newHarness(t, "sk-test", fragmentUpstream(menuFragments))
	if err := os.WriteFile(filepath.Join(h.root, "broken.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(h.root, "folder"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"missing.png", http.StatusNotFound, "image_not_found"},
		{"broken.png", http.StatusInternalServerError, "preprocess_failed"},
		{"folder", http.StatusInternalServerError, "preprocess_failed"},
	}

	for _, tt := range tests {
		resp := h.post(t, "/api/v1/transcriptions/stream", dto.CaptureRequest{TargetPath: tt.target})
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.status, resp.StatusCode)
			continue
		}
		if apiErr := decodeAPIError(t, resp); apiErr.Code != tt.code {
			t.Errorf("%s: expected %s, got %s", tt.target, tt.code, apiErr.Code)
		}
	}
	if h.artifactCount(t) != 0 {
		t.Error("failed preprocessing must not leave artifacts")
	}
}

func TestStream_Validation(t *testing.T) {
	h := newHarness(t, "sk-test", nil)

	resp := h.post(t, "/api/v1/transcriptions/stream", map[string]string{"user_message": "hi"})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if apiErr := decodeAPIError(t, resp); apiErr.Code != "validation_failed" {
		t.Errorf("expected validation_failed, got %s", apiErr.Code)
	}
}

func TestStream_UpstreamErrorBeforeFirstFragment(t *testing.T) {
	h := newHarness(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	h.writeImage(t, "menu.png")

	resp := h.post(t, "/api/v1/transcriptions/stream", dto.CaptureRequest{TargetPath: "menu.png"})

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if apiErr := decodeAPIError(t, resp); apiErr.Code != "upstream_failed" {
		t.Errorf("expected upstream_failed, got %s", apiErr.Code)
	}
	if h.artifactCount(t) != 1 {
		t.Error("the artifact is written before the upstream call")
	}
}

func TestStream_UpstreamTimeoutBeforeFirstFragment(t *testing.T) {
	h := newHarnessWithConfig(t, completion.Config{APIKey: "sk-test", Timeout: 200 * time.Millisecond}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	h.writeImage(t, "menu.png")

	resp := h.post(t, "/api/v1/transcriptions/stream", dto.CaptureRequest{TargetPath: "menu.png"})

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if apiErr := decodeAPIError(t, resp); apiErr.Code != "upstream_failed" {
		t.Errorf("expected upstream_failed, got %s", apiErr.Code)
	}

	runID := resp.Header.Get(HeaderRunID)
	run, err := h.runs.Get(context.Background(), runID)
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if run.Status != runs.StatusFailed {
		t.Errorf("a timed out run is failed, got %s", run.Status)
	}
}

func TestTranscribe_UpstreamTimeout(t *testing.T) {
	h := newHarnessWithConfig(t, completion.Config{APIKey: "sk-test", Timeout: 200 * time.Millisecond}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	h.writeImage(t, "menu.png")

	resp := h.post(t, "/api/v1/transcriptions", dto.CaptureRequest{TargetPath: "menu.png"})

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestStream_UpstreamErrorMidStream(t *testing.T) {
	h := newHarness(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"{\\\"menu\\\"\"}}]}\n\n")
		w.(http.Flusher).Flush()
		fmt.Fprint(w, "data: {not json\n\n")
	})
	h.writeImage(t, "menu.png")

	resp := h.post(t, "/api/v1/transcriptions/stream", dto.CaptureRequest{TargetPath: "menu.png"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("headers were committed with the first fragment, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err == nil {
		t.Error("a stream cut short should not end cleanly")
	}
	if string(body) != "{\"menu\"" {
		t.Errorf("expected the partial fragment, got %q", body)
	}
}

func TestStream_DisconnectCancelsUpstream(t *testing.T) {
	upstreamCancelled := make(chan struct{})
	h := newHarness(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"{\"}}]}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(upstreamCancelled)
	})
	h.writeImage(t, "menu.png")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	data, _ := json.Marshal(dto.CaptureRequest{TargetPath: "menu.png"})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, h.server.URL+"/api/v1/transcriptions/stream", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 1)
	if _, err := io.ReadFull(resp.Body, buf); err != nil || buf[0] != '{' {
		t.Fatalf("expected first fragment, got %q, %v", buf, err)
	}

	cancel()

	select {
	case <-upstreamCancelled:
	case <-time.After(3 * time.Second):
		t.Fatal("upstream request was not cancelled after the caller disconnected")
	}
}

func TestTranscribe_Buffered(t *testing.T) {
	h := newHarness(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"menu_name\":\"ISO\"}"}}]}`)
	})
	h.writeImage(t, "menu.png")

	resp := h.post(t, "/api/v1/transcriptions", dto.CaptureRequest{TargetPath: "menu.png"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out dto.TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Text != `{"menu_name":"ISO"}` {
		t.Errorf("unexpected text %q", out.Text)
	}
	if out.RunID == "" || out.ArtifactPath == "" {
		t.Errorf("expected run id and artifact path, got %+v", out)
	}
	if filepath.Dir(out.ArtifactPath) != h.logDir {
		t.Errorf("artifact %s should be under %s", out.ArtifactPath, h.logDir)
	}

	run, err := h.runs.Get(context.Background(), out.RunID)
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if run.Mode != shared.ModeBuffered || run.Status != runs.StatusCompleted {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestTranscribe_NotConfigured(t *testing.T) {
	h := newHarness(t, "", nil)
	h.writeImage(t, "menu.png")

	resp := h.post(t, "/api/v1/transcriptions", dto.CaptureRequest{TargetPath: "menu.png"})

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	if h.preprocessor.calls.Load() != 0 {
		t.Error("no preprocessing should happen without a credential")
	}
}

func dialWS(t *testing.T, h *harness) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/v1/transcriptions/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestWebSocket_RelaysFragments(t *testing.T) {
	h := newHarness(t, "sk-test", fragmentUpstream(menuFragments))
	h.writeImage(t, "menu.png")
	ws := dialWS(t, h)

	if err := ws.WriteJSON(dto.CaptureRequest{TargetPath: "menu.png"}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var got []string
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("expected normal closure, got %v", err)
			}
			break
		}
		got = append(got, string(data))
	}

	if strings.Join(got, "|") != strings.Join(menuFragments, "|") {
		t.Errorf("expected %v, got %v", menuFragments, got)
	}
}

func TestWebSocket_Errors(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		payload string
		code    int
		reason  string
	}{
		{"invalid json", "sk-test", "{", 4400, "invalid_request"},
		{"missing target", "sk-test", `{"user_message":"x"}`, 4400, "validation_failed"},
		{"outside root", "sk-test", `{"target_path":"/etc/passwd"}`, 4400, "invalid_path"},
		{"not configured", "", `{"target_path":"menu.png"}`, 4503, "not_configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.apiKey, fragmentUpstream(menuFragments))
			ws := dialWS(t, h)

			if err := ws.WriteMessage(websocket.TextMessage, []byte(tt.payload)); err != nil {
				t.Fatalf("write: %v", err)
			}

			_, _, err := ws.ReadMessage()
			closeErr, ok := err.(*websocket.CloseError)
			if !ok {
				t.Fatalf("expected close error, got %v", err)
			}
			if closeErr.Code != tt.code || closeErr.Text != tt.reason {
				t.Errorf("expected %d/%s, got %d/%s", tt.code, tt.reason, closeErr.Code, closeErr.Text)
			}
			if h.artifactCount(t) != 0 {
				t.Error("no artifact should be written")
			}
		})
	}
}
