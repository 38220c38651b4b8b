package workspace

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/eleven-am/menu-capture/internal/shared"
)

var (
	ErrInvalidContent = errors.New("invalid content")
	ErrNotDirectory   = errors.New("not a directory")
	ErrIsDirectory    = errors.New("is a directory")
)

type Files struct {
	root   *Root
	logger *slog.Logger
}

func NewFiles(root *Root, logger *slog.Logger) *Files {
	if logger == nil {
		logger = slog.Default()
	}
	return &Files{
		root:   root,
		logger: logger.With("component", "workspace"),
	}
}

func (f *Files) Root() *Root {
	return f.root
}

func (f *Files) CreateDir(p string) (string, error) {
	target, err := f.root.ResolveChild(p)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return "", fmt.Errorf("create %s: %w", f.root.Rel(target), ErrNotDirectory)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	f.logger.Info("directory created", "path", f.root.Rel(target))
	return target, nil
}

func (f *Files) RemoveDir(p string) error {
	target, err := f.root.ResolveChild(p)
	if err != nil {
		return err
	}
	info, err := os.Stat(target)
	if err != nil {
		return statError(err)
	}
	if !info.IsDir() {
		return fmt.Errorf("remove %s: %w", f.root.Rel(target), ErrNotDirectory)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("remove directory: %w", err)
	}
	f.logger.Info("directory removed", "path", f.root.Rel(target))
	return nil
}

func (f *Files) RemoveFile(p string) error {
	target, err := f.root.ResolveChild(p)
	if err != nil {
		return err
	}
	info, err := os.Stat(target)
	if err != nil {
		return statError(err)
	}
	if info.IsDir() {
		return fmt.Errorf("remove %s: %w", f.root.Rel(target), ErrIsDirectory)
	}
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	f.logger.Info("file removed", "path", f.root.Rel(target))
	return nil
}

// SaveImage accepts either plain base64 or a data URL and refuses bytes
// that do not sniff as an image.
func (f *Files) SaveImage(p, data string) (string, error) {
	target, err := f.root.ResolveChild(p)
	if err != nil {
		return "", err
	}

	raw, err := decodeImagePayload(data)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(http.DetectContentType(raw), "image/") {
		return "", fmt.Errorf("payload is not an image: %w", ErrInvalidContent)
	}

	if err := writeFile(target, raw); err != nil {
		return "", err
	}
	f.logger.Info("image saved", "path", f.root.Rel(target), "size", len(raw))
	return target, nil
}

func (f *Files) SaveJSON(p string, content json.RawMessage) (string, error) {
	target, err := f.root.ResolveChild(p)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(content)) == 0 || !json.Valid(content) {
		return "", fmt.Errorf("content is not valid JSON: %w", ErrInvalidContent)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, content, "", "  "); err != nil {
		return "", fmt.Errorf("format json: %w", ErrInvalidContent)
	}
	buf.WriteByte('\n')

	if err := writeFile(target, buf.Bytes()); err != nil {
		return "", err
	}
	f.logger.Info("json saved", "path", f.root.Rel(target), "size", buf.Len())
	return target, nil
}

// Locate resolves p to an existing regular file.
func (f *Files) Locate(p string) (string, error) {
	target, err := f.root.Resolve(p)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", statError(err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("open %s: %w", f.root.Rel(target), ErrIsDirectory)
	}
	return target, nil
}

func decodeImagePayload(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, fmt.Errorf("image data is empty: %w", ErrInvalidContent)
	}
	if strings.HasPrefix(data, "data:") {
		comma := strings.IndexByte(data, ',')
		if comma < 0 || !strings.HasSuffix(data[:comma], ";base64") {
			return nil, fmt.Errorf("malformed data url: %w", ErrInvalidContent)
		}
		data = data[comma+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", ErrInvalidContent)
	}
	return raw, nil
}

func writeFile(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return fmt.Errorf("write %s: %w", filepath.Base(target), ErrIsDirectory)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func statError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return shared.ErrNotFound
	}
	return fmt.Errorf("stat: %w", err)
}
