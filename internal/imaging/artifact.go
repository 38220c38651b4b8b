package imaging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	artifactTimeLayout = "20060102T150405.000000000Z"
	maxNameAttempts    = 16
)

// ArtifactWriter persists the exact bytes sent upstream. Files are created
// with O_EXCL and never rewritten.
type ArtifactWriter struct {
	dir string
	now func() time.Time
}

func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{
		dir: dir,
		now: time.Now,
	}
}

func (w *ArtifactWriter) Dir() string {
	return w.dir
}

func (w *ArtifactWriter) Write(sourcePath string, data []byte) (*Artifact, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	created := w.now().UTC()
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	stem := base + "_" + created.Format(artifactTimeLayout)

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := stem + ".jpg"
		if attempt > 0 {
			name = fmt.Sprintf("%s-%d.jpg", stem, attempt)
		}
		path := filepath.Join(w.dir, name)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create artifact: %w", err)
		}

		if _, err := file.Write(data); err != nil {
			file.Close()
			os.Remove(path)
			return nil, fmt.Errorf("write artifact: %w", err)
		}
		if err := file.Close(); err != nil {
			os.Remove(path)
			return nil, fmt.Errorf("close artifact: %w", err)
		}

		return &Artifact{
			Path:      path,
			Bytes:     data,
			CreatedAt: created,
		}, nil
	}

	return nil, fmt.Errorf("no free artifact name for %s", stem)
}
