package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"os"

	"github.com/eleven-am/menu-capture/internal/shared"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

type Preprocessor struct {
	quality   int
	maxDim    int
	maxPixels int
	artifacts *ArtifactWriter
	logger    *slog.Logger
}

func NewPreprocessor(cfg Config, artifacts *ArtifactWriter, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	quality := cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Preprocessor{
		quality:   quality,
		maxDim:    cfg.MaxDimension,
		maxPixels: maxPixels,
		artifacts: artifacts,
		logger:    logger.With("component", "preprocessor"),
	}
}

// Process turns the image at path, which must already be validated against
// the permitted root, into compact JPEG bytes and records them as a log
// artifact before returning.
func (p *Preprocessor) Process(ctx context.Context, path string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &shared.PreprocessError{Path: path, Kind: shared.PreprocessNotFound, Err: err}
	}
	if err != nil {
		return nil, &shared.PreprocessError{Path: path, Kind: shared.PreprocessRead, Err: err}
	}

	data, width, height, err := p.Encode(src)
	if err != nil {
		return nil, &shared.PreprocessError{Path: path, Kind: shared.PreprocessDecode, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifact, err := p.artifacts.Write(path, data)
	if err != nil {
		return nil, &shared.PreprocessError{Path: path, Kind: shared.PreprocessArtifact, Err: err}
	}

	p.logger.Debug("image preprocessed",
		"source", path,
		"artifact", artifact.Path,
		"source_bytes", len(src),
		"encoded_bytes", len(data),
		"width", width,
		"height", height)

	return &Image{
		Bytes:        data,
		MimeType:     MimeJPEG,
		SourcePath:   path,
		ArtifactPath: artifact.Path,
		Width:        width,
		Height:       height,
	}, nil
}

// Encode runs the pure part of the pipeline: decode, orient, crop, flatten,
// fit and JPEG-encode. Identical input yields identical output.
func (p *Preprocessor) Encode(src []byte) ([]byte, int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > p.maxPixels/cfg.Height {
		return nil, 0, 0, fmt.Errorf("image is %dx%d, above the %d pixel limit", cfg.Width, cfg.Height, p.maxPixels)
	}

	decoded, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	img := toNRGBA(decoded)
	if format == "jpeg" {
		img = orient(img, exifOrientation(src))
	}

	flat := fit(flatten(autoCrop(img)), p.maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}

	b := flat.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}
