package imaging

import "time"

const (
	MimeJPEG = "image/jpeg"

	DefaultQuality = 85

	// DefaultMaxPixels bounds the decoded size of a source image. Camera
	// menu screenshots are far below it.
	DefaultMaxPixels = 40_000_000
)

type Config struct {
	Quality      int
	MaxDimension int
	MaxPixels    int
}

type Image struct {
	Bytes        []byte
	MimeType     string
	SourcePath   string
	ArtifactPath string
	Width        int
	Height       int
}

type Artifact struct {
	Path      string
	Bytes     []byte
	CreatedAt time.Time
}
