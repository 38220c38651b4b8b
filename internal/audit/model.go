package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/eleven-am/menu-capture/internal/imaging"
)

// Artifact indexes one image file written under the log root.
type Artifact struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	RunID      string    `gorm:"index" json:"run_id"`
	SourcePath string    `gorm:"not null;index" json:"source_path"`
	Path       string    `gorm:"uniqueIndex;not null" json:"path"`
	Size       int64     `gorm:"not null" json:"size"`
	SHA256     string    `gorm:"column:sha256;size:64;not null" json:"sha256"`
	MimeType   string    `gorm:"not null" json:"mime_type"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (Artifact) TableName() string {
	return "log_artifacts"
}

// FromImage builds the index entry for a preprocessed image.
func FromImage(runID string, img *imaging.Image) *Artifact {
	sum := sha256.Sum256(img.Bytes)
	return &Artifact{
		RunID:      runID,
		SourcePath: img.SourcePath,
		Path:       img.ArtifactPath,
		Size:       int64(len(img.Bytes)),
		SHA256:     hex.EncodeToString(sum[:]),
		MimeType:   img.MimeType,
		Width:      img.Width,
		Height:     img.Height,
	}
}
