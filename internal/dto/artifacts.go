package dto

import "time"

type ArtifactResponse struct {
	ID         string    `json:"id" example:"art_51be..."`
	RunID      string    `json:"run_id"`
	SourcePath string    `json:"source_path"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256"`
	MimeType   string    `json:"mime_type" example:"image/jpeg"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `json:"created_at"`
}

type ArtifactListResponse struct {
	Artifacts []ArtifactResponse `json:"artifacts"`
	Total     int                `json:"total"`
}
