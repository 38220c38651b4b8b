package dto

type CaptureRequest struct {
	TargetPath  string `json:"target_path" example:"captures/menu.png"`
	UserMessage string `json:"user_message" example:"This is the white balance menu"`
}

type TranscriptionResponse struct {
	RunID        string `json:"run_id" example:"run_3f2a..."`
	Text         string `json:"text"`
	ArtifactPath string `json:"artifact_path" example:"logs/menu_20240501T101500.000000000Z.jpg"`
}
