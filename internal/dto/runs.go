package dto

import "time"

type RunResponse struct {
	ID              string     `json:"id" example:"run_9b1c..."`
	Mode            string     `json:"mode" example:"stream"`
	TargetPath      string     `json:"target_path" example:"captures/menu.png"`
	ArtifactPath    string     `json:"artifact_path"`
	Status          string     `json:"status" example:"completed"`
	Fragments       int        `json:"fragments"`
	Bytes           int        `json:"bytes"`
	FirstFragmentMs int64      `json:"first_fragment_ms"`
	DurationMs      int64      `json:"duration_ms"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
}

type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Total int           `json:"total"`
}

type RunStatsResponse struct {
	Date          string `json:"date" example:"2024-05-01"`
	Started       int64  `json:"started"`
	Completed     int64  `json:"completed"`
	Failed        int64  `json:"failed"`
	Cancelled     int64  `json:"cancelled"`
	Fragments     int64  `json:"fragments"`
	Bytes         int64  `json:"bytes"`
	AvgDurationMs int64  `json:"avg_duration_ms"`
}

type RunStatsListResponse struct {
	Days  int                `json:"days"`
	Stats []RunStatsResponse `json:"stats"`
}
