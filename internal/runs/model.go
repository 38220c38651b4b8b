package runs

import (
	"time"

	"github.com/eleven-am/menu-capture/internal/shared"
)

type Status string

const (
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run records one transcription request from upstream open to close.
type Run struct {
	ID              string      `json:"id"`
	Mode            shared.Mode `json:"mode"`
	TargetPath      string      `json:"target_path"`
	ArtifactPath    string      `json:"artifact_path"`
	Status          Status      `json:"status"`
	Fragments       int         `json:"fragments"`
	Bytes           int         `json:"bytes"`
	FirstFragmentMs int64       `json:"first_fragment_ms"`
	DurationMs      int64       `json:"duration_ms"`
	Error           string      `json:"error,omitempty"`
	StartedAt       time.Time   `json:"started_at"`
	EndedAt         *time.Time  `json:"ended_at,omitempty"`
}

func (r *Run) RedisKey() string {
	return RunRedisKey(r.ID)
}

func RunRedisKey(id string) string {
	return "run:" + id
}

// DailyStats aggregates runs that started on Date (UTC).
type DailyStats struct {
	Date          string `json:"date"`
	Started       int64  `json:"started"`
	Completed     int64  `json:"completed"`
	Failed        int64  `json:"failed"`
	Cancelled     int64  `json:"cancelled"`
	Fragments     int64  `json:"fragments"`
	Bytes         int64  `json:"bytes"`
	AvgDurationMs int64  `json:"avg_duration_ms"`
}

func StatsRedisKey(date string) string {
	return "runs:stats:" + date
}
