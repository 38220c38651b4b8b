package runs

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/eleven-am/menu-capture/internal/shared"
	"github.com/redis/go-redis/v9"
)

const (
	recentKey   = "runs:recent"
	maxRecent   = 1000
	DefaultTTL  = 7 * 24 * time.Hour
	statsTTL    = 30 * 24 * time.Hour
	dateLayout  = "2006-01-02"
	maxStatDays = 30
)

type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{redis: redisClient, ttl: ttl}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Start persists a new run in the streaming state and counts it for the day.
func (s *Store) Start(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = shared.NewID("run_")
	}
	run.Status = StatusStreaming
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	statsKey := StatsRedisKey(run.StartedAt.UTC().Format(dateLayout))

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, run.RedisKey(), data, s.ttl)
	pipe.ZAdd(ctx, recentKey, redis.Z{Score: float64(run.StartedAt.UnixMilli()), Member: run.ID})
	pipe.ZRemRangeByRank(ctx, recentKey, 0, -maxRecent-1)
	pipe.HIncrBy(ctx, statsKey, "started", 1)
	pipe.Expire(ctx, statsKey, statsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Finish stores the final state of a run. status must be terminal.
func (s *Store) Finish(ctx context.Context, run *Run, status Status) error {
	now := time.Now().UTC()
	run.Status = status
	run.EndedAt = &now
	run.DurationMs = now.Sub(run.StartedAt).Milliseconds()

	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	statsKey := StatsRedisKey(run.StartedAt.UTC().Format(dateLayout))

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, run.RedisKey(), data, s.ttl)
	pipe.HIncrBy(ctx, statsKey, string(status), 1)
	pipe.HIncrBy(ctx, statsKey, "fragments", int64(run.Fragments))
	pipe.HIncrBy(ctx, statsKey, "bytes", int64(run.Bytes))
	pipe.HIncrBy(ctx, statsKey, "total_duration_ms", run.DurationMs)
	pipe.HIncrBy(ctx, statsKey, "finished", 1)
	pipe.Expire(ctx, statsKey, statsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	data, err := s.redis.Get(ctx, RunRedisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns the most recent runs, newest first. Entries whose record has
// expired are dropped from the index.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	ids, err := s.redis.ZRevRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*Run{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = RunRedisKey(id)
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*Run, 0, len(values))
	var expired []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var run Run
		if err := json.Unmarshal([]byte(raw), &run); err != nil {
			continue
		}
		result = append(result, &run)
	}

	if len(expired) > 0 {
		s.redis.ZRem(ctx, recentKey, expired...)
	}

	return result, nil
}

// Stats returns per-day counters for the last days days, today first. Days
// without runs are omitted.
func (s *Store) Stats(ctx context.Context, days int) ([]*DailyStats, error) {
	if days <= 0 {
		days = 1
	}
	if days > maxStatDays {
		days = maxStatDays
	}

	now := time.Now().UTC()
	var stats []*DailyStats

	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, -i).Format(dateLayout)

		data, err := s.redis.HGetAll(ctx, StatsRedisKey(date)).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}

		d := &DailyStats{Date: date}
		d.Started, _ = strconv.ParseInt(data["started"], 10, 64)
		d.Completed, _ = strconv.ParseInt(data[string(StatusCompleted)], 10, 64)
		d.Failed, _ = strconv.ParseInt(data[string(StatusFailed)], 10, 64)
		d.Cancelled, _ = strconv.ParseInt(data[string(StatusCancelled)], 10, 64)
		d.Fragments, _ = strconv.ParseInt(data["fragments"], 10, 64)
		d.Bytes, _ = strconv.ParseInt(data["bytes"], 10, 64)

		totalDuration, _ := strconv.ParseInt(data["total_duration_ms"], 10, 64)
		finished, _ := strconv.ParseInt(data["finished"], 10, 64)
		if finished > 0 {
			d.AvgDurationMs = totalDuration / finished
		}

		stats = append(stats, d)
	}

	return stats, nil
}
