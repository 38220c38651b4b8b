package runs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/menu-capture/internal/shared"
	"github.com/redis/go-redis/v9"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestNewStore_DefaultTTL(t *testing.T) {
	s := NewStore(nil, 0)
	if s.ttl != DefaultTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultTTL, s.ttl)
	}
}

func TestStore_StartAndGet(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	run := &Run{Mode: shared.ModeStream, TargetPath: "captures/menu.png"}
	if err := store.Start(ctx, run); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if run.ID == "" {
		t.Fatal("Start should assign an ID")
	}
	if run.Status != StatusStreaming {
		t.Errorf("expected streaming status, got %s", run.Status)
	}
	if ttl := mr.TTL(run.RedisKey()); ttl != time.Hour {
		t.Errorf("expected TTL 1h, got %v", ttl)
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.TargetPath != run.TargetPath || got.Mode != shared.ModeStream {
		t.Errorf("unexpected run %+v", got)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.Get(context.Background(), "run_missing")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Finish(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	run := &Run{Mode: shared.ModeBuffered, StartedAt: time.Now().UTC().Add(-250 * time.Millisecond)}
	if err := store.Start(ctx, run); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	run.Fragments = 5
	run.Bytes = 34
	if err := store.Finish(ctx, run, StatusCompleted); err != nil {
		t.Fatalf("Finish error: %v", err)
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.EndedAt == nil {
		t.Error("EndedAt should be set")
	}
	if got.DurationMs < 250 {
		t.Errorf("expected duration >= 250ms, got %d", got.DurationMs)
	}
	if got.Fragments != 5 || got.Bytes != 34 {
		t.Errorf("unexpected counters %d/%d", got.Fragments, got.Bytes)
	}
}

func TestStore_List(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute)

	var ids []string
	for i := 0; i < 3; i++ {
		run := &Run{
			Mode:       shared.ModeStream,
			TargetPath: fmt.Sprintf("img-%d.png", i),
			StartedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Start(ctx, run); err != nil {
			t.Fatalf("Start error: %v", err)
		}
		ids = append(ids, run.ID)
	}

	list, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(list))
	}
	if list[0].ID != ids[2] || list[2].ID != ids[0] {
		t.Error("runs should be listed newest first")
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs, got %d", len(limited))
	}

	mr.Del(RunRedisKey(ids[1]))
	list, err = store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expired runs should be skipped, got %d", len(list))
	}
	if members, _ := mr.ZMembers(recentKey); len(members) != 2 {
		t.Errorf("expired runs should be removed from the index, got %d", len(members))
	}
}

func TestStore_List_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	list, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %v", list)
	}
}

func TestStore_Stats(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	outcomes := []Status{StatusCompleted, StatusCompleted, StatusFailed, StatusCancelled}
	for _, status := range outcomes {
		run := &Run{Mode: shared.ModeStream}
		if err := store.Start(ctx, run); err != nil {
			t.Fatalf("Start error: %v", err)
		}
		run.Fragments = 2
		run.Bytes = 10
		if err := store.Finish(ctx, run, status); err != nil {
			t.Fatalf("Finish error: %v", err)
		}
	}
	if err := store.Start(ctx, &Run{Mode: shared.ModeWebSocket}); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	stats, err := store.Stats(ctx, 7)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one day of stats, got %d", len(stats))
	}

	d := stats[0]
	if d.Date != time.Now().UTC().Format(dateLayout) {
		t.Errorf("unexpected date %s", d.Date)
	}
	if d.Started != 5 || d.Completed != 2 || d.Failed != 1 || d.Cancelled != 1 {
		t.Errorf("unexpected counters %+v", d)
	}
	if d.Fragments != 8 || d.Bytes != 40 {
		t.Errorf("unexpected totals %+v", d)
	}
}

func TestStore_Stats_ClampsDays(t *testing.T) {
	store, _ := setupTestStore(t)

	stats, err := store.Stats(context.Background(), 1000)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if len(stats) != 0 {
		t.Errorf("expected no stats, got %d", len(stats))
	}
}
