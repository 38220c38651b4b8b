package audit

import (
	"context"
	"errors"

	"github.com/eleven-am/menu-capture/internal/shared"
	"gorm.io/gorm"
)

// Store keeps the artifact index. A Store without a database is disabled:
// writes are dropped and reads return shared.ErrDisabled.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Enabled() bool {
	return s.db != nil
}

func (s *Store) Migrate() error {
	if !s.Enabled() {
		return nil
	}
	return s.db.AutoMigrate(&Artifact{})
}

func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return shared.ErrDisabled
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Record(ctx context.Context, a *Artifact) error {
	if !s.Enabled() {
		return nil
	}
	if a.ID == "" {
		a.ID = shared.NewID("art_")
	}
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*Artifact, error) {
	if !s.Enabled() {
		return nil, shared.ErrDisabled
	}
	var a Artifact
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetByRun(ctx context.Context, runID string) ([]*Artifact, error) {
	if !s.Enabled() {
		return nil, shared.ErrDisabled
	}
	var list []*Artifact
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// List returns the newest artifacts first, optionally filtered by source
// path.
func (s *Store) List(ctx context.Context, sourcePath string, limit int) ([]*Artifact, error) {
	if !s.Enabled() {
		return nil, shared.ErrDisabled
	}
	if limit <= 0 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id").Limit(limit)
	if sourcePath != "" {
		q = q.Where("source_path = ?", sourcePath)
	}

	var list []*Artifact
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
