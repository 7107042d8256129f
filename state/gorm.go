package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// runRecord is the relational projection of a FlowRun. Nested structures are
// stored as JSON blobs; only the columns used for lookup are first-class.
type runRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	FlowName  string `gorm:"index;size:255"`
	Status    string `gorm:"size:32"`
	Snapshot  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (runRecord) TableName() string { return "flow_runs" }

// GormStore persists flow runs through GORM, for deployments that already
// carry a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the flow_runs table and wraps db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&runRecord{}); err != nil {
		return nil, fmt.Errorf("migrate flow_runs: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Save(ctx context.Context, run *FlowRun) error {
	cp := *run
	now := time.Now().UTC()
	cp.UpdatedAt = now
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}

	snapshot, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("marshal flow run %q: %w", run.ID, err)
	}
	rec := runRecord{
		ID:        cp.ID,
		FlowName:  cp.FlowName,
		Status:    string(cp.Status),
		Snapshot:  snapshot,
		CreatedAt: cp.CreatedAt,
		UpdatedAt: cp.UpdatedAt,
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

func (s *GormStore) Load(ctx context.Context, id string) (*FlowRun, error) {
	var rec runRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toRun()
}

func (s *GormStore) List(ctx context.Context, flowName string) ([]*FlowRun, error) {
	q := s.db.WithContext(ctx).Order("id")
	if flowName != "" {
		q = q.Where("flow_name = ?", flowName)
	}
	var recs []runRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}

	out := make([]*FlowRun, 0, len(recs))
	for _, rec := range recs {
		run, err := rec.toRun()
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&runRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *runRecord) toRun() (*FlowRun, error) {
	var run FlowRun
	if err := json.Unmarshal(r.Snapshot, &run); err != nil {
		return nil, fmt.Errorf("unmarshal flow run %q: %w", r.ID, err)
	}
	return &run, nil
}
