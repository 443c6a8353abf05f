package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

// PlansMemoryStorage keeps the latest plan per owner.
type PlansMemoryStorage struct {
	mu    sync.RWMutex
	plans map[string]storage.PlanRecord
}

func NewPlansMemoryStorage() *PlansMemoryStorage {
	return &PlansMemoryStorage{
		plans: make(map[string]storage.PlanRecord),
	}
}

func (s *PlansMemoryStorage) SavePlan(ctx context.Context, plan *storage.PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	s.plans[plan.OwnerUserID] = *plan
	return nil
}

func (s *PlansMemoryStorage) GetLatestPlan(ctx context.Context, ownerUserID string) (*storage.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[ownerUserID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (s *PlansMemoryStorage) DeletePlans(ctx context.Context, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.plans, ownerUserID)
	return nil
}
