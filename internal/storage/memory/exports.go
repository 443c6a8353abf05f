package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

// ExportsMemoryStorage is the in-memory store for generated workbooks.
type ExportsMemoryStorage struct {
	mu      sync.RWMutex
	exports map[uuid.UUID]*storage.ExportMeta
}

func NewExportsMemoryStorage() *ExportsMemoryStorage {
	return &ExportsMemoryStorage{
		exports: make(map[uuid.UUID]*storage.ExportMeta),
	}
}

func (s *ExportsMemoryStorage) CreateExport(ctx context.Context, export *storage.ExportMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}
	now := time.Now().UTC()
	export.CreatedAt = now
	export.UpdatedAt = now

	s.exports[export.ID] = export
	return nil
}

func (s *ExportsMemoryStorage) GetExport(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	export, ok := s.exports[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return export, nil
}

// ListExports returns the owner's exports, newest first.
func (s *ExportsMemoryStorage) ListExports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ExportMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []storage.ExportMeta
	for _, e := range s.exports {
		if e.OwnerUserID == ownerUserID {
			filtered = append(filtered, *e)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := offset
	if start > len(filtered) {
		return []storage.ExportMeta{}, nil
	}
	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (s *ExportsMemoryStorage) CountExports(ctx context.Context, ownerUserID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.exports {
		if e.OwnerUserID == ownerUserID {
			n++
		}
	}
	return n, nil
}

func (s *ExportsMemoryStorage) DeleteExport(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exports[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.exports, id)
	return nil
}
