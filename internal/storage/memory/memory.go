package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

// MemoryStorage keeps everything in process memory. Data lives as long as the process.
type MemoryStorage struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]storage.Profile
	plans    *PlansMemoryStorage
	exports  *ExportsMemoryStorage
}

func New() *MemoryStorage {
	return &MemoryStorage{
		profiles: make(map[uuid.UUID]storage.Profile),
		plans:    NewPlansMemoryStorage(),
		exports:  NewExportsMemoryStorage(),
	}
}

func (m *MemoryStorage) GetProfileByOwner(ctx context.Context, ownerUserID string) (*storage.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.profiles {
		if p.OwnerUserID == ownerUserID {
			return cloneProfile(p), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *MemoryStorage) GetProfileByEmail(ctx context.Context, email string) (*storage.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, storage.ErrNotFound
	}
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			return cloneProfile(p), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *MemoryStorage) CreateProfile(ctx context.Context, profile *storage.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.profiles {
		if p.OwnerUserID == profile.OwnerUserID {
			return storage.ErrConflict
		}
		if profile.Email != "" && strings.EqualFold(p.Email, profile.Email) {
			return storage.ErrConflict
		}
	}

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	m.profiles[profile.ID] = *cloneProfile(*profile)
	return nil
}

func (m *MemoryStorage) UpdateProfile(ctx context.Context, profile *storage.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.profiles[profile.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if profile.Email != "" {
		for id, p := range m.profiles {
			if id != profile.ID && strings.EqualFold(p.Email, profile.Email) {
				return storage.ErrConflict
			}
		}
	}

	profile.CreatedAt = existing.CreatedAt
	profile.UpdatedAt = time.Now().UTC()
	m.profiles[profile.ID] = *cloneProfile(*profile)
	return nil
}

func (m *MemoryStorage) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

// GetPlansStorage returns the plans storage
func (m *MemoryStorage) GetPlansStorage() *PlansMemoryStorage {
	return m.plans
}

// GetExportsStorage returns the exports storage
func (m *MemoryStorage) GetExportsStorage() *ExportsMemoryStorage {
	return m.exports
}

func cloneProfile(p storage.Profile) *storage.Profile {
	c := p
	if p.FavoriteExercises != nil {
		c.FavoriteExercises = append([]string(nil), p.FavoriteExercises...)
	}
	if p.LastPeriodDate != nil {
		d := *p.LastPeriodDate
		c.LastPeriodDate = &d
	}
	return &c
}
