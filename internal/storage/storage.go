package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Profile holds the data collected by the multi-step profile form.
// Zero values mean "not provided yet".
type Profile struct {
	ID                uuid.UUID
	OwnerUserID       string
	Name              string
	Email             string
	Gender            string
	MenstrualPhase    string     // phase picked by the user when no date is tracked
	LastPeriodDate    *time.Time // date only
	CycleLength       int        // days, 0 means default
	Age               int
	WeightKg          float64
	HeightCm          float64
	Goal              string
	ActivityLevel     string
	TrainingDays      int
	TrainingLocation  string
	FavoriteExercises []string
	Allergies         string
	FoodPreferences   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Storage is the profile store plus lifecycle.
type Storage interface {
	// GetProfileByOwner returns the profile of an account
	GetProfileByOwner(ctx context.Context, ownerUserID string) (*Profile, error)

	// GetProfileByEmail looks a profile up by its normalized email
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)

	// CreateProfile fails with ErrConflict when the owner or email is taken
	CreateProfile(ctx context.Context, profile *Profile) error

	// UpdateProfile replaces all editable fields
	UpdateProfile(ctx context.Context, profile *Profile) error

	// DeleteProfile removes a profile by ID
	DeleteProfile(ctx context.Context, id uuid.UUID) error

	// Close releases the connection pool (Postgres)
	Close() error
}

// PlanRecord is the latest generated plan of an account.
type PlanRecord struct {
	ID          uuid.UUID
	OwnerUserID string
	Format      string // "json" or "prose"
	RawText     string
	RoutineText string
	DietText    string
	Model       string
	CreatedAt   time.Time
}

// PlansStorage keeps one plan per owner; saving replaces the previous one.
type PlansStorage interface {
	SavePlan(ctx context.Context, plan *PlanRecord) error
	GetLatestPlan(ctx context.Context, ownerUserID string) (*PlanRecord, error)
	DeletePlans(ctx context.Context, ownerUserID string) error
}

// ExportMeta describes a stored workbook.
type ExportMeta struct {
	ID          uuid.UUID
	OwnerUserID string
	PlanID      uuid.UUID
	Format      string  // "xlsx"
	ObjectKey   *string // S3 object key (nil in local mode)
	SizeBytes   int64
	Status      string // "ready" or "failed"
	Error       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Data        []byte // local mode only
}

type ExportsStorage interface {
	CreateExport(ctx context.Context, export *ExportMeta) error
	GetExport(ctx context.Context, id uuid.UUID) (*ExportMeta, error)
	ListExports(ctx context.Context, ownerUserID string, limit, offset int) ([]ExportMeta, error)
	CountExports(ctx context.Context, ownerUserID string) (int, error)
	DeleteExport(ctx context.Context, id uuid.UUID) error
}
