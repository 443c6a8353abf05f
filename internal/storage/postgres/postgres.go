package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

const uniqueViolation = "23505"

// PostgresStorage is the pgx-backed Storage.
type PostgresStorage struct {
	pool    *pgxpool.Pool
	plans   *PostgresPlansStorage
	exports *PostgresExportsStorage
}

func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{
		pool:    pool,
		plans:   NewPostgresPlansStorage(pool),
		exports: NewPostgresExportsStorage(pool),
	}, nil
}

const profileColumns = `id, owner_user_id, name, email, gender, menstrual_phase, last_period_date, cycle_length,
	age, weight_kg, height_cm, goal, activity_level, training_days, training_location,
	favorite_exercises, allergies, food_preferences, created_at, updated_at`

func scanProfile(row pgx.Row) (*storage.Profile, error) {
	var p storage.Profile
	err := row.Scan(
		&p.ID,
		&p.OwnerUserID,
		&p.Name,
		&p.Email,
		&p.Gender,
		&p.MenstrualPhase,
		&p.LastPeriodDate,
		&p.CycleLength,
		&p.Age,
		&p.WeightKg,
		&p.HeightCm,
		&p.Goal,
		&p.ActivityLevel,
		&p.TrainingDays,
		&p.TrainingLocation,
		&p.FavoriteExercises,
		&p.Allergies,
		&p.FoodPreferences,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *PostgresStorage) GetProfileByOwner(ctx context.Context, ownerUserID string) (*storage.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE owner_user_id = $1`
	return scanProfile(p.pool.QueryRow(ctx, query, ownerUserID))
}

func (p *PostgresStorage) GetProfileByEmail(ctx context.Context, email string) (*storage.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, storage.ErrNotFound
	}
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE lower(email) = $1`
	return scanProfile(p.pool.QueryRow(ctx, query, email))
}

func (p *PostgresStorage) CreateProfile(ctx context.Context, profile *storage.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query := `
		INSERT INTO profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := p.pool.Exec(ctx, query,
		profile.ID,
		profile.OwnerUserID,
		profile.Name,
		profile.Email,
		profile.Gender,
		profile.MenstrualPhase,
		profile.LastPeriodDate,
		profile.CycleLength,
		profile.Age,
		profile.WeightKg,
		profile.HeightCm,
		profile.Goal,
		profile.ActivityLevel,
		profile.TrainingDays,
		profile.TrainingLocation,
		nonNilStrings(profile.FavoriteExercises),
		profile.Allergies,
		profile.FoodPreferences,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	return mapWriteError(err)
}

func (p *PostgresStorage) UpdateProfile(ctx context.Context, profile *storage.Profile) error {
	profile.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE profiles
		SET name = $2, email = $3, gender = $4, menstrual_phase = $5, last_period_date = $6,
			cycle_length = $7, age = $8, weight_kg = $9, height_cm = $10, goal = $11,
			activity_level = $12, training_days = $13, training_location = $14,
			favorite_exercises = $15, allergies = $16, food_preferences = $17, updated_at = $18
		WHERE id = $1
		RETURNING created_at
	`

	err := p.pool.QueryRow(ctx, query,
		profile.ID,
		profile.Name,
		profile.Email,
		profile.Gender,
		profile.MenstrualPhase,
		profile.LastPeriodDate,
		profile.CycleLength,
		profile.Age,
		profile.WeightKg,
		profile.HeightCm,
		profile.Goal,
		profile.ActivityLevel,
		profile.TrainingDays,
		profile.TrainingLocation,
		nonNilStrings(profile.FavoriteExercises),
		profile.Allergies,
		profile.FoodPreferences,
		profile.UpdatedAt,
	).Scan(&profile.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return mapWriteError(err)
}

func (p *PostgresStorage) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	result, err := p.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

// GetPlansStorage returns the plans storage
func (p *PostgresStorage) GetPlansStorage() *PostgresPlansStorage {
	return p.plans
}

// GetExportsStorage returns the exports storage
func (p *PostgresStorage) GetExportsStorage() *PostgresExportsStorage {
	return p.exports
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
