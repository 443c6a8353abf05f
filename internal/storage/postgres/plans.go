package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

type PostgresPlansStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresPlansStorage(pool *pgxpool.Pool) *PostgresPlansStorage {
	return &PostgresPlansStorage{pool: pool}
}

// SavePlan upserts by owner: a new generation replaces the previous plan.
func (s *PostgresPlansStorage) SavePlan(ctx context.Context, plan *storage.PlanRecord) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO plans (id, owner_user_id, format, raw_text, routine_text, diet_text, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_user_id) DO UPDATE
		SET id = EXCLUDED.id, format = EXCLUDED.format, raw_text = EXCLUDED.raw_text,
			routine_text = EXCLUDED.routine_text, diet_text = EXCLUDED.diet_text,
			model = EXCLUDED.model, created_at = EXCLUDED.created_at
	`

	_, err := s.pool.Exec(ctx, query,
		plan.ID,
		plan.OwnerUserID,
		plan.Format,
		plan.RawText,
		plan.RoutineText,
		plan.DietText,
		plan.Model,
		plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (s *PostgresPlansStorage) GetLatestPlan(ctx context.Context, ownerUserID string) (*storage.PlanRecord, error) {
	query := `
		SELECT id, owner_user_id, format, raw_text, routine_text, diet_text, model, created_at
		FROM plans
		WHERE owner_user_id = $1
	`

	var p storage.PlanRecord
	err := s.pool.QueryRow(ctx, query, ownerUserID).Scan(
		&p.ID,
		&p.OwnerUserID,
		&p.Format,
		&p.RawText,
		&p.RoutineText,
		&p.DietText,
		&p.Model,
		&p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresPlansStorage) DeletePlans(ctx context.Context, ownerUserID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM plans WHERE owner_user_id = $1`, ownerUserID)
	return err
}
