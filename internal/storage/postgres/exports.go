package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

type PostgresExportsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresExportsStorage(pool *pgxpool.Pool) *PostgresExportsStorage {
	return &PostgresExportsStorage{pool: pool}
}

func (s *PostgresExportsStorage) CreateExport(ctx context.Context, export *storage.ExportMeta) error {
	if export.ID == uuid.Nil {
		export.ID = uuid.New()
	}

	query := `
		INSERT INTO exports (id, owner_user_id, plan_id, format, object_key, size_bytes, status, error, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := s.pool.QueryRow(ctx, query,
		export.ID,
		export.OwnerUserID,
		export.PlanID,
		export.Format,
		export.ObjectKey,
		export.SizeBytes,
		export.Status,
		export.Error,
		export.Data,
	).Scan(&export.CreatedAt, &export.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	return nil
}

func (s *PostgresExportsStorage) GetExport(ctx context.Context, id uuid.UUID) (*storage.ExportMeta, error) {
	query := `
		SELECT id, owner_user_id, plan_id, format, object_key, size_bytes, status, error, data, created_at, updated_at
		FROM exports
		WHERE id = $1
	`

	var e storage.ExportMeta
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.OwnerUserID,
		&e.PlanID,
		&e.Format,
		&e.ObjectKey,
		&e.SizeBytes,
		&e.Status,
		&e.Error,
		&e.Data,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExports returns metadata only; workbook bytes are fetched with GetExport.
func (s *PostgresExportsStorage) ListExports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.ExportMeta, error) {
	query := `
		SELECT id, owner_user_id, plan_id, format, object_key, size_bytes, status, error, created_at, updated_at
		FROM exports
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	exports := []storage.ExportMeta{}
	for rows.Next() {
		var e storage.ExportMeta
		if err := rows.Scan(
			&e.ID,
			&e.OwnerUserID,
			&e.PlanID,
			&e.Format,
			&e.ObjectKey,
			&e.SizeBytes,
			&e.Status,
			&e.Error,
			&e.CreatedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		exports = append(exports, e)
	}
	return exports, rows.Err()
}

func (s *PostgresExportsStorage) CountExports(ctx context.Context, ownerUserID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exports WHERE owner_user_id = $1`, ownerUserID).Scan(&n)
	return n, err
}

func (s *PostgresExportsStorage) DeleteExport(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM exports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
