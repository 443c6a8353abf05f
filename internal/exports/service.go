// Package exports stores generated workbooks so they can be downloaded later, either from
// object storage or, without S3, from the metadata store itself.
package exports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mihaigidu/FitGenius/internal/blob"
	"github.com/mihaigidu/FitGenius/internal/export"
	"github.com/mihaigidu/FitGenius/internal/plan"
	"github.com/mihaigidu/FitGenius/internal/storage"
)

var (
	ErrExportNotFound = errors.New("export not found")
	ErrLimitReached   = errors.New("export limit reached")
)

// PlanSource hands out the structured plan of an account.
type PlanSource interface {
	Exportable(ctx context.Context, ownerUserID string) (uuid.UUID, *plan.WeeklyWorkout, *plan.WeeklyNutrition, error)
}

// Service handles stored exports
type Service struct {
	exportsStorage  storage.ExportsStorage
	plans           PlanSource
	blobStore       blob.Store
	maxPerUser      int
	retention       time.Duration
	presignTTL      time.Duration
	localMode       bool   // true if no S3 configured
	publicBaseURL   string // S3 public base URL (if prefer_public_url mode)
	preferPublicURL bool
	logger          zerolog.Logger
	now             func() time.Time
}

func NewService(
	exportsStorage storage.ExportsStorage,
	plans PlanSource,
	blobStore blob.Store,
	maxPerUser int,
	retention time.Duration,
	presignTTL time.Duration,
	publicBaseURL string,
	preferPublicURL bool,
	logger zerolog.Logger,
) *Service {
	return &Service{
		exportsStorage:  exportsStorage,
		plans:           plans,
		blobStore:       blobStore,
		maxPerUser:      maxPerUser,
		retention:       retention,
		presignTTL:      presignTTL,
		localMode:       blobStore == nil,
		publicBaseURL:   publicBaseURL,
		preferPublicURL: preferPublicURL,
		logger:          logger.With().Str("component", "exports").Logger(),
		now:             time.Now,
	}
}

// Create renders the account's current plan and stores the workbook.
// Errors from the plan source (no plan, generation running, prose plan) are returned as is.
func (s *Service) Create(ctx context.Context, ownerUserID string) (*Export, error) {
	planID, workout, nutrition, err := s.plans.Exportable(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	if err := s.pruneExpired(ctx, ownerUserID); err != nil {
		return nil, err
	}
	if s.maxPerUser > 0 {
		n, err := s.exportsStorage.CountExports(ctx, ownerUserID)
		if err != nil {
			return nil, fmt.Errorf("count exports: %w", err)
		}
		if n >= s.maxPerUser {
			return nil, ErrLimitReached
		}
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, workout, nutrition); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	data := buf.Bytes()

	meta := &storage.ExportMeta{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		PlanID:      planID,
		Format:      export.Extension,
		SizeBytes:   int64(len(data)),
		Status:      StatusReady,
	}

	if s.localMode {
		meta.Data = data
	} else {
		objectKey := blob.ExportKey(ownerUserID, meta.ID, export.Extension)
		if _, err := s.blobStore.PutObject(ctx, objectKey, data, export.ContentType); err != nil {
			return nil, fmt.Errorf("upload workbook: %w", err)
		}
		meta.ObjectKey = &objectKey
	}

	if err := s.exportsStorage.CreateExport(ctx, meta); err != nil {
		return nil, fmt.Errorf("save export metadata: %w", err)
	}

	s.logger.Info().Str("owner", ownerUserID).Str("export_id", meta.ID.String()).
		Int64("size_bytes", meta.SizeBytes).Bool("local", s.localMode).Msg("export stored")
	return toExport(meta), nil
}

// Get returns one export of the account. Other accounts' exports look missing.
func (s *Service) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*Export, error) {
	meta, err := s.exportsStorage.GetExport(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, fmt.Errorf("get export: %w", err)
	}
	if meta.OwnerUserID != ownerUserID || s.expired(meta.CreatedAt) {
		return nil, ErrExportNotFound
	}
	return toExport(meta), nil
}

// List returns the account's exports, newest first, skipping expired ones.
func (s *Service) List(ctx context.Context, ownerUserID string, limit, offset int) ([]Export, error) {
	metaList, err := s.exportsStorage.ListExports(ctx, ownerUserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}

	out := make([]Export, 0, len(metaList))
	for i := range metaList {
		if s.expired(metaList[i].CreatedAt) {
			continue
		}
		out = append(out, *toExport(&metaList[i]))
	}
	return out, nil
}

// Delete removes the object and its metadata.
func (s *Service) Delete(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	exp, err := s.Get(ctx, ownerUserID, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, exp.ID, exp.ObjectKey)
}

// DownloadURL is where a client fetches the workbook: the API itself in local mode,
// otherwise a public or presigned object URL.
func (s *Service) DownloadURL(ctx context.Context, exp *Export, baseURL string) (string, error) {
	if s.localMode || exp.ObjectKey == nil {
		return fmt.Sprintf("%s/v1/exports/%s/download", strings.TrimSuffix(baseURL, "/"), exp.ID), nil
	}

	if s.preferPublicURL && s.publicBaseURL != "" {
		return blob.PublicURL(s.publicBaseURL, *exp.ObjectKey), nil
	}

	url, err := s.blobStore.PresignGet(ctx, *exp.ObjectKey, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return url, nil
}

// ExpiresAt is the moment an export stops being listed.
func (s *Service) ExpiresAt(exp *Export) time.Time {
	if s.retention <= 0 {
		return time.Time{}
	}
	return exp.CreatedAt.Add(s.retention)
}

// LocalMode reports whether workbooks are kept in the metadata store.
func (s *Service) LocalMode() bool {
	return s.localMode
}

func (s *Service) pruneExpired(ctx context.Context, ownerUserID string) error {
	if s.retention <= 0 {
		return nil
	}
	metaList, err := s.exportsStorage.ListExports(ctx, ownerUserID, s.maxPerUser+100, 0)
	if err != nil {
		return fmt.Errorf("list exports: %w", err)
	}
	for _, meta := range metaList {
		if !s.expired(meta.CreatedAt) {
			continue
		}
		if err := s.remove(ctx, meta.ID, meta.ObjectKey); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) remove(ctx context.Context, id uuid.UUID, objectKey *string) error {
	if !s.localMode && objectKey != nil {
		if err := s.blobStore.DeleteObject(ctx, *objectKey); err != nil {
			// The metadata row goes anyway; a leftover object is only wasted space.
			s.logger.Warn().Err(err).Str("key", *objectKey).Msg("failed to delete export object")
		}
	}

	if err := s.exportsStorage.DeleteExport(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete export metadata: %w", err)
	}
	return nil
}

func (s *Service) expired(createdAt time.Time) bool {
	return s.retention > 0 && s.now().After(createdAt.Add(s.retention))
}

func toExport(meta *storage.ExportMeta) *Export {
	return &Export{
		ID:          meta.ID,
		OwnerUserID: meta.OwnerUserID,
		PlanID:      meta.PlanID,
		Format:      meta.Format,
		ObjectKey:   meta.ObjectKey,
		SizeBytes:   meta.SizeBytes,
		Status:      meta.Status,
		CreatedAt:   meta.CreatedAt,
		Data:        meta.Data,
	}
}
