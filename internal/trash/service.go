// Package trash implements the soft-delete lifecycle: listing trashed
// assets, restoring them, and the hard purge that finally releases
// both relational rows and blobs.
package trash

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/immich-go-backend/internal/db/sqlc"
	"github.com/denysvitali/immich-go-backend/internal/idgen"
	"github.com/denysvitali/immich-go-backend/internal/storage"
	"github.com/denysvitali/immich-go-backend/internal/telemetry"
)

var tracer = telemetry.GetTracer("trash")

// Service purges and restores trashed assets.
type Service struct {
	db      *sqlc.Queries
	storage *storage.Service
	logger  *logrus.Logger
}

func NewService(queries *sqlc.Queries, storageService *storage.Service) *Service {
	return &Service{
		db:      queries,
		storage: storageService,
		logger:  logrus.StandardLogger(),
	}
}

// List returns the caller's trashed assets, most recently trashed
// first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]sqlc.Asset, error) {
	return s.db.ListTrashedAssets(ctx, userID)
}

// Restore returns the given trashed assets to active. Assets not
// owned by the caller or not trashed are skipped.
func (s *Service) Restore(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	ctx, span := tracer.Start(ctx, "trash.restore",
		trace.WithAttributes(attribute.Int("count", len(ids))))
	defer span.End()

	trashed, err := s.db.ListTrashedAssets(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to list trashed assets: %w", err)
	}
	trashedSet := make(map[uuid.UUID]bool, len(trashed))
	for _, a := range trashed {
		trashedSet[a.ID] = true
	}

	restored := 0
	for _, id := range ids {
		if !trashedSet[id] {
			continue
		}
		if err := s.db.RestoreAsset(ctx, id, idgen.NewUUID()); err != nil {
			span.RecordError(err)
			return restored, fmt.Errorf("failed to restore asset %s: %w", id, err)
		}
		restored++
	}
	return restored, nil
}

// RestoreAll restores everything in the caller's trash.
func (s *Service) RestoreAll(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, span := tracer.Start(ctx, "trash.restore_all")
	defer span.End()

	trashed, err := s.db.ListTrashedAssets(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to list trashed assets: %w", err)
	}

	restored := 0
	for _, a := range trashed {
		if err := s.db.RestoreAsset(ctx, a.ID, idgen.NewUUID()); err != nil {
			span.RecordError(err)
			return restored, fmt.Errorf("failed to restore asset %s: %w", a.ID, err)
		}
		restored++
	}
	return restored, nil
}

// Empty hard-deletes every trashed asset of the caller: blobs
// (original plus derivatives and sidecar) and the relational rows,
// which cascade to exif, files, metadata, and membership links. Blob
// deletions run concurrently and failures are swallowed; a leftover
// blob is reaped by the cleanup job later. The freed bytes are
// returned to the owner's quota.
func (s *Service) Empty(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, span := tracer.Start(ctx, "trash.empty")
	defer span.End()

	trashed, err := s.db.ListTrashedAssets(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to list trashed assets: %w", err)
	}

	deleted := 0
	var freedBytes int64
	for _, asset := range trashed {
		// Derivative rows go first so their paths are still known for
		// blob deletion.
		files, err := s.db.DeleteAssetFiles(ctx, asset.ID)
		if err != nil {
			span.RecordError(err)
			return deleted, fmt.Errorf("failed to delete files of %s: %w", asset.ID, err)
		}

		paths := make([]string, 0, len(files)+1)
		paths = append(paths, asset.OriginalPath)
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		s.deleteBlobs(ctx, paths)

		if err := s.db.HardDeleteAsset(ctx, asset.ID); err != nil {
			span.RecordError(err)
			return deleted, fmt.Errorf("failed to delete asset %s: %w", asset.ID, err)
		}
		freedBytes += asset.FileSizeInByte
		deleted++
	}

	if freedBytes > 0 {
		if err := s.db.IncrementQuotaUsage(ctx, userID, -freedBytes); err != nil {
			span.RecordError(err)
			return deleted, fmt.Errorf("failed to release quota: %w", err)
		}
	}

	span.SetAttributes(attribute.Int("deleted", deleted))
	return deleted, nil
}

// deleteBlobs removes the given object-store keys concurrently,
// logging and swallowing failures.
func (s *Service) deleteBlobs(ctx context.Context, paths []string) {
	var wg sync.WaitGroup
	for _, p := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			if err := s.storage.DeleteAsset(ctx, path); err != nil {
				s.logger.WithError(err).WithField("path", path).Warn("blob delete failed; will be reaped later")
			}
		}(p)
	}
	wg.Wait()
}
